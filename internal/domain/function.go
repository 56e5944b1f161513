package domain

import (
	"encoding/json"
	"fmt"
)

type InstanceStatus string

const (
	NotImplemented         InstanceStatus = "not_implemented"
	PartiallyImplemented   InstanceStatus = "partially_implemented"
	Implemented            InstanceStatus = "implemented"
	Nonconformity          InstanceStatus = "nonconformity"
	ImprovementOpportunity InstanceStatus = "improvement_opportunity"
)

func (s InstanceStatus) Valid() bool {
	switch s {
	case NotImplemented, PartiallyImplemented, Implemented, Nonconformity, ImprovementOpportunity:
		return true
	}
	return false
}

// FunctionInstance attaches a StandardFunction to a Process.
type FunctionInstance struct {
	ID                 string
	FunctionID         string
	ProcessID          string
	Status             InstanceStatus
	Data               InstanceData
	LinkedActionIDs    []string
	LinkedObjectiveIDs []string
	LinkedKPIIDs       []string
	Evidence           Log[EvidenceItem]
	History            Log[InstanceChange]
	CreatedAt          string
	UpdatedAt          string
}

type EvidenceItem struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	AddedBy     string `json:"added_by,omitempty"`
	Date        string `json:"date"`
}

// InstanceChange records a status or payload change on a function instance.
type InstanceChange struct {
	Date       string         `json:"date"`
	Field      string         `json:"field"`
	FromStatus InstanceStatus `json:"from_status,omitempty"`
	ToStatus   InstanceStatus `json:"to_status,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// InstanceData is the payload of a function instance. The concrete shape is
// selected by the function id.
type InstanceData interface {
	DataKind() string
}

const (
	DataKindPolicy     = "policy"
	DataKindObjectives = "objectives"
	DataKindGeneric    = "generic"
)

type PolicyData struct {
	Statement      string   `json:"statement,omitempty"`
	Version        string   `json:"version,omitempty"`
	ApprovedBy     string   `json:"approved_by,omitempty"`
	ApprovedAt     string   `json:"approved_at,omitempty"`
	CommunicatedTo []string `json:"communicated_to,omitempty"`
	NextReview     string   `json:"next_review,omitempty"`
}

func (PolicyData) DataKind() string { return DataKindPolicy }

type Objective struct {
	Title  string `json:"title"`
	Target string `json:"target,omitempty"`
	Due    string `json:"due,omitempty"`
}

type ObjectivesData struct {
	Objectives []Objective `json:"objectives,omitempty"`
	ReviewedAt string      `json:"reviewed_at,omitempty"`
}

func (ObjectivesData) DataKind() string { return DataKindObjectives }

type GenericData struct {
	Notes  string            `json:"notes,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (GenericData) DataKind() string { return DataKindGeneric }

// DataKindFor maps a function id to its payload shape.
func DataKindFor(functionID string) string {
	switch functionID {
	case "policy_management":
		return DataKindPolicy
	case "quality_objectives":
		return DataKindObjectives
	default:
		return DataKindGeneric
	}
}

// NewInstanceData returns the empty payload for a function.
func NewInstanceData(functionID string) InstanceData {
	switch DataKindFor(functionID) {
	case DataKindPolicy:
		return PolicyData{}
	case DataKindObjectives:
		return ObjectivesData{}
	default:
		return GenericData{}
	}
}

// DecodeInstanceData parses a raw payload of the given kind.
func DecodeInstanceData(kind string, raw json.RawMessage) (InstanceData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	switch kind {
	case DataKindPolicy:
		var d PolicyData
		err := json.Unmarshal(raw, &d)
		return d, err
	case DataKindObjectives:
		var d ObjectivesData
		err := json.Unmarshal(raw, &d)
		return d, err
	case DataKindGeneric, "":
		var d GenericData
		err := json.Unmarshal(raw, &d)
		return d, err
	}
	return nil, fmt.Errorf("%w: unknown data kind %q", ErrValidation, kind)
}

type functionInstanceJSON struct {
	ID                 string              `json:"id"`
	FunctionID         string              `json:"function_id"`
	ProcessID          string              `json:"process_id"`
	Status             InstanceStatus      `json:"status"`
	DataKind           string              `json:"data_kind"`
	Data               json.RawMessage     `json:"data"`
	LinkedActionIDs    []string            `json:"linked_action_ids"`
	LinkedObjectiveIDs []string            `json:"linked_objective_ids"`
	LinkedKPIIDs       []string            `json:"linked_kpi_ids"`
	Evidence           Log[EvidenceItem]   `json:"evidence"`
	History            Log[InstanceChange] `json:"history"`
	CreatedAt          string              `json:"created_at"`
	UpdatedAt          string              `json:"updated_at"`
}

func (fi FunctionInstance) MarshalJSON() ([]byte, error) {
	data := fi.Data
	if data == nil {
		data = NewInstanceData(fi.FunctionID)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(functionInstanceJSON{
		ID:                 fi.ID,
		FunctionID:         fi.FunctionID,
		ProcessID:          fi.ProcessID,
		Status:             fi.Status,
		DataKind:           data.DataKind(),
		Data:               raw,
		LinkedActionIDs:    fi.LinkedActionIDs,
		LinkedObjectiveIDs: fi.LinkedObjectiveIDs,
		LinkedKPIIDs:       fi.LinkedKPIIDs,
		Evidence:           fi.Evidence,
		History:            fi.History,
		CreatedAt:          fi.CreatedAt,
		UpdatedAt:          fi.UpdatedAt,
	})
}

func (fi *FunctionInstance) UnmarshalJSON(b []byte) error {
	var raw functionInstanceJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kind := raw.DataKind
	if kind == "" {
		kind = DataKindFor(raw.FunctionID)
	}
	data, err := DecodeInstanceData(kind, raw.Data)
	if err != nil {
		return err
	}
	*fi = FunctionInstance{
		ID:                 raw.ID,
		FunctionID:         raw.FunctionID,
		ProcessID:          raw.ProcessID,
		Status:             raw.Status,
		Data:               data,
		LinkedActionIDs:    raw.LinkedActionIDs,
		LinkedObjectiveIDs: raw.LinkedObjectiveIDs,
		LinkedKPIIDs:       raw.LinkedKPIIDs,
		Evidence:           raw.Evidence,
		History:            raw.History,
		CreatedAt:          raw.CreatedAt,
		UpdatedAt:          raw.UpdatedAt,
	}
	return nil
}
