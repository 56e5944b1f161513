package domain

type RequirementType string

const (
	RequirementGeneric    RequirementType = "generic"
	RequirementUnique     RequirementType = "unique"
	RequirementDuplicable RequirementType = "duplicable"
)

// Requirement is an immutable catalog entry for an ISO 9001 clause.
type Requirement struct {
	ID           string          `json:"id" yaml:"id"`
	ClauseNumber string          `json:"clause_number" yaml:"clause"`
	ClauseTitle  string          `json:"clause_title" yaml:"title"`
	Description  string          `json:"description,omitempty" yaml:"description"`
	Type         RequirementType `json:"type" yaml:"type" enum:"generic,unique,duplicable"`
}

type DuplicationRule string

const (
	DuplicationUnique     DuplicationRule = "unique"
	DuplicationPerProcess DuplicationRule = "per_process"
)

// StandardFunction is a standard-mandated capability that can be attached to processes.
type StandardFunction struct {
	ID                   string          `json:"id" yaml:"id"`
	Title                string          `json:"title" yaml:"title"`
	ClauseReferences     []string        `json:"clause_references" yaml:"clauses"`
	DuplicationRule      DuplicationRule `json:"duplication_rule" yaml:"duplication"`
	Mandatory            bool            `json:"mandatory" yaml:"mandatory"`
	Category             string          `json:"category" yaml:"category"`
	EligibleProcessTypes []string        `json:"eligible_process_types,omitempty" yaml:"eligible_process_types"`
}

// EligibleFor reports whether the function may be attached to a process of the given type.
// An empty eligibility list means every process type.
func (f StandardFunction) EligibleFor(processType string) bool {
	if len(f.EligibleProcessTypes) == 0 {
		return true
	}
	for _, t := range f.EligibleProcessTypes {
		if t == processType {
			return true
		}
	}
	return false
}

type Process struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Owner      string     `json:"owner,omitempty"`
	Activities []Activity `json:"activities"`
	CreatedAt  string     `json:"created_at" format:"date-time"`
	UpdatedAt  string     `json:"updated_at" format:"date-time"`
}

// GovernanceActivity returns the system-generated activity hosting generic requirements.
func (p Process) GovernanceActivity() (Activity, bool) {
	for _, a := range p.Activities {
		if a.Governance {
			return a, true
		}
	}
	return Activity{}, false
}

func (p Process) Activity(id string) (Activity, bool) {
	for _, a := range p.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

type Activity struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Governance     bool     `json:"governance"`
	RequirementIDs []string `json:"requirement_ids,omitempty"`
}

// Document is evidence supplied by the document collaborator.
type Document struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	ProcessIDs          []string `json:"process_ids"`
	ISOClauseReferences []string `json:"iso_clause_references"`
	CreatedAt           string   `json:"created_at" format:"date-time"`
}

type FulfillmentState string

const (
	Satisfied    FulfillmentState = "satisfied"
	NotSatisfied FulfillmentState = "not_satisfied"
)

type ItemKind string

const (
	ItemDocument ItemKind = "document"
	ItemIssue    ItemKind = "issue"
	ItemAction   ItemKind = "action"
)

type ItemRef struct {
	Kind  ItemKind `json:"kind"`
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
}

type Fulfillment struct {
	State        FulfillmentState `json:"state"`
	InferredFrom []ItemRef        `json:"inferred_from"`
}

type RequirementStatus struct {
	Requirement Requirement `json:"requirement"`
	Allocated   bool        `json:"allocated"`
	ActivityIDs []string    `json:"activity_ids,omitempty"`
	Fulfillment Fulfillment `json:"fulfillment"`
}

type RequirementsOverview struct {
	Total        int                 `json:"total"`
	Allocated    int                 `json:"allocated"`
	Satisfied    int                 `json:"satisfied"`
	NotSatisfied int                 `json:"not_satisfied"`
	Requirements []RequirementStatus `json:"requirements"`
}

// ComplianceMetrics is derived on demand and never persisted.
type ComplianceMetrics struct {
	TotalFunctions              int `json:"total_functions"`
	ImplementedCount            int `json:"implemented_count"`
	PartiallyImplementedCount   int `json:"partially_implemented_count"`
	NotImplementedCount         int `json:"not_implemented_count"`
	NonconformityCount          int `json:"nonconformity_count"`
	ImprovementOpportunityCount int `json:"improvement_opportunity_count"`
	CompliancePercentage        int `json:"compliance_percentage"`
}
