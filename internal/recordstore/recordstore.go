// Package recordstore is the keyed record persistence collaborator. The
// engine treats records as opaque JSON documents grouped by collection.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type RecordStore interface {
	Fetch(ctx context.Context, collection string) ([]Record, error)
	Create(ctx context.Context, collection string, rec Record) error
	Update(ctx context.Context, collection, id string, patch json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
}

// mergePatch overlays the top-level keys of patch onto current.
func mergePatch(current, patch json.RawMessage) (json.RawMessage, error) {
	base := map[string]json.RawMessage{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &base); err != nil {
			return nil, fmt.Errorf("decode stored record: %w", err)
		}
	}
	overlay := map[string]json.RawMessage{}
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}
