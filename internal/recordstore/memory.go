package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory keeps records in process. It backs ephemeral sessions and tests.
type Memory struct {
	mu    sync.Mutex
	items map[string]map[string]json.RawMessage
	order map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		items: map[string]map[string]json.RawMessage{},
		order: map[string][]string{},
	}
}

func (m *Memory) Fetch(_ context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.order[collection]))
	for _, id := range m.order[collection] {
		out = append(out, Record{ID: id, Data: clone(m.items[collection][id])})
	}
	return out, nil
}

func (m *Memory) Create(_ context.Context, collection string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		return fmt.Errorf("record id required")
	}
	if m.items[collection] == nil {
		m.items[collection] = map[string]json.RawMessage{}
	}
	if _, exists := m.items[collection][rec.ID]; exists {
		return fmt.Errorf("record %s/%s already exists", collection, rec.ID)
	}
	m.items[collection][rec.ID] = clone(rec.Data)
	m.order[collection] = append(m.order[collection], rec.ID)
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, patch json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergePatch(current, patch)
	if err != nil {
		return err
	}
	m.items[collection][id] = merged
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.items[collection], id)
	ids := m.order[collection]
	for i, v := range ids {
		if v == id {
			m.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
