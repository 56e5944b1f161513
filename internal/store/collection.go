package store

import (
	"encoding/json"
	"fmt"
)

// collection is an id-keyed set of entities that remembers insertion order.
type collection[T any] struct {
	name  string
	order []string
	items map[string]T
	clone func(T) T
}

func newCollection[T any](name string, clone func(T) T) *collection[T] {
	return &collection[T]{name: name, items: map[string]T{}, clone: clone}
}

func (c *collection[T]) get(id string) (T, bool) {
	v, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(v), true
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.clone(c.items[id]))
	}
	return out
}

func (c *collection[T]) put(id string, v T) (created bool) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
		created = true
	}
	c.items[id] = v
	return created
}

func (c *collection[T]) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// staged layers uncommitted writes of one mutation over a collection.
type staged[T any] struct {
	base    *collection[T]
	puts    map[string]T
	deleted map[string]bool
	touched []string
}

func stage[T any](base *collection[T]) *staged[T] {
	return &staged[T]{base: base, puts: map[string]T{}, deleted: map[string]bool{}}
}

func (s *staged[T]) touch(id string) {
	for _, t := range s.touched {
		if t == id {
			return
		}
	}
	s.touched = append(s.touched, id)
}

func (s *staged[T]) get(id string) (T, bool) {
	if s.deleted[id] {
		var zero T
		return zero, false
	}
	if v, ok := s.puts[id]; ok {
		return s.base.clone(v), true
	}
	return s.base.get(id)
}

func (s *staged[T]) put(id string, v T) {
	delete(s.deleted, id)
	s.puts[id] = s.base.clone(v)
	s.touch(id)
}

func (s *staged[T]) remove(id string) bool {
	if _, ok := s.get(id); !ok {
		return false
	}
	delete(s.puts, id)
	s.deleted[id] = true
	s.touch(id)
	return true
}

// list returns committed entities in insertion order with staged writes
// applied, followed by entities created in this mutation.
func (s *staged[T]) list() []T {
	out := make([]T, 0, len(s.base.order)+len(s.puts))
	for _, id := range s.base.order {
		if s.deleted[id] {
			continue
		}
		if v, ok := s.puts[id]; ok {
			out = append(out, s.base.clone(v))
			continue
		}
		out = append(out, s.base.clone(s.base.items[id]))
	}
	for _, id := range s.touched {
		if _, committed := s.base.items[id]; committed {
			continue
		}
		if v, ok := s.puts[id]; ok {
			out = append(out, s.base.clone(v))
		}
	}
	return out
}

// prepare encodes the write-through operations without touching the base.
func (s *staged[T]) prepare() ([]Op, error) {
	var ops []Op
	for _, id := range s.touched {
		_, committed := s.base.items[id]
		if s.deleted[id] {
			if committed {
				ops = append(ops, Op{Kind: OpDelete, Collection: s.base.name, ID: id})
			}
			continue
		}
		data, err := json.Marshal(s.puts[id])
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", s.base.name, id, err)
		}
		kind := OpUpdate
		if !committed {
			kind = OpCreate
		}
		ops = append(ops, Op{Kind: kind, Collection: s.base.name, ID: id, Data: data})
	}
	return ops, nil
}

func (s *staged[T]) apply() {
	for _, id := range s.touched {
		if s.deleted[id] {
			s.base.remove(id)
			continue
		}
		s.base.put(id, s.puts[id])
	}
}
