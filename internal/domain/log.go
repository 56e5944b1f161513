package domain

import "encoding/json"

// Log is an append-only sequence. Append returns a new Log and never
// touches the receiver's backing array, so values handed out earlier stay valid.
type Log[T any] struct {
	entries []T
}

func NewLog[T any](entries ...T) Log[T] {
	if len(entries) == 0 {
		return Log[T]{}
	}
	cp := make([]T, len(entries))
	copy(cp, entries)
	return Log[T]{entries: cp}
}

func (l Log[T]) Append(entry T) Log[T] {
	next := make([]T, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	return Log[T]{entries: append(next, entry)}
}

func (l Log[T]) Len() int { return len(l.entries) }

// Entries returns a copy of the log, oldest first.
func (l Log[T]) Entries() []T {
	out := make([]T, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l Log[T]) Last() (T, bool) {
	var zero T
	if len(l.entries) == 0 {
		return zero, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l Log[T]) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l *Log[T]) UnmarshalJSON(data []byte) error {
	var entries []T
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}
