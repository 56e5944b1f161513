// Package store is the in-memory session repository. It owns the mutable
// collections of one running session, serializes mutations and hands out
// copies to readers. Every committed mutation is forwarded to a Sink for
// write-through persistence; the in-memory state stays authoritative.
package store

import (
	"sync"

	"qualityline/internal/domain"
	"qualityline/internal/fulfillment"
)

// Record store collection names.
const (
	Processes         = "processes"
	Documents         = "documents"
	ContextIssues     = "context_issues"
	Actions           = "actions"
	FunctionInstances = "function_instances"
)

// Sink receives the write-through operations of committed mutations.
type Sink interface {
	Enqueue(op Op)
}

type pairKey struct {
	functionID string
	processID  string
}

type Store struct {
	mu sync.RWMutex

	processes *collection[domain.Process]
	documents *collection[domain.Document]
	issues    *collection[domain.ContextIssue]
	actions   *collection[domain.Action]
	instances *collection[domain.FunctionInstance]

	// function instance indexes, kept in step with instances
	byPair     map[pairKey]string
	byFunction map[string][]string

	sink Sink
}

// New returns an empty store. sink may be nil for a session without persistence.
func New(sink Sink) *Store {
	return &Store{
		processes:  newCollection(Processes, domain.Process.Clone),
		documents:  newCollection(Documents, domain.Document.Clone),
		issues:     newCollection(ContextIssues, domain.ContextIssue.Clone),
		actions:    newCollection(Actions, domain.Action.Clone),
		instances:  newCollection(FunctionInstances, domain.FunctionInstance.Clone),
		byPair:     map[pairKey]string{},
		byFunction: map[string][]string{},
		sink:       sink,
	}
}

// Mutate runs fn against a staged view of the store. When fn returns nil
// every staged write is published at once and queued for persistence;
// otherwise nothing changes.
func (s *Store) Mutate(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.newTx()
	if err := fn(tx); err != nil {
		return err
	}
	ops, err := tx.prepare()
	if err != nil {
		return err
	}
	tx.apply()
	if s.sink != nil {
		for _, op := range ops {
			s.sink.Enqueue(op)
		}
	}
	return nil
}

// View runs fn against a consistent read-only snapshot. Writes made through
// the Tx are discarded.
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.newTx())
}

func (s *Store) Process(id string) (domain.Process, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes.get(id)
}

func (s *Store) Processes() []domain.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes.list()
}

func (s *Store) Document(id string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents.get(id)
}

func (s *Store) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents.list()
}

func (s *Store) Issue(id string) (domain.ContextIssue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issues.get(id)
}

func (s *Store) Issues() []domain.ContextIssue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issues.list()
}

func (s *Store) Action(id string) (domain.Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions.get(id)
}

func (s *Store) Actions() []domain.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions.list()
}

func (s *Store) Instance(id string) (domain.FunctionInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instances.get(id)
}

func (s *Store) Instances() []domain.FunctionInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instances.list()
}

// Snapshot captures the evidence used by fulfillment inference.
func (s *Store) Snapshot() fulfillment.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fulfillment.Snapshot{
		Documents: s.documents.list(),
		Issues:    s.issues.list(),
		Actions:   s.actions.list(),
	}
}

func (s *Store) index(fi domain.FunctionInstance) {
	key := pairKey{functionID: fi.FunctionID, processID: fi.ProcessID}
	if _, ok := s.byPair[key]; ok {
		return
	}
	s.byPair[key] = fi.ID
	s.byFunction[fi.FunctionID] = append(s.byFunction[fi.FunctionID], fi.ID)
}

func (s *Store) reindex() {
	s.byPair = map[pairKey]string{}
	s.byFunction = map[string][]string{}
	for _, id := range s.instances.order {
		s.index(s.instances.items[id])
	}
}
