package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"qualityline/internal/logging"
	"qualityline/internal/metrics"
	"qualityline/internal/recordstore"
)

type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Op is one write-through operation against the record store.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       json.RawMessage
}

const DefaultQueueSize = 256

// Persister drains write-through operations on a single worker, in the order
// they were enqueued. Failures are logged and counted, never retried, and
// never reflected back into the session.
type Persister struct {
	records recordstore.RecordStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	size    int

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}
}

type job struct {
	op      Op
	barrier chan struct{}
}

type Option func(*Persister)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Persister) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Persister) {
		p.metrics = m
	}
}

// WithQueueSize bounds the number of pending operations. Enqueue blocks
// while the queue is full.
func WithQueueSize(n int) Option {
	return func(p *Persister) {
		if n >= 0 {
			p.size = n
		}
	}
}

// NewPersister starts the worker. Call Close to drain and stop it.
func NewPersister(records recordstore.RecordStore, opts ...Option) *Persister {
	p := &Persister{
		records: records,
		logger:  logging.Discard(),
		size:    DefaultQueueSize,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan job, p.size)
	go p.run()
	return p
}

func (p *Persister) Enqueue(op Op) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("persistence queue closed, dropping write",
			"collection", op.Collection, "id", op.ID, "op", op.Kind)
		p.metrics.IncPersistenceFailure(op.Collection, string(op.Kind))
		return
	}
	p.queue <- job{op: op}
}

// Flush waits until every operation enqueued before the call has been applied.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil
	}
	barrier := make(chan struct{})
	select {
	case p.queue <- job{barrier: barrier}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting operations and waits for the queue to drain.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) run() {
	defer close(p.done)
	for j := range p.queue {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		p.apply(j.op)
	}
}

func (p *Persister) apply(op Op) {
	ctx := context.Background()
	var err error
	switch op.Kind {
	case OpCreate:
		err = p.records.Create(ctx, op.Collection, recordstore.Record{ID: op.ID, Data: op.Data})
	case OpUpdate:
		err = p.records.Update(ctx, op.Collection, op.ID, op.Data)
	case OpDelete:
		err = p.records.Delete(ctx, op.Collection, op.ID)
	default:
		err = fmt.Errorf("unknown op %q", op.Kind)
	}
	if err != nil {
		p.logger.Error("persist record",
			"collection", op.Collection, "id", op.ID, "op", op.Kind, "error", err)
		p.metrics.IncPersistenceFailure(op.Collection, string(op.Kind))
		return
	}
	p.logger.Debug("persisted record", "collection", op.Collection, "id", op.ID, "op", op.Kind)
	p.metrics.IncPersistenceWrite(op.Collection, string(op.Kind))
}
