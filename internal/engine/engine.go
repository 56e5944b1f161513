// Package engine is the compliance evaluation and lifecycle facade. It
// validates input, runs the pure rules from catalog, fulfillment, risk,
// lifecycle and compliance against the session store, and publishes the
// resulting entities in one store mutation.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"qualityline/internal/catalog"
	"qualityline/internal/config"
	"qualityline/internal/domain"
	"qualityline/internal/logging"
	"qualityline/internal/metrics"
	"qualityline/internal/store"
)

type Engine struct {
	Store   *store.Store
	Catalog *catalog.Catalog
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
	NewID   func() string
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.Logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.Metrics = m
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.Now = now
	}
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) {
		e.NewID = newID
	}
}

func New(s *store.Store, c *catalog.Catalog, cfg *config.Config, opts ...Option) Engine {
	e := Engine{
		Store:   s,
		Catalog: c,
		Config:  cfg,
		Logger:  logging.Discard(),
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.Discard()
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
