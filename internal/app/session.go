// Package app wires a running session: configuration, logger, metrics,
// record store, the hydrated in-memory store, its persistence worker and
// the engine on top.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"qualityline/internal/catalog"
	"qualityline/internal/config"
	"qualityline/internal/db"
	"qualityline/internal/engine"
	"qualityline/internal/events"
	"qualityline/internal/logging"
	"qualityline/internal/metrics"
	"qualityline/internal/migrate"
	"qualityline/internal/recordstore"
	"qualityline/internal/store"
)

type Options struct {
	Workspace string
	// Config overrides the workspace qualityline.yml when set.
	Config *config.Config
	// Ephemeral keeps every record in memory regardless of the configured driver.
	Ephemeral bool
	LogOutput io.Writer
	Registry  *prometheus.Registry
}

type Session struct {
	Workspace string
	Config    *config.Config
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	DB        *sql.DB
	Records   recordstore.RecordStore
	Persister *store.Persister
	Engine    engine.Engine
}

// Open builds a session and hydrates it from the record store.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts.Workspace); err != nil {
			return nil, err
		}
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Session{
		Workspace: opts.Workspace,
		Config:    cfg,
		Logger:    logging.New(cfg, out),
		Registry:  reg,
		Metrics:   metrics.New(reg),
	}

	cat, err := loadCatalog(opts.Workspace, cfg)
	if err != nil {
		return nil, err
	}

	if opts.Ephemeral || cfg.Persistence.Driver == config.DriverMemory {
		s.Records = recordstore.NewMemory()
	} else {
		conn, err := db.Open(db.Config{Workspace: opts.Workspace})
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		applied, err := migrate.Migrate(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if applied > 0 {
			s.Logger.Info("applied migrations", "count", applied, "path", db.Path(opts.Workspace))
		}
		s.DB = conn
		s.Records = recordstore.NewSQLite(conn)
	}

	s.Persister = store.NewPersister(s.Records,
		store.WithLogger(s.Logger),
		store.WithMetrics(s.Metrics),
		store.WithQueueSize(cfg.Persistence.QueueSize),
	)
	st, err := store.Load(ctx, s.Records, s.Persister)
	if err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.Engine = engine.New(st, cat, cfg, engine.WithLogger(s.Logger), engine.WithMetrics(s.Metrics))
	s.Logger.Debug("session ready",
		"processes", len(st.Processes()), "actions", len(st.Actions()), "driver", s.driver())
	return s, nil
}

func loadCatalog(workspace string, cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.File == "" {
		return catalog.Default()
	}
	path := cfg.Catalog.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}
	c, err := catalog.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

func (s *Session) driver() string {
	if s.DB != nil {
		return config.DriverSQLite
	}
	return config.DriverMemory
}

// Events returns the latest record store events, newest first. Sessions
// without a database have no event log.
func (s *Session) Events(ctx context.Context, limit int, collection, entityID string) ([]events.Event, error) {
	if s.DB == nil {
		return nil, errors.New("event log requires the sqlite driver")
	}
	return events.Latest(ctx, s.DB, limit, collection, entityID)
}

// Close drains pending writes and releases the database.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.Persister != nil {
		errs = append(errs, s.Persister.Close(ctx))
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
