package store

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"qualityline/internal/recordstore"
)

// Load hydrates a new store from the record store. Collections are fetched
// concurrently and inserted in record store order.
func Load(ctx context.Context, records recordstore.RecordStore, sink Sink) (*Store, error) {
	s := New(sink)
	loaders := []func([]recordstore.Record) error{
		decodeInto(s.processes),
		decodeInto(s.documents),
		decodeInto(s.issues),
		decodeInto(s.actions),
		decodeInto(s.instances),
	}
	names := []string{Processes, Documents, ContextIssues, Actions, FunctionInstances}
	fetched := make([][]recordstore.Record, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			recs, err := records.Fetch(gctx, name)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			fetched[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, load := range loaders {
		if err := load(fetched[i]); err != nil {
			return nil, err
		}
	}
	s.reindex()
	return s, nil
}

func decodeInto[T any](c *collection[T]) func([]recordstore.Record) error {
	return func(recs []recordstore.Record) error {
		for _, rec := range recs {
			var v T
			if err := json.Unmarshal(rec.Data, &v); err != nil {
				return fmt.Errorf("decode %s/%s: %w", c.name, rec.ID, err)
			}
			c.put(rec.ID, v)
		}
		return nil
	}
}
