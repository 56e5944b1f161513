package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"qualityline/internal/events"
)

// SQLite stores records in the workspace database and logs every write to
// the events table in the same transaction.
type SQLite struct {
	DB     *sql.DB
	Events events.Writer
	Now    func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db, Events: events.Writer{}, Now: time.Now}
}

func (s *SQLite) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *SQLite) Fetch(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,data_json FROM records WHERE collection=? ORDER BY seq`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out = append(out, Record{ID: id, Data: json.RawMessage(data)})
	}
	return out, rows.Err()
}

func (s *SQLite) Create(ctx context.Context, collection string, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id required")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := s.now()
	if _, err := tx.ExecContext(ctx, `INSERT INTO records(collection,id,seq,data_json,created_at,updated_at)
VALUES (?,?,(SELECT COALESCE(MAX(seq),0)+1 FROM records WHERE collection=?),?,?,?)`,
		collection, rec.ID, collection, string(rec.Data), now, now); err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, rec.ID, err)
	}
	if err := s.Events.Append(ctx, tx, "record.created", collection, rec.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Update(ctx context.Context, collection, id string, patch json.RawMessage) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var current string
	err = tx.QueryRowContext(ctx, `SELECT data_json FROM records WHERE collection=? AND id=?`, collection, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	merged, err := mergePatch(json.RawMessage(current), patch)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE records SET data_json=?, updated_at=? WHERE collection=? AND id=?`,
		string(merged), s.now(), collection, id); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if err := s.Events.Append(ctx, tx, "record.updated", collection, id, patchKeys(patch)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection=? AND id=?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := s.Events.Append(ctx, tx, "record.deleted", collection, id, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func patchKeys(patch json.RawMessage) events.EventPayload {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(patch, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return events.EventPayload{"fields": keys}
}
