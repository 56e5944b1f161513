package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends audit rows for record store writes. It runs inside the
// caller's transaction so a write and its event commit together.
type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	Collection string `json:"collection"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, collection, entityID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,collection,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, collection, nullable(entityID), string(data))
	return err
}

// Latest returns the newest events first, optionally filtered by collection
// and entity.
func Latest(ctx context.Context, db *sql.DB, limit int, collection, entityID string) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id,ts,type,collection,COALESCE(entity_id,''),payload_json FROM events WHERE 1=1`
	var args []any
	if collection != "" {
		query += ` AND collection=?`
		args = append(args, collection)
	}
	if entityID != "" {
		query += ` AND entity_id=?`
		args = append(args, entityID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.Collection, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
