package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      string
	ProductID *string
	Message   string
	JSON      string
}

// RecordEvent appends an event to the log. productID may be empty for
// host-level events (license changes, prune runs).
func (s *Store) RecordEvent(ctx context.Context, kind, productID, msg, jsonPayload string) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if kind == "" {
		return errors.New("event kind is required")
	}
	now := formatTime(time.Now().UTC())
	var product sql.NullString
	if productID != "" {
		product = sql.NullString{Valid: true, String: productID}
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO events (ts, kind, product_id, msg, json) VALUES (?, ?, ?, ?, ?)`,
		now, kind, product, nullIfEmpty(msg), nullIfEmpty(jsonPayload))
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListEventsTail returns the most recent events in ascending id order,
// optionally filtered by product.
func (s *Store) ListEventsTail(ctx context.Context, productID string, limit int) ([]Event, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	query := `SELECT id, ts, kind, product_id, msg, json FROM events ORDER BY id DESC LIMIT ?`
	args := []any{limit}
	if productID = strings.TrimSpace(productID); productID != "" {
		query = `SELECT id, ts, kind, product_id, msg, json FROM events WHERE product_id = ? ORDER BY id DESC LIMIT ?`
		args = []any{productID, limit}
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events tail: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		ev, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events tail: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListEventsAfter returns up to limit events with id greater than afterID,
// in ascending order. Used by pollers tailing the log.
func (s *Store) ListEventsAfter(ctx context.Context, afterID int64, limit int) ([]Event, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, ts, kind, product_id, msg, json
		FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		ev, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func scanEventRow(scanner interface{ Scan(dest ...any) error }) (Event, error) {
	var ev Event
	var ts string
	var product sql.NullString
	var msg sql.NullString
	var jsonPayload sql.NullString
	if err := scanner.Scan(&ev.ID, &ts, &ev.Kind, &product, &msg, &jsonPayload); err != nil {
		return Event{}, err
	}
	if ts != "" {
		parsed, err := parseTime(ts)
		if err != nil {
			return Event{}, fmt.Errorf("parse event ts: %w", err)
		}
		ev.Timestamp = parsed
	}
	if product.Valid {
		value := product.String
		ev.ProductID = &value
	}
	if msg.Valid {
		ev.Message = msg.String
	}
	if jsonPayload.Valid {
		ev.JSON = jsonPayload.String
	}
	return ev, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
