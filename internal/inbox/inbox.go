// Package inbox records accepted webhook deliveries in SQLite so operators
// can see what arrived.
package inbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/oneguard-gw/internal/webhook"
)

// DefaultListLimit caps Recent when no limit is given.
const DefaultListLimit = 50

// MaxListLimit is the largest limit Recent honours.
const MaxListLimit = 500

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is a stored delivery.
type Entry struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	BodyBytes  int             `json:"body_bytes"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Store persists deliveries. It implements webhook.Receiver.
type Store struct {
	db *sql.DB
}

var _ webhook.Receiver = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Receive stores d and discards the generated id.
func (s *Store) Receive(ctx context.Context, d webhook.Delivery) error {
	_, err := s.Record(ctx, d)
	return err
}

// Record stores d and returns its id. The raw body is stored as received,
// so what is kept is exactly what was signed.
func (s *Store) Record(ctx context.Context, d webhook.Delivery) (string, error) {
	id := uuid.NewString()

	receivedAt := d.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	// Empty bodies are accepted with no payload; store NULL.
	var payload any
	if len(d.Body) > 0 {
		payload = string(d.Body)
	}
	var requestID any
	if d.RequestID != "" {
		requestID = d.RequestID
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO webhook_delivery(id, request_id, payload, body_bytes, received_at)
VALUES(?, ?, ?, ?, ?);
`, id, requestID, payload, len(d.Body), receivedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// Recent returns up to limit deliveries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, request_id, payload, body_bytes, received_at
FROM webhook_delivery
ORDER BY received_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			requestID  sql.NullString
			payload    sql.NullString
			receivedAt string
		)
		if err := rows.Scan(&e.ID, &requestID, &payload, &e.BodyBytes, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		e.RequestID = requestID.String
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		e.ReceivedAt, err = time.Parse(timeLayout, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("parse received_at for %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

// Count returns the number of stored deliveries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_delivery;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return n, nil
}

// Prune deletes deliveries received before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM webhook_delivery WHERE received_at < ?;`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return n, nil
}
