// Package ledger persists confirmed license deliveries in SQLite for
// business reconciliation and operator tooling.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phanesguild/licensegw/internal/audit"
)

// Entry is one confirmed delivery.
type Entry struct {
	ID          string
	BuyerEmail  string
	BuyerName   string
	OrderID     string
	DeliveredAt time.Time
}

// Store reads and writes the delivery ledger table.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordDelivery appends one confirmed delivery and returns its ID.
func (s *Store) RecordDelivery(ctx context.Context, buyerEmail, buyerName, orderID string, deliveredAt time.Time) (string, error) {
	if buyerEmail == "" {
		return "", fmt.Errorf("buyer email is empty")
	}
	if orderID == "" {
		return "", fmt.Errorf("order ID is empty")
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO delivery_ledger(id, buyer_email, buyer_name, order_id, delivered_at)
VALUES(?, ?, ?, ?, ?);
`, id, buyerEmail, buyerName, orderID, deliveredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// Recent returns up to limit deliveries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, buyer_email, buyer_name, order_id, delivered_at
FROM delivery_ledger
ORDER BY delivered_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			deliveredAtS string
		)
		if err := rows.Scan(&e.ID, &e.BuyerEmail, &e.BuyerName, &e.OrderID, &deliveredAtS); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, deliveredAtS)
		if err != nil {
			return nil, fmt.Errorf("parse delivered_at %q for delivery %s: %w", deliveredAtS, e.ID, err)
		}
		e.DeliveredAt = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return entries, nil
}

// Count returns the total number of recorded deliveries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_ledger;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return n, nil
}

// Sink adapts the Store to the audit event stream. It keeps only confirmed
// deliveries.
type Sink struct {
	store *Store
}

// NewSink creates a ledger Sink.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

// Write persists delivery events and ignores the rest.
func (s *Sink) Write(e audit.Event) error {
	if !e.Delivered {
		return nil
	}
	_, err := s.store.RecordDelivery(context.Background(), e.Buyer, e.BuyerName, e.OrderID, e.Time)
	return err
}
