package store

import (
	"context"
	"time"
)

// EventStore is the append-only audit trail per transaction. Events are
// never updated or deleted; the full history replaces the free-form notes
// blob the admin tooling used to overwrite.
type EventStore struct {
	db DB
}

const (
	EventCreated                = "created"
	EventGatewayNotified        = "gateway_notified"
	EventVerified               = "verified"
	EventVerificationMismatch   = "verification_mismatch"
	EventPaid                   = "paid"
	EventApproved               = "approved"
	EventRejected               = "rejected"
	EventPayoutAttempted        = "payout_attempted"
	EventPayoutFailed           = "payout_failed"
	EventCompleted              = "completed"
	EventFailed                 = "failed"
	EventCancelled              = "cancelled"
	EventExpired                = "expired"
	EventManualReversalRequired = "manual_reversal_required"
	EventBalanceSynced          = "balance_synced"
)

type TransactionEvent struct {
	ID            string    `db:"id" json:"id"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	Kind          string    `db:"kind" json:"kind"`
	Detail        string    `db:"detail" json:"detail"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, tx Execer, transactionID, kind, detail string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transaction_events (id, transaction_id, kind, detail)
		VALUES (gen_random_uuid()::text, $1, $2, $3)
	`, transactionID, kind, detail)
	return err
}

func (s *EventStore) ListByTransaction(ctx context.Context, transactionID string) ([]TransactionEvent, error) {
	var rows []TransactionEvent
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, transaction_id, kind, detail, created_at
		FROM transaction_events
		WHERE transaction_id = $1
		ORDER BY created_at
	`, transactionID)
	return rows, err
}
