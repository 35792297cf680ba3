package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/models"
)

// RecordPayment persists a payment and runs apply against the same
// transaction. When apply rejects the payment nothing is committed, so no
// payment row survives a failed debt check.
func (s *SQLiteStore) RecordPayment(ctx context.Context, payment *models.Payment, apply func(ledger.EdgeStore) error) error {
	// Generate ID if not set
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, group_id, payer_id, recipient_id, amount, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.GroupID, payment.PayerID, payment.RecipientID,
		payment.Amount, payment.Note, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if apply != nil {
		if err := apply(&edgeTx{tx: tx}); err != nil {
			return fmt.Errorf("failed to apply balance deltas: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListGroupPayments retrieves all payments for a group, newest first.
func (s *SQLiteStore) ListGroupPayments(ctx context.Context, groupID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer_id, recipient_id, amount, note, created_at
		 FROM payments WHERE group_id = ?
		 ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment := &models.Payment{}
		if err := rows.Scan(&payment.ID, &payment.GroupID, &payment.PayerID, &payment.RecipientID,
			&payment.Amount, &payment.Note, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}
