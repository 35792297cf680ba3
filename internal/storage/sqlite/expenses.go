package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/models"
)

// RecordExpense persists an expense and its split allocations, then runs
// apply against the same transaction so the balance deltas commit or roll
// back together with the expense.
func (s *SQLiteStore) RecordExpense(ctx context.Context, expense *models.Expense, apply func(ledger.EdgeStore) error) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, payer_id, description, total_amount, category, note, split_method, spent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PayerID, expense.Description, expense.TotalAmount,
		expense.Category, expense.Note, expense.SplitMethod, expense.SpentAt, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		split.ExpenseID = expense.ID

		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, member_id, share_amount, role) VALUES (?, ?, ?, ?)",
			split.ExpenseID, split.MemberID, split.ShareAmount, string(split.Role),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
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

// ListGroupExpenses retrieves a group's expenses, newest first, with their
// split allocations populated.
func (s *SQLiteStore) ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer_id, description, total_amount, category, note, split_method, spent_at, created_at
		 FROM expenses WHERE group_id = ?
		 ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Description,
			&expense.TotalAmount, &expense.Category, &expense.Note, &expense.SplitMethod,
			&expense.SpentAt, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if len(expenses) == 0 {
		return expenses, nil
	}

	splitRows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, member_id, share_amount, role
		 FROM expense_splits
		 WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)
		 ORDER BY expense_id, member_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var split models.SplitAllocation
		var role string
		if err := splitRows.Scan(&split.ExpenseID, &split.MemberID, &split.ShareAmount, &role); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		split.Role = models.SplitRole(role)
		if expense, ok := byID[split.ExpenseID]; ok {
			expense.Splits = append(expense.Splits, split)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return expenses, nil
}
