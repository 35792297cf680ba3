package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/centsible-app/centsible/internal/ledger"
)

// edgeTx adapts a transaction to the ledger.EdgeStore interface, so the
// consolidation engine's read-modify-write runs inside the same transaction
// as the expense or payment that triggered it.
type edgeTx struct {
	tx *sql.Tx
}

var _ ledger.EdgeStore = (*edgeTx)(nil)

func (e *edgeTx) GetEdge(ctx context.Context, groupID, memberA, memberB string) (*ledger.Edge, error) {
	lo, hi := ledger.NormalizePair(memberA, memberB)

	edge := &ledger.Edge{GroupID: groupID}
	err := e.tx.QueryRowContext(ctx,
		"SELECT lender_id, borrower_id, amount FROM balances WHERE group_id = ? AND pair_lo = ? AND pair_hi = ?",
		groupID, lo, hi,
	).Scan(&edge.LenderID, &edge.BorrowerID, &edge.Amount)

	if err == sql.ErrNoRows {
		return nil, nil // no edge for this pair
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return edge, nil
}

func (e *edgeTx) PutEdge(ctx context.Context, edge ledger.Edge) error {
	lo, hi := ledger.NormalizePair(edge.LenderID, edge.BorrowerID)

	_, err := e.tx.ExecContext(ctx,
		`INSERT INTO balances (group_id, pair_lo, pair_hi, lender_id, borrower_id, amount, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (group_id, pair_lo, pair_hi) DO UPDATE SET
		    lender_id = excluded.lender_id,
		    borrower_id = excluded.borrower_id,
		    amount = excluded.amount,
		    updated_at = excluded.updated_at`,
		edge.GroupID, lo, hi, edge.LenderID, edge.BorrowerID, edge.Amount, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

func (e *edgeTx) DeleteEdge(ctx context.Context, groupID, memberA, memberB string) error {
	lo, hi := ledger.NormalizePair(memberA, memberB)

	_, err := e.tx.ExecContext(ctx,
		"DELETE FROM balances WHERE group_id = ? AND pair_lo = ? AND pair_hi = ?",
		groupID, lo, hi,
	)
	if err != nil {
		return fmt.Errorf("failed to delete balance: %w", err)
	}
	return nil
}

// ListGroupEdges retrieves every balance edge of a group, ordered by pair.
func (s *SQLiteStore) ListGroupEdges(ctx context.Context, groupID string) ([]ledger.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, lender_id, borrower_id, amount
		 FROM balances WHERE group_id = ?
		 ORDER BY pair_lo, pair_hi`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	return scanEdges(rows)
}

// ListUserEdges retrieves every balance edge, across all groups, where the
// user is lender or borrower.
func (s *SQLiteStore) ListUserEdges(ctx context.Context, userID string) ([]ledger.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, lender_id, borrower_id, amount
		 FROM balances WHERE lender_id = ? OR borrower_id = ?
		 ORDER BY group_id, pair_lo, pair_hi`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]ledger.Edge, error) {
	defer rows.Close()

	var edges []ledger.Edge
	for rows.Next() {
		var edge ledger.Edge
		if err := rows.Scan(&edge.GroupID, &edge.LenderID, &edge.BorrowerID, &edge.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	return edges, nil
}
