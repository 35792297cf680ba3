package ledger

import (
	"context"
	"fmt"
)

// Edge is the single canonical balance between two members of a group:
// BorrowerID owes LenderID Amount minor units. Amount is strictly positive;
// a balance that reaches zero is deleted rather than stored.
type Edge struct {
	GroupID    string
	LenderID   string
	BorrowerID string
	Amount     int64
}

// EdgeStore is the point read/write/delete surface ApplyDelta works against.
// Edges are addressed by group and unordered member pair, so GetEdge and
// DeleteEdge accept the two members in either order. GetEdge returns nil with
// no error when the pair has no edge. Implementations supply the
// transactional scope; ApplyDelta does no locking of its own.
type EdgeStore interface {
	GetEdge(ctx context.Context, groupID, memberA, memberB string) (*Edge, error)
	PutEdge(ctx context.Context, edge Edge) error
	DeleteEdge(ctx context.Context, groupID, memberA, memberB string) error
}

// NormalizePair orders two member ids so that (a, b) and (b, a) address the
// same edge.
func NormalizePair(a, b string) (lo, hi string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ApplyDelta records that the obligation of fromID toward toID changed by
// delta minor units: positive deltas grow the debt, negative deltas shrink it
// and can flip its direction. Whatever edge existed for the pair, the pair
// ends up with zero or one edge carrying a strictly positive amount. The
// resulting edge is returned, nil when the pair is settled.
//
// The read-modify-write must run inside the caller's transaction scope;
// concurrent calls for the same pair are only safe when the store serializes
// them.
func ApplyDelta(ctx context.Context, edges EdgeStore, groupID, fromID, toID string, delta int64) (*Edge, error) {
	if groupID == "" || fromID == "" || toID == "" {
		return nil, fmt.Errorf("%w: empty group or member id", ErrInvalidParticipant)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: member %q on both sides of a balance", ErrInvalidParticipant, fromID)
	}

	existing, err := edges.GetEdge(ctx, groupID, fromID, toID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	switch {
	case existing == nil:
		if delta == 0 {
			return nil, nil
		}
		edge := Edge{GroupID: groupID, LenderID: toID, BorrowerID: fromID, Amount: delta}
		if delta < 0 {
			// A credit against a clean pair becomes a debt in the other
			// direction: the recipient now owes the excess back.
			edge = Edge{GroupID: groupID, LenderID: fromID, BorrowerID: toID, Amount: -delta}
		}
		if err := putEdge(ctx, edges, edge); err != nil {
			return nil, err
		}
		return &edge, nil

	case existing.BorrowerID == fromID:
		// Same direction: fromID already owes toID.
		next := existing.Amount + delta
		if next > 0 {
			edge := *existing
			edge.Amount = next
			if err := putEdge(ctx, edges, edge); err != nil {
				return nil, err
			}
			return &edge, nil
		}
		if err := deleteEdge(ctx, edges, groupID, fromID, toID); err != nil {
			return nil, err
		}
		if next == 0 {
			return nil, nil
		}
		edge := Edge{GroupID: groupID, LenderID: fromID, BorrowerID: toID, Amount: -next}
		if err := putEdge(ctx, edges, edge); err != nil {
			return nil, err
		}
		return &edge, nil

	default:
		// Opposite direction: toID currently owes fromID, so the delta pays
		// that debt down before any new debt arises.
		if existing.LenderID != fromID {
			panic(fmt.Sprintf("ledger: edge for pair (%s, %s) holds members (%s, %s)",
				fromID, toID, existing.LenderID, existing.BorrowerID))
		}
		next := existing.Amount - delta
		if next > 0 {
			edge := *existing
			edge.Amount = next
			if err := putEdge(ctx, edges, edge); err != nil {
				return nil, err
			}
			return &edge, nil
		}
		if err := deleteEdge(ctx, edges, groupID, fromID, toID); err != nil {
			return nil, err
		}
		if next == 0 {
			return nil, nil
		}
		edge := Edge{GroupID: groupID, LenderID: toID, BorrowerID: fromID, Amount: -next}
		if err := putEdge(ctx, edges, edge); err != nil {
			return nil, err
		}
		return &edge, nil
	}
}

func putEdge(ctx context.Context, edges EdgeStore, edge Edge) error {
	if edge.Amount <= 0 {
		panic(fmt.Sprintf("ledger: storing non-positive balance %d for group %s", edge.Amount, edge.GroupID))
	}
	if err := edges.PutEdge(ctx, edge); err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

func deleteEdge(ctx context.Context, edges EdgeStore, groupID, memberA, memberB string) error {
	if err := edges.DeleteEdge(ctx, groupID, memberA, memberB); err != nil {
		return fmt.Errorf("failed to delete balance: %w", err)
	}
	return nil
}
