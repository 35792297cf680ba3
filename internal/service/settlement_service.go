// Package service implements the application workflows on top of the ledger
// engines and the storage layer. Handlers stay thin; membership checks,
// split computation, and the payment rules all live here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/models"
	"github.com/centsible-app/centsible/internal/storage"
)

// ErrNotMember is returned when a user acts on a group they do not belong to.
var ErrNotMember = errors.New("user is not a member of this group")

// SettlementService records expenses and payments against the group ledger
// and serves the consolidated balance views.
type SettlementService struct {
	store storage.Store
}

// NewSettlementService creates a new SettlementService with the given storage backend.
func NewSettlementService(store storage.Store) *SettlementService {
	return &SettlementService{store: store}
}

// ExpenseInput carries a validated expense request into the settlement flow.
// Amounts are minor units. When SplitEqual is set the expense is divided
// evenly among all group members and Allocations is ignored.
type ExpenseInput struct {
	GroupID     string
	PayerID     string
	Description string
	TotalAmount int64
	Category    string
	Note        string
	SpentAt     int64
	SplitEqual  bool
	Allocations []ledger.Allocation
}

// PaymentInput carries a settle-up request. The payer is always the
// authenticated user, so it is not part of the input.
type PaymentInput struct {
	GroupID     string
	RecipientID string
	Amount      int64
	Note        string
}

// BalanceEdge is a debt edge as rendered to clients.
type BalanceEdge struct {
	GroupID    string `json:"group_id"`
	LenderID   string `json:"lender_id"`
	BorrowerID string `json:"borrower_id"`
	Amount     int64  `json:"amount"`
}

// MemberBalance summarizes one member's position inside a group.
type MemberBalance struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	Owed        int64  `json:"owed"`
	Owes        int64  `json:"owes"`
	Net         int64  `json:"net"`
}

// GroupBalances is the consolidated balance view of a group.
type GroupBalances struct {
	GroupID string          `json:"group_id"`
	Members []MemberBalance `json:"members"`
	Edges   []BalanceEdge   `json:"edges"`
}

// UserBalance aggregates a user's debts across all their groups. It is a
// display summary only; debts are never netted across group boundaries.
type UserBalance struct {
	UserID   string        `json:"user_id"`
	OwedToMe int64         `json:"owed_to_me"`
	OwedByMe int64         `json:"owed_by_me"`
	Net      int64         `json:"net"`
	Edges    []BalanceEdge `json:"edges"`
}

// AuditReport is the outcome of replaying a group's full history into a
// fresh edge set and comparing it with the stored balances. The two always
// match unless the store was modified outside the recording workflows.
type AuditReport struct {
	GroupID      string        `json:"group_id"`
	ExpenseCount int           `json:"expense_count"`
	PaymentCount int           `json:"payment_count"`
	Consistent   bool          `json:"consistent"`
	Stored       []BalanceEdge `json:"stored"`
	Replayed     []BalanceEdge `json:"replayed"`
}

// RecordExpense splits an expense among its participants and shifts the
// group's balances toward the payer, all in one transaction. The returned
// expense carries the computed per-member breakdown.
func (s *SettlementService) RecordExpense(ctx context.Context, actorID string, in ExpenseInput) (*models.Expense, error) {
	slog.Info("RecordExpense request received",
		"group_id", in.GroupID,
		"payer_id", in.PayerID,
		"total_amount", in.TotalAmount,
	)

	group, err := s.memberGroup(ctx, in.GroupID, actorID)
	if err != nil {
		return nil, err
	}

	if in.PayerID == "" {
		in.PayerID = actorID
	}
	if !group.IsMember(in.PayerID) {
		return nil, fmt.Errorf("%w: payer %s is not a group member", ledger.ErrInvalidParticipant, in.PayerID)
	}

	allocs := in.Allocations
	method := "custom"
	if in.SplitEqual {
		method = "equal"
		allocs = make([]ledger.Allocation, len(group.Members))
		for i, id := range group.Members {
			allocs[i] = ledger.Remainder(id)
		}
	} else {
		for _, a := range allocs {
			if !group.IsMember(a.MemberID) {
				return nil, fmt.Errorf("%w: participant %s is not a group member", ledger.ErrInvalidParticipant, a.MemberID)
			}
		}
	}

	shares, err := ledger.ComputeSplits(in.TotalAmount, allocs)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		PayerID:     in.PayerID,
		Description: in.Description,
		TotalAmount: in.TotalAmount,
		Category:    in.Category,
		Note:        in.Note,
		SplitMethod: method,
		SpentAt:     in.SpentAt,
		Splits:      make([]models.SplitAllocation, 0, len(shares)),
	}
	for _, share := range shares {
		role := models.RoleOwer
		if share.MemberID == in.PayerID {
			role = models.RolePayer
		}
		expense.Splits = append(expense.Splits, models.SplitAllocation{
			MemberID:    share.MemberID,
			ShareAmount: share.Amount,
			Role:        role,
		})
	}

	err = s.store.RecordExpense(ctx, expense, func(edges ledger.EdgeStore) error {
		// The payer's own share never becomes a debt, and zero shares move
		// nothing.
		for _, share := range shares {
			if share.MemberID == in.PayerID || share.Amount == 0 {
				continue
			}
			if _, err := ledger.ApplyDelta(ctx, edges, in.GroupID, share.MemberID, in.PayerID, share.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("RecordExpense failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	slog.Info("Expense recorded",
		"expense_id", expense.ID,
		"group_id", in.GroupID,
		"total_amount", in.TotalAmount,
		"shares", len(shares),
	)
	return expense, nil
}

// RecordPayment settles (part of) an existing debt from the payer to the
// recipient. Payments that exceed the outstanding debt, or that have no debt
// to settle, are rejected before anything is written. Returns the payment
// and the pair's remaining edge, nil when the debt is fully settled.
func (s *SettlementService) RecordPayment(ctx context.Context, payerID string, in PaymentInput) (*models.Payment, *ledger.Edge, error) {
	slog.Info("RecordPayment request received",
		"group_id", in.GroupID,
		"payer_id", payerID,
		"recipient_id", in.RecipientID,
		"amount", in.Amount,
	)

	group, err := s.memberGroup(ctx, in.GroupID, payerID)
	if err != nil {
		return nil, nil, err
	}
	if in.RecipientID == payerID {
		return nil, nil, fmt.Errorf("%w: payer and recipient are the same member", ledger.ErrInvalidParticipant)
	}
	if !group.IsMember(in.RecipientID) {
		return nil, nil, fmt.Errorf("%w: recipient %s is not a group member", ledger.ErrInvalidParticipant, in.RecipientID)
	}
	if in.Amount <= 0 {
		return nil, nil, fmt.Errorf("%w: payment amount must be positive, got %d", ledger.ErrNegativeValue, in.Amount)
	}

	payment := &models.Payment{
		GroupID:     in.GroupID,
		PayerID:     payerID,
		RecipientID: in.RecipientID,
		Amount:      in.Amount,
		Note:        in.Note,
	}

	// The debt check runs inside the same transaction as the write, against
	// the transaction's view of the edge, so a concurrent payment cannot
	// sneak the balance out from under it.
	var remaining *ledger.Edge
	err = s.store.RecordPayment(ctx, payment, func(edges ledger.EdgeStore) error {
		edge, err := edges.GetEdge(ctx, in.GroupID, payerID, in.RecipientID)
		if err != nil {
			return err
		}
		if edge == nil || edge.BorrowerID != payerID {
			return fmt.Errorf("%w: %s owes %s nothing in this group", ledger.ErrNoExistingDebt, payerID, in.RecipientID)
		}
		if in.Amount > edge.Amount {
			return fmt.Errorf("%w: outstanding debt is %d, payment is %d", ledger.ErrExceedsDebt, edge.Amount, in.Amount)
		}
		remaining, err = ledger.ApplyDelta(ctx, edges, in.GroupID, payerID, in.RecipientID, -in.Amount)
		return err
	})
	if err != nil {
		slog.Error("RecordPayment failed", "group_id", in.GroupID, "error", err)
		return nil, nil, err
	}

	slog.Info("Payment recorded",
		"payment_id", payment.ID,
		"group_id", in.GroupID,
		"amount", in.Amount,
		"settled", remaining == nil,
	)
	return payment, remaining, nil
}

// GroupBalances returns the group's edges plus a per-member owed/owes/net
// summary, members in join order.
func (s *SettlementService) GroupBalances(ctx context.Context, actorID, groupID string) (*GroupBalances, error) {
	group, err := s.memberGroup(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.ListGroupEdges(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	users, err := s.store.GetUsersByIDs(ctx, group.Members)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	owed := make(map[string]int64)
	owes := make(map[string]int64)
	for _, edge := range edges {
		owed[edge.LenderID] += edge.Amount
		owes[edge.BorrowerID] += edge.Amount
	}

	members := make([]MemberBalance, 0, len(group.Members))
	for _, id := range group.Members {
		balance := MemberBalance{
			MemberID: id,
			Owed:     owed[id],
			Owes:     owes[id],
			Net:      owed[id] - owes[id],
		}
		if user, ok := users[id]; ok {
			balance.DisplayName = user.DisplayName
		}
		members = append(members, balance)
	}

	return &GroupBalances{
		GroupID: groupID,
		Members: members,
		Edges:   toBalanceEdges(edges),
	}, nil
}

// UserBalance returns the user's debts summed across all their groups.
func (s *SettlementService) UserBalance(ctx context.Context, userID string) (*UserBalance, error) {
	edges, err := s.store.ListUserEdges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	balance := &UserBalance{
		UserID: userID,
		Edges:  toBalanceEdges(edges),
	}
	for _, edge := range edges {
		if edge.LenderID == userID {
			balance.OwedToMe += edge.Amount
		} else {
			balance.OwedByMe += edge.Amount
		}
	}
	balance.Net = balance.OwedToMe - balance.OwedByMe
	return balance, nil
}

// GroupExpenses returns a group's expenses newest first, splits included.
func (s *SettlementService) GroupExpenses(ctx context.Context, actorID, groupID string) ([]*models.Expense, error) {
	if _, err := s.memberGroup(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListGroupExpenses(ctx, groupID)
}

// GroupPayments returns a group's payments newest first.
func (s *SettlementService) GroupPayments(ctx context.Context, actorID, groupID string) ([]*models.Payment, error) {
	if _, err := s.memberGroup(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListGroupPayments(ctx, groupID)
}

// ActivityFeed returns the newest expenses and payments across the user's
// groups, merged into a single list.
func (s *SettlementService) ActivityFeed(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	return s.store.ListUserActivity(ctx, userID, limit)
}

// AuditGroup replays every expense and payment of a group into a fresh edge
// set and compares the result with the stored balances. Consolidation is
// order-independent per pair, so the replay reproduces the live edges
// exactly whenever the store is intact.
func (s *SettlementService) AuditGroup(ctx context.Context, actorID, groupID string) (*AuditReport, error) {
	if _, err := s.memberGroup(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	payments, err := s.store.ListGroupPayments(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	replay := ledger.NewEdgeSet()
	for _, expense := range expenses {
		for _, split := range expense.Splits {
			if split.MemberID == expense.PayerID || split.ShareAmount == 0 {
				continue
			}
			if _, err := ledger.ApplyDelta(ctx, replay, groupID, split.MemberID, expense.PayerID, split.ShareAmount); err != nil {
				return nil, fmt.Errorf("failed to replay expense %s: %w", expense.ID, err)
			}
		}
	}
	for _, payment := range payments {
		if _, err := ledger.ApplyDelta(ctx, replay, groupID, payment.PayerID, payment.RecipientID, -payment.Amount); err != nil {
			return nil, fmt.Errorf("failed to replay payment %s: %w", payment.ID, err)
		}
	}

	stored, err := s.store.ListGroupEdges(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	replayed := replay.Snapshot()

	report := &AuditReport{
		GroupID:      groupID,
		ExpenseCount: len(expenses),
		PaymentCount: len(payments),
		Consistent:   edgesEqual(stored, replayed),
		Stored:       toBalanceEdges(stored),
		Replayed:     toBalanceEdges(replayed),
	}
	if !report.Consistent {
		slog.Warn("Ledger audit found a mismatch",
			"group_id", groupID,
			"stored_edges", len(stored),
			"replayed_edges", len(replayed),
		)
	}
	return report, nil
}

// memberGroup loads a group and verifies the user belongs to it.
func (s *SettlementService) memberGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotMember)
	}
	return group, nil
}

func toBalanceEdges(edges []ledger.Edge) []BalanceEdge {
	out := make([]BalanceEdge, len(edges))
	for i, edge := range edges {
		out[i] = BalanceEdge{
			GroupID:    edge.GroupID,
			LenderID:   edge.LenderID,
			BorrowerID: edge.BorrowerID,
			Amount:     edge.Amount,
		}
	}
	return out
}

// edgesEqual compares two edge lists already in canonical order.
func edgesEqual(a, b []ledger.Edge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
