package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/middleware"
	"github.com/centsible-app/centsible/internal/models"
	"github.com/centsible-app/centsible/internal/service"
)

// SettlementHandler serves the expense, payment, balance, and activity
// endpoints. Amounts cross the wire as decimal strings ("25.50") and are
// converted to minor units at this boundary.
type SettlementHandler struct {
	settlements *service.SettlementService
}

// NewSettlementHandler creates a SettlementHandler on top of the given service.
func NewSettlementHandler(settlements *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// splitParticipant is one member's entry in a custom split config. Exactly
// one of fixed_amount, percent, or remainder must be set.
type splitParticipant struct {
	MemberID    string `json:"member_id"`
	FixedAmount string `json:"fixed_amount,omitempty"`
	Percent     string `json:"percent,omitempty"`
	Remainder   bool   `json:"remainder,omitempty"`
}

type splitConfig struct {
	Policy       string             `json:"policy" binding:"required"`
	Participants []splitParticipant `json:"participants,omitempty"`
}

type createExpenseRequest struct {
	GroupID     string      `json:"group_id" binding:"required"`
	PayerID     string      `json:"payer_id"`
	Description string      `json:"description" binding:"required"`
	Amount      string      `json:"amount" binding:"required"`
	Category    string      `json:"category"`
	Note        string      `json:"note"`
	SpentAt     int64       `json:"spent_at"`
	Split       splitConfig `json:"split" binding:"required"`
}

type createPaymentRequest struct {
	GroupID     string `json:"group_id" binding:"required"`
	RecipientID string `json:"recipient_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Note        string `json:"note"`
}

type splitResponse struct {
	MemberID    string `json:"member_id"`
	ShareAmount string `json:"share_amount"`
	Role        string `json:"role"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	Description string          `json:"description"`
	TotalAmount string          `json:"total_amount"`
	Category    string          `json:"category,omitempty"`
	Note        string          `json:"note,omitempty"`
	SplitMethod string          `json:"split_method"`
	SpentAt     int64           `json:"spent_at,omitempty"`
	CreatedAt   int64           `json:"created_at"`
	Splits      []splitResponse `json:"splits"`
}

type paymentResponse struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	PayerID     string `json:"payer_id"`
	RecipientID string `json:"recipient_id"`
	Amount      string `json:"amount"`
	Note        string `json:"note,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

type edgeResponse struct {
	GroupID    string `json:"group_id"`
	LenderID   string `json:"lender_id"`
	BorrowerID string `json:"borrower_id"`
	Amount     string `json:"amount"`
}

// createPaymentResponse reports the recorded payment and what is left of the
// debt it settled. Remaining is omitted when the debt is fully cleared.
type createPaymentResponse struct {
	Payment   paymentResponse `json:"payment"`
	Remaining *edgeResponse   `json:"remaining,omitempty"`
	Settled   bool            `json:"settled"`
}

type memberBalanceResponse struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	Owed        string `json:"owed"`
	Owes        string `json:"owes"`
	Net         string `json:"net"`
}

type groupBalancesResponse struct {
	GroupID string                  `json:"group_id"`
	Members []memberBalanceResponse `json:"members"`
	Edges   []edgeResponse          `json:"edges"`
}

type userBalanceResponse struct {
	UserID   string         `json:"user_id"`
	OwedToMe string         `json:"owed_to_me"`
	OwedByMe string         `json:"owed_by_me"`
	Net      string         `json:"net"`
	Edges    []edgeResponse `json:"edges"`
}

type activityResponse struct {
	Type        string `json:"type"`
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	ActorID     string `json:"actor_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	CreatedAt   int64  `json:"created_at"`
}

// CreateExpense records an expense and returns the computed breakdown.
func (h *SettlementHandler) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := parseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	equal, allocs, err := req.Split.toAllocations()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.settlements.RecordExpense(c.Request.Context(), middleware.GetUserID(c), service.ExpenseInput{
		GroupID:     req.GroupID,
		PayerID:     req.PayerID,
		Description: req.Description,
		TotalAmount: total,
		Category:    req.Category,
		Note:        req.Note,
		SpentAt:     req.SpentAt,
		SplitEqual:  equal,
		Allocations: allocs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

// CreatePayment records a settle-up payment against an existing debt.
func (h *SettlementHandler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, remaining, err := h.settlements.RecordPayment(c.Request.Context(), middleware.GetUserID(c), service.PaymentInput{
		GroupID:     req.GroupID,
		RecipientID: req.RecipientID,
		Amount:      amount,
		Note:        req.Note,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := createPaymentResponse{
		Payment: toPaymentResponse(payment),
		Settled: remaining == nil,
	}
	if remaining != nil {
		edge := toEdgeResponse(*remaining)
		resp.Remaining = &edge
	}
	c.JSON(http.StatusCreated, resp)
}

// GroupBalances returns a group's debt edges plus per-member summaries.
func (h *SettlementHandler) GroupBalances(c *gin.Context) {
	balances, err := h.settlements.GroupBalances(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := groupBalancesResponse{
		GroupID: balances.GroupID,
		Members: make([]memberBalanceResponse, 0, len(balances.Members)),
		Edges:   make([]edgeResponse, 0, len(balances.Edges)),
	}
	for _, m := range balances.Members {
		resp.Members = append(resp.Members, memberBalanceResponse{
			MemberID:    m.MemberID,
			DisplayName: m.DisplayName,
			Owed:        amountString(m.Owed),
			Owes:        amountString(m.Owes),
			Net:         amountString(m.Net),
		})
	}
	for _, e := range balances.Edges {
		resp.Edges = append(resp.Edges, edgeResponse{
			GroupID:    e.GroupID,
			LenderID:   e.LenderID,
			BorrowerID: e.BorrowerID,
			Amount:     amountString(e.Amount),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GroupExpenses returns a group's expenses, newest first.
func (h *SettlementHandler) GroupExpenses(c *gin.Context) {
	expenses, err := h.settlements.GroupExpenses(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"expenses": resp})
}

// GroupPayments returns a group's payments, newest first.
func (h *SettlementHandler) GroupPayments(c *gin.Context) {
	payments, err := h.settlements.GroupPayments(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"payments": resp})
}

// UserBalance returns the caller's debts summed across all their groups.
func (h *SettlementHandler) UserBalance(c *gin.Context) {
	balance, err := h.settlements.UserBalance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := userBalanceResponse{
		UserID:   balance.UserID,
		OwedToMe: amountString(balance.OwedToMe),
		OwedByMe: amountString(balance.OwedByMe),
		Net:      amountString(balance.Net),
		Edges:    make([]edgeResponse, 0, len(balance.Edges)),
	}
	for _, e := range balance.Edges {
		resp.Edges = append(resp.Edges, edgeResponse{
			GroupID:    e.GroupID,
			LenderID:   e.LenderID,
			BorrowerID: e.BorrowerID,
			Amount:     amountString(e.Amount),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Activity returns the newest expenses and payments across the caller's
// groups. The optional limit query parameter caps the feed length.
func (h *SettlementHandler) Activity(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	feed, err := h.settlements.ActivityFeed(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]activityResponse, 0, len(feed))
	for _, a := range feed {
		resp = append(resp, activityResponse{
			Type:        string(a.Type),
			GroupID:     a.GroupID,
			GroupName:   a.GroupName,
			ActorID:     a.ActorID,
			Description: a.Description,
			Amount:      amountString(a.Amount),
			CreatedAt:   a.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activity": resp})
}

// toAllocations translates a split config into ledger allocations. The
// "equal" policy is signaled back to the caller instead of expanded here,
// because only the service knows the group's member list.
func (cfg splitConfig) toAllocations() (equal bool, allocs []ledger.Allocation, err error) {
	switch cfg.Policy {
	case "equal":
		if len(cfg.Participants) > 0 {
			return false, nil, errors.New(`split policy "equal" takes no participants`)
		}
		return true, nil, nil
	case "custom":
		if len(cfg.Participants) == 0 {
			return false, nil, errors.New(`split policy "custom" requires participants`)
		}
		allocs = make([]ledger.Allocation, 0, len(cfg.Participants))
		for _, p := range cfg.Participants {
			alloc, err := p.toAllocation()
			if err != nil {
				return false, nil, err
			}
			allocs = append(allocs, alloc)
		}
		return false, allocs, nil
	default:
		return false, nil, fmt.Errorf("unknown split policy %q", cfg.Policy)
	}
}

func (p splitParticipant) toAllocation() (ledger.Allocation, error) {
	strategies := 0
	if p.FixedAmount != "" {
		strategies++
	}
	if p.Percent != "" {
		strategies++
	}
	if p.Remainder {
		strategies++
	}
	if strategies != 1 {
		return ledger.Allocation{}, fmt.Errorf("participant %q needs exactly one of fixed_amount, percent, remainder", p.MemberID)
	}

	switch {
	case p.FixedAmount != "":
		amount, err := parseAmount(p.FixedAmount)
		if err != nil {
			return ledger.Allocation{}, err
		}
		return ledger.Fixed(p.MemberID, amount), nil
	case p.Percent != "":
		pct, err := decimal.NewFromString(p.Percent)
		if err != nil {
			return ledger.Allocation{}, fmt.Errorf("invalid percent %q", p.Percent)
		}
		return ledger.Percent(p.MemberID, pct), nil
	default:
		return ledger.Remainder(p.MemberID), nil
	}
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		Description: e.Description,
		TotalAmount: amountString(e.TotalAmount),
		Category:    e.Category,
		Note:        e.Note,
		SplitMethod: e.SplitMethod,
		SpentAt:     e.SpentAt,
		CreatedAt:   e.CreatedAt,
		Splits:      make([]splitResponse, 0, len(e.Splits)),
	}
	for _, s := range e.Splits {
		resp.Splits = append(resp.Splits, splitResponse{
			MemberID:    s.MemberID,
			ShareAmount: amountString(s.ShareAmount),
			Role:        string(s.Role),
		})
	}
	return resp
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		GroupID:     p.GroupID,
		PayerID:     p.PayerID,
		RecipientID: p.RecipientID,
		Amount:      amountString(p.Amount),
		Note:        p.Note,
		CreatedAt:   p.CreatedAt,
	}
}

func toEdgeResponse(e ledger.Edge) edgeResponse {
	return edgeResponse{
		GroupID:    e.GroupID,
		LenderID:   e.LenderID,
		BorrowerID: e.BorrowerID,
		Amount:     amountString(e.Amount),
	}
}
