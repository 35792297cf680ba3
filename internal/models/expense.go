package models

// SplitRole distinguishes the payer's own share from the shares owed to
// them.
type SplitRole string

const (
	// RolePayer marks the share belonging to the member who paid.
	RolePayer SplitRole = "payer"
	// RoleOwer marks a share owed to the payer.
	RoleOwer SplitRole = "ower"
)

// Expense represents a shared cost paid by one member on behalf of the
// group. Expenses are append-only ledger entries: never updated, never
// deleted. Correcting a mistake means recording a compensating entry.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// GroupID is the group this expense belongs to.
	GroupID string `json:"group_id"`

	// PayerID is the member who fronted the money.
	PayerID string `json:"payer_id"`

	// Description is the human-readable label (e.g., "Groceries").
	Description string `json:"description"`

	// TotalAmount is the full expense amount in minor units, always >= 1.
	TotalAmount int64 `json:"total_amount"`

	// Category is an optional expense category (e.g., "food", "rent").
	Category string `json:"category,omitempty"`

	// Note is an optional free-form note.
	Note string `json:"note,omitempty"`

	// SplitMethod records how the split was configured ("equal" or
	// "custom"). Display metadata only; the authoritative breakdown is the
	// Splits rows.
	SplitMethod string `json:"split_method"`

	// SpentAt is the Unix timestamp the money was actually spent, when the
	// user provided one. Zero means unknown.
	SpentAt int64 `json:"spent_at,omitempty"`

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64 `json:"created_at"`

	// Splits holds the per-member share breakdown, populated on reads.
	Splits []SplitAllocation `json:"splits,omitempty"`
}

// SplitAllocation is one member's computed share of an expense. The shares
// of an expense always sum to its TotalAmount exactly; no minor unit is ever
// lost to rounding.
type SplitAllocation struct {
	// ExpenseID is the expense this share belongs to.
	ExpenseID string `json:"expense_id"`

	// MemberID is the member who owes this share.
	MemberID string `json:"member_id"`

	// ShareAmount is the share in minor units, >= 0.
	ShareAmount int64 `json:"share_amount"`

	// Role is RolePayer for the payer's own share, RoleOwer otherwise.
	Role SplitRole `json:"role"`
}
