package models

// Payment represents a settle-up transfer between two group members: the
// payer hands money to the recipient to clear (part of) an existing debt.
// Like expenses, payments are append-only audit records.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string `json:"id"`

	// GroupID is the group whose balance the payment settles.
	GroupID string `json:"group_id"`

	// PayerID is the member handing over money (the borrower).
	PayerID string `json:"payer_id"`

	// RecipientID is the member being paid back (the lender).
	RecipientID string `json:"recipient_id"`

	// Amount is the payment amount in minor units, always > 0 and never
	// above the debt outstanding when it was recorded.
	Amount int64 `json:"amount"`

	// Note is an optional free-form note.
	Note string `json:"note,omitempty"`

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64 `json:"created_at"`
}
