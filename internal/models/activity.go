package models

// ActivityType discriminates feed entries.
type ActivityType string

const (
	// ActivityExpense is a feed entry derived from an expense.
	ActivityExpense ActivityType = "expense"
	// ActivityPayment is a feed entry derived from a payment.
	ActivityPayment ActivityType = "payment"
)

// Activity is a read-only feed entry derived from the expense and payment
// history of a user's groups. It carries just enough to render a feed line.
type Activity struct {
	Type        ActivityType `json:"type"`
	GroupID     string       `json:"group_id"`
	GroupName   string       `json:"group_name"`
	ActorID     string       `json:"actor_id"`
	Description string       `json:"description"`

	// Amount is the expense total or payment amount in minor units.
	Amount int64 `json:"amount"`

	CreatedAt int64 `json:"created_at"`
}
