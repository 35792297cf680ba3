package ledger

import "errors"

// Validation errors surfaced to callers. Inputs that fail these checks are
// rejected without touching any state; the engine never substitutes a "best
// guess" allocation. Invariant violations inside the engine itself are bugs
// and panic instead of returning an error.
var (
	// ErrInvalidParticipant indicates an empty participant list, a duplicate
	// or empty member id, or the same member on both sides of a balance.
	ErrInvalidParticipant = errors.New("invalid participant")

	// ErrNegativeValue indicates a negative fixed amount or percentage, or a
	// non-positive total or payment amount.
	ErrNegativeValue = errors.New("negative value")

	// ErrOverAllocated indicates fixed and percentage allocations that exceed
	// the expense total, or percentages that sum past 100.
	ErrOverAllocated = errors.New("over-allocated")

	// ErrNoRemainderTarget indicates leftover minor units with no remainder
	// participant to absorb them.
	ErrNoRemainderTarget = errors.New("no remainder target")

	// ErrNoExistingDebt indicates a payment where the payer owes the
	// recipient nothing.
	ErrNoExistingDebt = errors.New("no existing debt")

	// ErrExceedsDebt indicates a payment larger than the outstanding debt.
	ErrExceedsDebt = errors.New("payment exceeds debt")
)
