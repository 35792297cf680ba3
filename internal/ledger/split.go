// Package ledger implements the debt-ledger core: splitting an expense total
// into exact minor-unit shares and consolidating pairwise obligations so that
// at most one directed debt exists between any two members of a group.
//
// All amounts are integer minor units (cents). Percentages are
// decimal.Decimal values, never floats, so identical inputs always produce
// identical shares.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// AllocationKind selects how a participant's share of an expense is derived.
type AllocationKind int

const (
	// KindFixed assigns an exact minor-unit amount.
	KindFixed AllocationKind = iota
	// KindPercent assigns floor(total * percent / 100) minor units.
	KindPercent
	// KindRemainder splits whatever is left after fixed and percent shares.
	KindRemainder
)

// Allocation is one participant's split instruction for an expense. Exactly
// one strategy applies, selected by Kind; the constructors below keep the
// unused fields zero.
type Allocation struct {
	MemberID string
	Kind     AllocationKind
	Amount   int64           // minor units, KindFixed only
	Percent  decimal.Decimal // KindPercent only
}

// Fixed allocates an exact minor-unit amount to a member.
func Fixed(memberID string, amount int64) Allocation {
	return Allocation{MemberID: memberID, Kind: KindFixed, Amount: amount}
}

// Percent allocates a percentage of the expense total to a member.
func Percent(memberID string, pct decimal.Decimal) Allocation {
	return Allocation{MemberID: memberID, Kind: KindPercent, Percent: pct}
}

// Remainder marks a member as absorbing an even part of whatever is left
// once all fixed and percent allocations are resolved.
func Remainder(memberID string) Allocation {
	return Allocation{MemberID: memberID, Kind: KindRemainder}
}

// Share is one participant's computed portion of an expense total.
type Share struct {
	MemberID string
	Amount   int64 // minor units, >= 0
}

var oneHundred = decimal.NewFromInt(100)

// ComputeSplits divides total minor units among the given allocations and
// returns one share per participant, fixed shares first, then percent, then
// remainder, preserving input order within each class. The returned shares
// always sum to total exactly; leftover minor units after integer division go
// to the remainder members with the lowest ids, so the result is
// deterministic. ComputeSplits performs no I/O and is safe to call
// concurrently.
func ComputeSplits(total int64, allocs []Allocation) ([]Share, error) {
	if total < 1 {
		return nil, fmt.Errorf("%w: expense total must be at least 1 minor unit, got %d", ErrNegativeValue, total)
	}
	if len(allocs) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidParticipant)
	}

	seen := make(map[string]bool, len(allocs))
	for _, a := range allocs {
		if a.MemberID == "" {
			return nil, fmt.Errorf("%w: empty member id", ErrInvalidParticipant)
		}
		if seen[a.MemberID] {
			return nil, fmt.Errorf("%w: duplicate member %q", ErrInvalidParticipant, a.MemberID)
		}
		seen[a.MemberID] = true
	}

	var (
		fixed      []Share
		percents   []Share
		remainders []string
		fixedSum   int64
		percentSum int64
		pctTotal   = decimal.Zero
	)
	for _, a := range allocs {
		switch a.Kind {
		case KindFixed:
			if a.Amount < 0 {
				return nil, fmt.Errorf("%w: fixed amount %d for member %q", ErrNegativeValue, a.Amount, a.MemberID)
			}
			fixedSum += a.Amount
			fixed = append(fixed, Share{MemberID: a.MemberID, Amount: a.Amount})
		case KindPercent:
			if a.Percent.IsNegative() {
				return nil, fmt.Errorf("%w: percentage %s for member %q", ErrNegativeValue, a.Percent, a.MemberID)
			}
			pctTotal = pctTotal.Add(a.Percent)
			// floor(total * pct / 100); Shift(-2) divides by 100 exactly.
			share := decimal.NewFromInt(total).Mul(a.Percent).Shift(-2).Floor().IntPart()
			percentSum += share
			percents = append(percents, Share{MemberID: a.MemberID, Amount: share})
		case KindRemainder:
			remainders = append(remainders, a.MemberID)
		default:
			return nil, fmt.Errorf("%w: unknown allocation kind %d", ErrInvalidParticipant, a.Kind)
		}
	}

	if pctTotal.GreaterThan(oneHundred) {
		return nil, fmt.Errorf("%w: percentages sum to %s", ErrOverAllocated, pctTotal)
	}
	if fixedSum > total {
		return nil, fmt.Errorf("%w: fixed amounts sum to %d of total %d", ErrOverAllocated, fixedSum, total)
	}
	if fixedSum+percentSum > total {
		return nil, fmt.Errorf("%w: fixed and percentage shares sum to %d of total %d", ErrOverAllocated, fixedSum+percentSum, total)
	}

	remaining := total - fixedSum - percentSum
	shares := append(fixed, percents...)

	if len(remainders) == 0 {
		if remaining != 0 {
			return nil, fmt.Errorf("%w: %d minor units left unallocated", ErrNoRemainderTarget, remaining)
		}
		mustSumTo(total, shares)
		return shares, nil
	}

	base := remaining / int64(len(remainders))
	extra := remaining % int64(len(remainders))

	// The leftover minor units go to the lowest member ids.
	ordered := append([]string(nil), remainders...)
	sort.Strings(ordered)
	bonus := make(map[string]int64, extra)
	for i := int64(0); i < extra; i++ {
		bonus[ordered[i]] = 1
	}

	for _, id := range remainders {
		shares = append(shares, Share{MemberID: id, Amount: base + bonus[id]})
	}
	mustSumTo(total, shares)
	return shares, nil
}

// mustSumTo enforces the sum postcondition. A mismatch means the split
// algorithm itself is broken, not that the input was bad.
func mustSumTo(total int64, shares []Share) {
	var sum int64
	for _, s := range shares {
		sum += s.Amount
	}
	if sum != total {
		panic(fmt.Sprintf("ledger: computed shares sum to %d, want %d", sum, total))
	}
}
