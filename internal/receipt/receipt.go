// Package receipt extracts the payable total from OCR'd receipt text. The
// OCR itself happens client-side; this package only has to find the right
// number in noisy text.
package receipt

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoTotal is returned when the text contains no recognizable total.
var ErrNoTotal = errors.New("no total amount found")

// totalKeywords mark lines that carry the payable total. Matched
// case-insensitively as substrings.
var totalKeywords = []string{"total", "balance due", "amount due"}

// amountPattern matches currency amounts like "123.45", "$1,234.56", "50".
var amountPattern = regexp.MustCompile(`\$?\s*((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?)`)

// FindTotal scans receipt text for the total, returning it in minor units.
// Lines mentioning a total keyword win over everything else, subtotal lines
// never count, and a keyword line without an inline amount takes the amount
// from the next non-empty line (OCR often breaks label and value apart).
// When several keyword lines carry amounts the last one wins; receipts put
// the grand total at the bottom.
func FindTotal(text string) (int64, error) {
	lines := strings.Split(text, "\n")

	var total int64
	found := false
	for i, line := range lines {
		if !isTotalLine(line) {
			continue
		}
		if amount, ok := ExtractAmount(line); ok {
			total, found = amount, true
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				continue
			}
			if amount, ok := ExtractAmount(next); ok {
				total, found = amount, true
			}
			break
		}
	}

	if !found {
		return 0, ErrNoTotal
	}
	return total, nil
}

// ExtractAmount finds the currency amount on a single line and returns it in
// minor units. When a line holds several numbers the last one is taken, since
// quantities and item numbers come before prices.
func ExtractAmount(line string) (int64, bool) {
	matches := amountPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	raw := strings.ReplaceAll(matches[len(matches)-1][1], ",", "")

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	return d.Shift(2).IntPart(), true
}

// isTotalLine reports whether the line names the payable total. Subtotal
// lines in any spelling (Subtotal, Sub-Total, Sub Total) are excluded.
func isTotalLine(line string) bool {
	lower := strings.ToLower(line)
	squashed := strings.NewReplacer("-", "", " ", "").Replace(lower)
	if strings.Contains(squashed, "subtotal") {
		return false
	}
	for _, keyword := range totalKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
