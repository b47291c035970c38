// Package core holds the utility-billing domain model and the pure
// calculation engine that turns meter readings and tariff configuration
// into a cost breakdown.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseReading parses raw user input for a meter value or amount. Both
// dot and comma decimal separators are accepted (commas are normalized
// to dots), and embedded spaces are ignored so grouped input like
// "1 234,5" parses as 1234.5. ok is false for empty or unparsable
// input; callers treat that as "no value entered", never as an error.
func ParseReading(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
