// Package numeric converts option-chain cell text into exact values and
// renders values back into the abbreviated Indian notation used in reports.
package numeric

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	crore    = decimal.NewFromInt(10_000_000)
	lakh     = decimal.NewFromInt(100_000)
	thousand = decimal.NewFromInt(1_000)

	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// unit suffixes, longest first so "CR" is not read as a bare number.
var oiSuffixes = []struct {
	suffix string
	factor decimal.Decimal
}{
	{"CR", crore},
	{"L", lakh},
	{"K", thousand},
}

func isPlaceholder(t string) bool {
	return t == "" || t == "-" || t == "--"
}

// ParseOI reads an open interest cell such as "12,345", "1.5Cr", "2L" or
// "3K". The result is truncated toward zero. Text that cannot be read, even
// after dropping every character other than digits, '.' and '-', yields 0,
// as do values outside the int64 range.
func ParseOI(text string) int64 {
	t := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(text)), ",", "")
	if isPlaceholder(t) {
		return 0
	}
	if d, err := parseScaled(t); err == nil {
		return truncate(d)
	}
	if d, ok := parseFiltered(t); ok {
		return truncate(d)
	}
	return 0
}

// ParseLTP reads a last traded price cell. It accepts no unit suffixes and
// shares the placeholder and character filtering fallback of ParseOI.
func ParseLTP(text string) decimal.Decimal {
	t := strings.TrimSpace(text)
	if isPlaceholder(t) {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(t, ",", "")); err == nil {
		return d
	}
	if d, ok := parseFiltered(t); ok {
		return d
	}
	return decimal.Zero
}

func parseScaled(t string) (decimal.Decimal, error) {
	for _, s := range oiSuffixes {
		if strings.HasSuffix(t, s.suffix) {
			d, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(t, s.suffix)))
			if err != nil {
				return decimal.Zero, err
			}
			return d.Mul(s.factor), nil
		}
	}
	return decimal.NewFromString(t)
}

func parseFiltered(t string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range t {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func truncate(d decimal.Decimal) int64 {
	d = d.Truncate(0)
	if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return 0
	}
	return d.IntPart()
}
