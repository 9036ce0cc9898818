package numeric

import "github.com/shopspring/decimal"

// HumanMagnitude renders |v| with the largest of Cr, L or K that applies,
// using two decimals. Smaller values are printed bare, with two decimals
// only when they are not whole numbers.
func HumanMagnitude(v decimal.Decimal) string {
	a := v.Abs()
	switch {
	case a.GreaterThanOrEqual(crore):
		return a.Div(crore).StringFixed(2) + "Cr"
	case a.GreaterThanOrEqual(lakh):
		return a.Div(lakh).StringFixed(2) + "L"
	case a.GreaterThanOrEqual(thousand):
		return a.Div(thousand).StringFixed(2) + "K"
	case a.IsInteger():
		return a.String()
	default:
		return a.StringFixed(2)
	}
}

// HumanCount is HumanMagnitude for integer counts.
func HumanCount(n int64) string {
	return HumanMagnitude(decimal.NewFromInt(n))
}

// SignedOIDelta prefixes HumanCount(|n|) with the sign of n. Zero is "+".
func SignedOIDelta(n int64) string {
	return sign(n >= 0) + HumanCount(n)
}

// SignedLTPDelta renders a price change as a sign and two decimals.
func SignedLTPDelta(d decimal.Decimal) string {
	return sign(!d.IsNegative()) + d.Abs().StringFixed(2)
}

// FormatPrice renders a price with two decimals.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func sign(nonNegative bool) string {
	if nonNegative {
		return "+"
	}
	return "-"
}
