package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"niftyflow/internal/numeric"
	"niftyflow/models"
)

const combinedRowFormat = "%8s | %7s | %7s | %-8s | %7s | %7s | %8s\n"

// atmMarker is appended to the strike closest to the underlying.
const atmMarker = "*"

// Combined renders calls and puts side by side as one HTML message. The
// footer totals and PCR cover the rendered rows only.
func Combined(rows []models.AnnotatedRow, underlying decimal.Decimal, expiry string, opts Options) models.Message {
	window := opts.window(rows)
	atm := ATMIndex(window, underlying)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s Option Chain</b>\n", html.EscapeString(opts.instrument()))
	fmt.Fprintf(&b, "🕒 %s IST\n", opts.timestamp())
	if !underlying.IsZero() {
		fmt.Fprintf(&b, "Spot: <b>%s</b>", numeric.FormatPrice(underlying))
		if expiry != "" {
			fmt.Fprintf(&b, " | Expiry: <b>%s</b>", html.EscapeString(expiry))
		}
		b.WriteString("\n")
	} else if expiry != "" {
		fmt.Fprintf(&b, "Expiry: <b>%s</b>\n", html.EscapeString(expiry))
	}

	b.WriteString("\n<pre>")
	b.WriteString(html.EscapeString(fmt.Sprintf(combinedRowFormat, "CE OI", "CE ΔOI", "CE LTP", "Strike", "PE LTP", "PE ΔOI", "PE OI")))

	totalCall, totalPut := decimal.Zero, decimal.Zero
	for i, r := range window {
		strike := r.Strike
		if i == atm {
			strike += atmMarker
		}
		line := fmt.Sprintf(combinedRowFormat,
			oiText(r.CallOIRaw, r.CallOI), r.CallOIDeltaText, numeric.FormatPrice(r.CallLTP),
			strike,
			numeric.FormatPrice(r.PutLTP), r.PutOIDeltaText, oiText(r.PutOIRaw, r.PutOI))
		b.WriteString(html.EscapeString(line))
		totalCall = totalCall.Add(decimal.NewFromInt(r.CallOI))
		totalPut = totalPut.Add(decimal.NewFromInt(r.PutOI))
	}
	b.WriteString("</pre>\n")

	fmt.Fprintf(&b, "Total CE OI: <b>%s</b> | Total PE OI: <b>%s</b> | PCR: <b>%s</b>",
		numeric.HumanMagnitude(totalCall), numeric.HumanMagnitude(totalPut), PCR(totalCall, totalPut))
	if atm >= 0 {
		fmt.Fprintf(&b, "\n%s ATM strike", atmMarker)
	}
	if opts.SourceLabel != "" {
		b.WriteString("\nSource: " + html.EscapeString(opts.SourceLabel))
	}

	return models.Message{Text: b.String(), Mode: models.ParseHTML}
}

// PCR is the put/call open interest ratio with two decimals, or "-" when
// there is no call open interest.
func PCR(totalCall, totalPut decimal.Decimal) string {
	if totalCall.IsZero() {
		return "-"
	}
	return totalPut.DivRound(totalCall, 2).StringFixed(2)
}

func oiText(raw string, v int64) string {
	if raw != "" {
		return raw
	}
	return numeric.HumanCount(v)
}
