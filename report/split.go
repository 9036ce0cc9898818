package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"niftyflow/internal/numeric"
	"niftyflow/models"
)

const (
	splitTableHeader = "Strike | OI       | ΔOI     | LTP (Δ)\n"
	splitTableRule   = "-------------------------------------\n"
)

type side struct {
	title    string
	oiRaw    func(models.AnnotatedRow) string
	oi       func(models.AnnotatedRow) int64
	delta    func(models.AnnotatedRow) string
	ltp      func(models.AnnotatedRow) decimal.Decimal
	ltpDelta func(models.AnnotatedRow) string
}

var (
	callSide = side{
		title:    "📈 *%s CE (Call)*",
		oiRaw:    func(r models.AnnotatedRow) string { return r.CallOIRaw },
		oi:       func(r models.AnnotatedRow) int64 { return r.CallOI },
		delta:    func(r models.AnnotatedRow) string { return r.CallOIDeltaText },
		ltp:      func(r models.AnnotatedRow) decimal.Decimal { return r.CallLTP },
		ltpDelta: func(r models.AnnotatedRow) string { return r.CallLTPDeltaText },
	}
	putSide = side{
		title:    "📉 *%s PE (Put)*",
		oiRaw:    func(r models.AnnotatedRow) string { return r.PutOIRaw },
		oi:       func(r models.AnnotatedRow) int64 { return r.PutOI },
		delta:    func(r models.AnnotatedRow) string { return r.PutOIDeltaText },
		ltp:      func(r models.AnnotatedRow) decimal.Decimal { return r.PutLTP },
		ltpDelta: func(r models.AnnotatedRow) string { return r.PutLTPDeltaText },
	}
)

// Split renders the call table followed by the put table as Markdown.
func Split(rows []models.AnnotatedRow, opts Options) []models.Message {
	window := opts.window(rows)
	ts := opts.timestamp()
	return []models.Message{
		{Text: renderSide(callSide, window, ts, opts), Mode: models.ParseMarkdown},
		{Text: renderSide(putSide, window, ts, opts), Mode: models.ParseMarkdown},
	}
}

func renderSide(s side, rows []models.AnnotatedRow, ts string, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, s.title, opts.instrument())
	fmt.Fprintf(&b, "\n🕒 %s IST\n\n", ts)
	b.WriteString("```\n")
	b.WriteString(splitTableHeader)
	b.WriteString(splitTableRule)
	for _, r := range rows {
		oi := s.oiRaw(r)
		if oi == "" {
			oi = numeric.HumanCount(s.oi(r))
		}
		delta := s.delta(r)
		if delta == "" {
			delta = "+0"
		}
		ltpDelta := s.ltpDelta(r)
		if ltpDelta == "" {
			ltpDelta = "+0.00"
		}
		fmt.Fprintf(&b, "%-6s | %-8s | %-7s | %6s (%s)\n", r.Strike, oi, delta, numeric.FormatPrice(s.ltp(r)), ltpDelta)
	}
	b.WriteString("```\n")
	if opts.SourceLabel != "" {
		b.WriteString("Source: " + opts.SourceLabel)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
