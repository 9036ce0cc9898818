// Package report renders annotated option-chain rows into chat messages.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"niftyflow/models"
)

const (
	DefaultTopN       = 15
	DefaultInstrument = "NIFTY"
	timestampLayout   = "2006-01-02 15:04"
)

// istFallback is used when the tz database has no Asia/Kolkata entry.
var istFallback = time.FixedZone("IST", 5*60*60+30*60)

// IST returns the India Standard Time location.
func IST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return istFallback
	}
	return loc
}

// Options controls the rendering of both report variants.
type Options struct {
	TopN        int
	Instrument  string
	SourceLabel string
	Now         time.Time
	Location    *time.Location
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return DefaultTopN
	}
	return o.TopN
}

func (o Options) instrument() string {
	if o.Instrument == "" {
		return DefaultInstrument
	}
	return o.Instrument
}

func (o Options) timestamp() string {
	loc := o.Location
	if loc == nil {
		loc = IST()
	}
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(loc).Format(timestampLayout)
}

func (o Options) window(rows []models.AnnotatedRow) []models.AnnotatedRow {
	if n := o.topN(); len(rows) > n {
		return rows[:n]
	}
	return rows
}

// ATMIndex returns the index of the row whose numeric strike is closest to
// underlying, or -1 when underlying is zero or no strike is numeric. Ties
// keep the earlier row.
func ATMIndex(rows []models.AnnotatedRow, underlying decimal.Decimal) int {
	if underlying.IsZero() {
		return -1
	}
	best := -1
	var bestDist decimal.Decimal
	for i, r := range rows {
		strike, err := decimal.NewFromString(r.Strike)
		if err != nil {
			continue
		}
		dist := strike.Sub(underlying).Abs()
		if best == -1 || dist.LessThan(bestDist) {
			best, bestDist = i, dist
		}
	}
	return best
}

// WindowAroundATM returns at most n consecutive rows centred on the ATM
// strike. Without an ATM strike the first n rows are returned.
func WindowAroundATM(rows []models.AnnotatedRow, underlying decimal.Decimal, n int) []models.AnnotatedRow {
	if n <= 0 {
		n = DefaultTopN
	}
	if len(rows) <= n {
		return rows
	}
	atm := ATMIndex(rows, underlying)
	if atm < 0 {
		return rows[:n]
	}
	start := atm - n/2
	if start < 0 {
		start = 0
	}
	if start+n > len(rows) {
		start = len(rows) - n
	}
	return rows[start : start+n]
}
