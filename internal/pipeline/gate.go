package pipeline

import (
	"fmt"
	"time"

	"niftyflow/config"
	"niftyflow/report"
)

// Gate decides whether a run may proceed at a given instant. start and end
// are seconds after local midnight.
type Gate struct {
	enforce bool
	start   int
	end     int
	loc     *time.Location
}

// NewGate builds a market-hours gate from the schedule configuration.
func NewGate(cfg config.MarketHoursConfig) (Gate, error) {
	start, err := config.ParseClock(cfg.Start)
	if err != nil {
		return Gate{}, fmt.Errorf("market hours start: %w", err)
	}
	end, err := config.ParseClock(cfg.End)
	if err != nil {
		return Gate{}, fmt.Errorf("market hours end: %w", err)
	}
	return Gate{enforce: cfg.Enforce, start: start * 60, end: end * 60, loc: location(cfg.Timezone)}, nil
}

// Open reports whether now falls on a weekday inside [start, end] in the
// market's time zone. A gate that is not enforced is always open.
func (g Gate) Open(now time.Time) bool {
	if !g.enforce {
		return true
	}
	local := now.In(g.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	second := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return second >= g.start && second <= g.end
}

// InMarketHours is a convenience wrapper around NewGate and Open. An invalid
// window keeps the gate closed.
func InMarketHours(now time.Time, cfg config.MarketHoursConfig) bool {
	g, err := NewGate(cfg)
	if err != nil {
		return false
	}
	return g.Open(now)
}

func location(name string) *time.Location {
	if name == "" || name == "Asia/Kolkata" {
		return report.IST()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return report.IST()
	}
	return loc
}
