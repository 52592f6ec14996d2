package analysis

import (
	"math"
	"time"

	"portfoliopulse/internal/dateselect"
)

// Timeout estimation constants. The formula is advisory only: it sizes the
// backend request timeout and the "this may take N seconds" hint, and must
// never gate or retry a request.
const (
	BaseSeconds             = 30
	PerTickerPerYearSeconds = 0.2
	MinTimeoutSeconds       = 30
	MaxTimeoutSeconds       = 600
)

// EstimateBreakdown exposes the inputs behind an estimate so the UI can
// explain the number.
type EstimateBreakdown struct {
	TickerCount             int     `json:"tickerCount"`
	DateRangeYears          float64 `json:"dateRangeYears"`
	BaseSeconds             int     `json:"baseSeconds"`
	PerTickerPerYearSeconds float64 `json:"perTickerPerYearSeconds"`
}

// TimeoutEstimate is the derived expected processing duration for an
// analysis run. Recomputed on every input change, never persisted.
type TimeoutEstimate struct {
	Seconds   int               `json:"seconds"`
	Breakdown EstimateBreakdown `json:"breakdown"`
}

// Duration returns the estimate as a time.Duration for HTTP client timeouts.
func (e TimeoutEstimate) Duration() time.Duration {
	return time.Duration(e.Seconds) * time.Second
}

// EstimateTimeout maps (ticker count, date span) to an expected backend
// processing duration:
//
//	spanYears = max(1, ceil(days)/365.25)
//	seconds   = clamp(base + tickers*spanYears*perTickerPerYear, 30, 600)
//
// Unparseable dates fall back to the base estimate rather than failing.
func EstimateTimeout(tickerCount int, startDate, endDate string) TimeoutEstimate {
	breakdown := EstimateBreakdown{
		TickerCount:             tickerCount,
		BaseSeconds:             BaseSeconds,
		PerTickerPerYearSeconds: PerTickerPerYearSeconds,
	}

	start, err1 := dateselect.ParseDate(startDate)
	end, err2 := dateselect.ParseDate(endDate)
	if err1 != nil || err2 != nil {
		breakdown.DateRangeYears = 0
		return TimeoutEstimate{Seconds: BaseSeconds, Breakdown: breakdown}
	}

	spanDays := math.Ceil(end.Sub(start).Hours() / 24)
	spanYears := spanDays / 365.25
	if spanYears < 1 {
		spanYears = 1
	}
	breakdown.DateRangeYears = spanYears

	raw := float64(BaseSeconds) + float64(tickerCount)*spanYears*PerTickerPerYearSeconds
	if raw < MinTimeoutSeconds {
		raw = MinTimeoutSeconds
	}
	if raw > MaxTimeoutSeconds {
		raw = MaxTimeoutSeconds
	}
	return TimeoutEstimate{Seconds: int(raw), Breakdown: breakdown}
}
