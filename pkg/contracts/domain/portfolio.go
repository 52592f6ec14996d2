package domain

import (
	"fmt"
	"strings"
	"time"
)

// Position represents a single holding in an uploaded portfolio.
type Position struct {
	Ticker   string  `json:"ticker" csv:"Ticker" validate:"required,min=1,max=10"`
	Position float64 `json:"position" csv:"Position" validate:"required,gt=0"`
}

// Portfolio is the Single Source of Truth for the currently loaded portfolio.
// It is produced by the CSV upload parser and consumed by every analysis and
// comparison flow. Positions keep the order of the uploaded file; Tickers is
// the deduplicated, upper-cased symbol list in the same order.
type Portfolio struct {
	Positions      []Position `json:"positions"`
	TotalPositions int        `json:"totalPositions"`
	Tickers        []string   `json:"tickers"`
	UploadedAt     time.Time  `json:"uploaded_at"`
}

// Validate checks structural invariants of the portfolio.
func (p *Portfolio) Validate() error {
	if len(p.Positions) == 0 {
		return fmt.Errorf("portfolio has no positions")
	}
	if p.TotalPositions != len(p.Positions) {
		return fmt.Errorf("totalPositions %d does not match %d positions", p.TotalPositions, len(p.Positions))
	}
	seen := make(map[string]bool, len(p.Tickers))
	for _, t := range p.Tickers {
		if t == "" || t != strings.ToUpper(t) {
			return fmt.Errorf("invalid ticker %q", t)
		}
		if seen[t] {
			return fmt.Errorf("duplicate ticker %q", t)
		}
		seen[t] = true
	}
	return nil
}
