package analysis

import "strings"

// Scope selects the threshold table: portfolio-level metrics are judged more
// strictly than single-ticker metrics.
type Scope string

const (
	ScopePortfolio Scope = "portfolio"
	ScopeTicker    Scope = "ticker"
)

// Level is the color classification applied to a rendered metric value.
type Level string

const (
	LevelGood    Level = "good"
	LevelNeutral Level = "neutral"
	LevelBad     Level = "bad"
	LevelUnknown Level = "unknown"
)

// threshold classifies a value by two boundaries. With higherIsBetter, values
// at or above good are good and values below bad are bad; otherwise the
// comparison is inverted.
type threshold struct {
	good           float64
	bad            float64
	higherIsBetter bool
}

func (t threshold) classify(v float64) Level {
	if t.higherIsBetter {
		switch {
		case v >= t.good:
			return LevelGood
		case v < t.bad:
			return LevelBad
		}
		return LevelNeutral
	}
	switch {
	case v <= t.good:
		return LevelGood
	case v > t.bad:
		return LevelBad
	}
	return LevelNeutral
}

// Classifier is the single shared metric color classifier, replacing the
// per-component threshold tables that used to drift apart.
type Classifier struct {
	portfolio map[string]threshold
	ticker    map[string]threshold
}

// NewClassifier builds the classifier with the dashboard's threshold tables.
func NewClassifier() *Classifier {
	portfolio := map[string]threshold{
		"total_return":      {good: 10, bad: 0, higherIsBetter: true},
		"annualized_return": {good: 8, bad: 0, higherIsBetter: true},
		"sharpe_ratio":      {good: 1.0, bad: 0.5, higherIsBetter: true},
		"sortino_ratio":     {good: 1.5, bad: 0.75, higherIsBetter: true},
		"calmar_ratio":      {good: 1.0, bad: 0.5, higherIsBetter: true},
		"volatility":        {good: 12, bad: 20},
		"max_drawdown":      {good: 10, bad: 25},
		"var_95":            {good: 2, bad: 4},
		"cvar_95":           {good: 3, bad: 5},
		"ulcer_index":       {good: 5, bad: 10},
		"beta":              {good: 1.0, bad: 1.3},
		"dividend_yield":    {good: 2, bad: 0.5, higherIsBetter: true},
	}
	// Single tickers swing harder than a diversified portfolio, so the
	// volatility-family bounds are looser.
	ticker := make(map[string]threshold, len(portfolio))
	for k, v := range portfolio {
		ticker[k] = v
	}
	ticker["volatility"] = threshold{good: 25, bad: 45}
	ticker["max_drawdown"] = threshold{good: 20, bad: 40}
	ticker["var_95"] = threshold{good: 3.5, bad: 6}
	ticker["ulcer_index"] = threshold{good: 10, bad: 20}
	ticker["beta"] = threshold{good: 1.2, bad: 1.8}

	return &Classifier{portfolio: portfolio, ticker: ticker}
}

// Classify maps a metric value to its display level. Unknown metric names
// classify as LevelUnknown so new backend fields render uncolored instead of
// wrongly colored.
func (c *Classifier) Classify(metric string, value float64, scope Scope) Level {
	table := c.portfolio
	if scope == ScopeTicker {
		table = c.ticker
	}
	t, ok := table[strings.ToLower(metric)]
	if !ok {
		return LevelUnknown
	}
	return t.classify(value)
}
