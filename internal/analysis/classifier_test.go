package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierPortfolioScope(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		metric string
		value  float64
		want   Level
	}{
		{"total_return", 15, LevelGood},
		{"total_return", 5, LevelNeutral},
		{"total_return", -2, LevelBad},
		{"sharpe_ratio", 1.0, LevelGood},
		{"sharpe_ratio", 0.5, LevelNeutral},
		{"sharpe_ratio", 0.49, LevelBad},
		// Lower-is-better metrics invert the comparison.
		{"volatility", 12, LevelGood},
		{"volatility", 15, LevelNeutral},
		{"volatility", 21, LevelBad},
		{"max_drawdown", 8, LevelGood},
		{"max_drawdown", 30, LevelBad},
		{"beta", 1.0, LevelGood},
		{"beta", 1.5, LevelBad},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.metric, tt.value, ScopePortfolio),
			"%s=%v", tt.metric, tt.value)
	}
}

func TestClassifierTickerScopeIsLooser(t *testing.T) {
	c := NewClassifier()

	// 22% volatility is bad for a portfolio but fine for one ticker.
	assert.Equal(t, LevelBad, c.Classify("volatility", 22, ScopePortfolio))
	assert.Equal(t, LevelGood, c.Classify("volatility", 22, ScopeTicker))

	assert.Equal(t, LevelBad, c.Classify("max_drawdown", 30, ScopePortfolio))
	assert.Equal(t, LevelNeutral, c.Classify("max_drawdown", 30, ScopeTicker))

	// Return metrics share thresholds across scopes.
	assert.Equal(t, LevelGood, c.Classify("total_return", 15, ScopeTicker))
}

func TestClassifierUnknownMetric(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, LevelUnknown, c.Classify("information_ratio", 1.2, ScopePortfolio))
	assert.Equal(t, LevelUnknown, c.Classify("", 0, ScopeTicker))
}

func TestClassifierCaseInsensitive(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, LevelGood, c.Classify("Sharpe_Ratio", 1.5, ScopePortfolio))
	assert.Equal(t, LevelGood, c.Classify("TOTAL_RETURN", 20, ScopeTicker))
}
