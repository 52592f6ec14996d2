package domain

// AnalysisWarnings carries data-quality caveats returned with every analysis
// run. MissingTickers had no data at all; TickersWithoutStartData existed but
// only after the requested start date, with the first usable date per ticker
// recorded in FirstAvailableDates.
type AnalysisWarnings struct {
	MissingTickers          []string          `json:"missingTickers,omitempty"`
	TickersWithoutStartData []string          `json:"tickersWithoutStartData,omitempty"`
	FirstAvailableDates     map[string]string `json:"firstAvailableDates,omitempty"`
}

// TimeSeries holds the three date-keyed value series rendered by the
// performance chart: the portfolio itself plus the S&P 500 and NASDAQ
// benchmarks. Keys are "2006-01-02" dates.
type TimeSeries struct {
	Portfolio map[string]float64 `json:"portfolio"`
	SP500     map[string]float64 `json:"sp500"`
	Nasdaq    map[string]float64 `json:"nasdaq"`
}

// AnalysisResult is the portfolio-level metrics payload computed by the
// metrics backend for a date range. All risk figures are computed server-side;
// this service only transports, caches, and classifies them.
type AnalysisResult struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	VaR95            float64 `json:"var_95"`
	CVaR95           float64 `json:"cvar_95"`
	UlcerIndex       float64 `json:"ulcer_index"`
	Beta             float64 `json:"beta"`

	DividendsReceived float64 `json:"dividends_received"`
	DividendYield     float64 `json:"dividend_yield"`

	Warnings       AnalysisWarnings `json:"warnings"`
	TimeSeriesData TimeSeries       `json:"timeSeriesData"`
}

// TickerMetrics is the per-ticker metrics payload used by the ticker analysis
// table and the comparison rankings.
type TickerMetrics struct {
	Ticker   string  `json:"ticker"`
	Position float64 `json:"position"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	VaR95            float64 `json:"var_95"`
	UlcerIndex       float64 `json:"ulcer_index"`
	Beta             float64 `json:"beta"`
}

// TickerAnalysis wraps the per-ticker metrics array with the shared warning
// shape and the tickers the backend failed to price.
type TickerAnalysis struct {
	Tickers       []TickerMetrics  `json:"tickers"`
	FailedTickers []string         `json:"failedTickers,omitempty"`
	Warnings      AnalysisWarnings `json:"warnings"`
}

// RankedTicker is one entry of a metric ranking, best first.
type RankedTicker struct {
	Ticker string  `json:"ticker"`
	Value  float64 `json:"value"`
	Rank   int     `json:"rank"`
}

// TickerRanking is an ordered ranking of tickers by a single metric.
type TickerRanking struct {
	Metric  string         `json:"metric"`
	Tickers []RankedTicker `json:"tickers"`
}

// ComparisonResult is the response of the ticker comparison flow: headline
// winners, the full advanced-metric rankings, and the underlying per-ticker
// metrics so the table does not need a second request.
type ComparisonResult struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	BestPerformer  string `json:"best_performer"`
	WorstPerformer string `json:"worst_performer"`
	BestSharpe     string `json:"best_sharpe"`
	LowestRisk     string `json:"lowest_risk"`

	Rankings []TickerRanking  `json:"rankings"`
	Tickers  []TickerMetrics  `json:"tickers"`
	Warnings AnalysisWarnings `json:"warnings"`
}
