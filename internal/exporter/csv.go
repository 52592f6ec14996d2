package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"portfoliopulse/internal/analysis"
)

// Service renders cached analysis results to export formats. Metric rows
// carry the shared classifier's level so exports grade each metric the same
// way the dashboard does.
type Service struct {
	classifier *analysis.Classifier
	logger     *slog.Logger
}

// New creates an exporter service.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		classifier: analysis.NewClassifier(),
		logger:     logger.With(slog.String("component", "exporter")),
	}
}

// metricRow is one classified line of the metrics section. Rows without a
// graded metric (dates, raw values) carry an empty level.
type metricRow struct {
	Name  string
	Value string
	Level string
}

func (s *Service) metricRows(c *analysis.CachedAnalysis) []metricRow {
	r := c.Result

	level := func(metric string, value float64) string {
		return string(s.classifier.Classify(metric, value, analysis.ScopePortfolio))
	}
	// Percent metrics are stored as fractions but classified on the percent
	// scale the thresholds use.
	pct := func(metric string, value float64) string {
		return level(metric, value*100)
	}

	return []metricRow{
		{Name: "Start Date", Value: r.StartDate},
		{Name: "End Date", Value: r.EndDate},
		{Name: "Start Value", Value: formatFloat(r.StartValue)},
		{Name: "End Value", Value: formatFloat(r.EndValue)},
		{Name: "Total Return", Value: formatPercent(r.TotalReturn), Level: pct("total_return", r.TotalReturn)},
		{Name: "Annualized Return", Value: formatPercent(r.AnnualizedReturn), Level: pct("annualized_return", r.AnnualizedReturn)},
		{Name: "Volatility", Value: formatPercent(r.Volatility), Level: pct("volatility", r.Volatility)},
		{Name: "Sharpe Ratio", Value: formatFloat(r.SharpeRatio), Level: level("sharpe_ratio", r.SharpeRatio)},
		{Name: "Sortino Ratio", Value: formatFloat(r.SortinoRatio), Level: level("sortino_ratio", r.SortinoRatio)},
		{Name: "Calmar Ratio", Value: formatFloat(r.CalmarRatio), Level: level("calmar_ratio", r.CalmarRatio)},
		{Name: "Max Drawdown", Value: formatPercent(r.MaxDrawdown), Level: pct("max_drawdown", r.MaxDrawdown)},
		{Name: "VaR 95", Value: formatPercent(r.VaR95), Level: pct("var_95", r.VaR95)},
		{Name: "CVaR 95", Value: formatPercent(r.CVaR95), Level: pct("cvar_95", r.CVaR95)},
		{Name: "Ulcer Index", Value: formatFloat(r.UlcerIndex), Level: level("ulcer_index", r.UlcerIndex)},
		{Name: "Beta", Value: formatFloat(r.Beta), Level: level("beta", r.Beta)},
		{Name: "Dividends Received", Value: formatFloat(r.DividendsReceived)},
		{Name: "Dividend Yield", Value: formatPercent(r.DividendYield), Level: pct("dividend_yield", r.DividendYield)},
	}
}

// AnalysisCSV writes the cached analysis as CSV. A UTF-8 BOM is prefixed so
// Excel opens the file correctly.
func (s *Service) AnalysisCSV(w io.Writer, c *analysis.CachedAnalysis) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Metric", "Value", "Level"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range s.metricRows(c) {
		if err := cw.Write([]string{row.Name, row.Value, row.Level}); err != nil {
			return fmt.Errorf("failed to write metric row: %w", err)
		}
	}

	// Time series section, date-sorted.
	if len(c.Result.TimeSeriesData.Portfolio) > 0 {
		if err := cw.Write([]string{}); err != nil {
			return err
		}
		if err := cw.Write([]string{"Date", "Portfolio", "SP500", "Nasdaq"}); err != nil {
			return fmt.Errorf("failed to write series header: %w", err)
		}
		for _, date := range sortedDates(c.Result.TimeSeriesData.Portfolio) {
			record := []string{
				date,
				formatFloat(c.Result.TimeSeriesData.Portfolio[date]),
				formatFloat(c.Result.TimeSeriesData.SP500[date]),
				formatFloat(c.Result.TimeSeriesData.Nasdaq[date]),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write series row %s: %w", date, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// sortedDates returns the series keys in ascending date order. Keys are
// ISO dates, so a string sort is a date sort.
func sortedDates(series map[string]float64) []string {
	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
