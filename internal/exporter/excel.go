package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"portfoliopulse/internal/analysis"
)

const (
	metricsSheet = "Metrics"
	seriesSheet  = "Time Series"
)

// AnalysisWorkbook writes the cached analysis as an Excel workbook with a
// metrics sheet and a time series sheet.
func (s *Service) AnalysisWorkbook(w io.Writer, c *analysis.CachedAnalysis) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", slog.String("error", err.Error()))
		}
	}()

	f.SetSheetName("Sheet1", metricsSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	levelStyles, err := newLevelStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create level styles: %w", err)
	}

	if err := f.SetSheetRow(metricsSheet, "A1", &[]interface{}{"Metric", "Value", "Level"}); err != nil {
		return fmt.Errorf("failed to write metrics header: %w", err)
	}
	if err := f.SetCellStyle(metricsSheet, "A1", "C1", headerStyle); err != nil {
		return err
	}
	for i, row := range s.metricRows(c) {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(metricsSheet, cell, &[]interface{}{row.Name, row.Value, row.Level}); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", row.Name, err)
		}
		if style, ok := levelStyles[row.Level]; ok {
			levelCell := fmt.Sprintf("C%d", i+2)
			if err := f.SetCellStyle(metricsSheet, levelCell, levelCell, style); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(metricsSheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(metricsSheet, "B", "C", 16); err != nil {
		return err
	}

	if _, err := f.NewSheet(seriesSheet); err != nil {
		return fmt.Errorf("failed to create series sheet: %w", err)
	}
	if err := f.SetSheetRow(seriesSheet, "A1", &[]interface{}{"Date", "Portfolio", "SP500", "Nasdaq"}); err != nil {
		return fmt.Errorf("failed to write series header: %w", err)
	}
	if err := f.SetCellStyle(seriesSheet, "A1", "D1", headerStyle); err != nil {
		return err
	}
	for i, date := range sortedDates(c.Result.TimeSeriesData.Portfolio) {
		cell := fmt.Sprintf("A%d", i+2)
		values := []interface{}{
			date,
			c.Result.TimeSeriesData.Portfolio[date],
			c.Result.TimeSeriesData.SP500[date],
			c.Result.TimeSeriesData.Nasdaq[date],
		}
		if err := f.SetSheetRow(seriesSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write series row %s: %w", date, err)
		}
	}
	if err := f.SetColWidth(seriesSheet, "A", "D", 14); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// newLevelStyles builds fill styles for graded level cells, keyed by level.
func newLevelStyles(f *excelize.File) (map[string]int, error) {
	fills := map[string]string{
		string(analysis.LevelGood):    "#C6EFCE",
		string(analysis.LevelNeutral): "#FFEB9C",
		string(analysis.LevelBad):     "#FFC7CE",
	}
	styles := make(map[string]int, len(fills))
	for level, color := range fills {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return nil, err
		}
		styles[level] = style
	}
	return styles, nil
}
