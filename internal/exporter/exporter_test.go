package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"portfoliopulse/internal/analysis"
	"portfoliopulse/internal/dateselect"
	"portfoliopulse/pkg/contracts/domain"
)

func sampleCached() *analysis.CachedAnalysis {
	return &analysis.CachedAnalysis{
		Result: domain.AnalysisResult{
			StartDate:        "2024-06-17",
			EndDate:          "2025-06-17",
			StartValue:       100000,
			EndValue:         112500,
			TotalReturn:      0.125,
			AnnualizedReturn: 0.125,
			SharpeRatio:      1.1,
			Volatility:       0.14,
			TimeSeriesData: domain.TimeSeries{
				Portfolio: map[string]float64{"2024-06-18": 100100, "2024-06-17": 100000},
				SP500:     map[string]float64{"2024-06-18": 5480, "2024-06-17": 5473},
				Nasdaq:    map[string]float64{"2024-06-18": 17710, "2024-06-17": 17690},
			},
		},
		Range: dateselect.DateRange{
			StartDate: "2024-06-17",
			EndDate:   "2025-06-17",
			Kind:      dateselect.KindPreset,
		},
		SavedAt: time.Now().UTC(),
	}
}

func TestAnalysisCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).AnalysisCSV(&buf, sampleCached()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "CSV starts with a UTF-8 BOM")

	cr := csv.NewReader(bytes.NewReader(raw[3:]))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Metric", "Value", "Level"}, records[0])

	byName := map[string]string{}
	levels := map[string]string{}
	for _, rec := range records[1:] {
		if len(rec) == 3 {
			byName[rec[0]] = rec[1]
			levels[rec[0]] = rec[2]
		}
	}
	assert.Equal(t, "2024-06-17", byName["Start Date"])
	assert.Equal(t, "12.50%", byName["Total Return"])
	assert.Equal(t, "1.1000", byName["Sharpe Ratio"])
	assert.Equal(t, "14.00%", byName["Volatility"])

	// Graded metrics carry the classifier's level; ungraded rows stay blank.
	assert.Equal(t, "good", levels["Total Return"])
	assert.Equal(t, "good", levels["Sharpe Ratio"])
	assert.Equal(t, "neutral", levels["Volatility"])
	assert.Equal(t, "bad", levels["Sortino Ratio"])
	assert.Empty(t, levels["Start Date"])
	assert.Empty(t, levels["Dividends Received"])

	// Time series rows follow, date-sorted.
	last := records[len(records)-1]
	require.Len(t, last, 4)
	assert.Equal(t, "2024-06-18", last[0])
	assert.Equal(t, []string{"Date", "Portfolio", "SP500", "Nasdaq"}, records[len(records)-3])
}

func TestAnalysisCSVWithoutSeries(t *testing.T) {
	cached := sampleCached()
	cached.Result.TimeSeriesData = domain.TimeSeries{}

	var buf bytes.Buffer
	require.NoError(t, New(nil).AnalysisCSV(&buf, cached))

	cr := csv.NewReader(bytes.NewReader(buf.Bytes()[3:]))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	require.NoError(t, err)
	for _, rec := range records {
		assert.Len(t, rec, 3, "no series section when there is no series data")
	}
}

func TestAnalysisWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).AnalysisWorkbook(&buf, sampleCached()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Metrics", "Time Series"}, f.GetSheetList())

	metric, err := f.GetCellValue("Metrics", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Start Date", metric)

	levelHeader, err := f.GetCellValue("Metrics", "C1")
	require.NoError(t, err)
	assert.Equal(t, "Level", levelHeader)

	totalReturnLevel, err := f.GetCellValue("Metrics", "C6")
	require.NoError(t, err)
	assert.Equal(t, "good", totalReturnLevel)

	firstDate, err := f.GetCellValue("Time Series", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-17", firstDate)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1.2346", formatFloat(1.23456))
	assert.Equal(t, "0.0000", formatFloat(0))
	assert.Equal(t, "12.50%", formatPercent(0.125))
	assert.Equal(t, "-3.00%", formatPercent(-0.03))
}
