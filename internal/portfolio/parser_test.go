package portfolio

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("portfolio.csv"))
	assert.NoError(t, ValidateFilename("Portfolio.CSV"))
	assert.ErrorIs(t, ValidateFilename("portfolio.xlsx"), ErrNotCSV)
	assert.ErrorIs(t, ValidateFilename("portfolio"), ErrNotCSV)
	assert.ErrorIs(t, ValidateFilename("portfolio.csv.txt"), ErrNotCSV)
}

func TestParseCSV(t *testing.T) {
	input := "ticker,position\nAAPL,100\nmsft,250.5\nAAPL,50\n"

	p, err := ParseCSV(strings.NewReader(input), testLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, p.TotalPositions)
	assert.Equal(t, []string{"AAPL", "MSFT"}, p.Tickers, "tickers are uppercased and deduplicated")
	assert.Equal(t, "AAPL", p.Positions[0].Ticker)
	assert.Equal(t, 100.0, p.Positions[0].Position)
	assert.Equal(t, 250.5, p.Positions[1].Position)
	assert.False(t, p.UploadedAt.IsZero())
}

func TestParseCSVHeaderByName(t *testing.T) {
	// Columns matched by name, not by index.
	input := "name,position,ticker\nApple Inc,100,aapl\n"

	p, err := ParseCSV(strings.NewReader(input), testLogger())
	require.NoError(t, err)
	require.Len(t, p.Positions, 1)
	assert.Equal(t, "AAPL", p.Positions[0].Ticker)
	assert.Equal(t, 100.0, p.Positions[0].Position)
}

func TestParseCSVByteOrderMark(t *testing.T) {
	input := "\ufeffticker,position\nGOOG,10\n"

	p, err := ParseCSV(strings.NewReader(input), testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOG"}, p.Tickers)
}

func TestParseCSVDropsBadRows(t *testing.T) {
	input := strings.Join([]string{
		"ticker,position",
		"AAPL,100",
		"MSFT,not-a-number",
		",50",
		"NVDA",
		"TSLA,\"1,250\"",
		"",
	}, "\n")

	p, err := ParseCSV(strings.NewReader(input), testLogger())
	require.NoError(t, err)

	require.Len(t, p.Positions, 2)
	assert.Equal(t, "AAPL", p.Positions[0].Ticker)
	assert.Equal(t, "TSLA", p.Positions[1].Ticker)
	assert.Equal(t, 1250.0, p.Positions[1].Position, "thousands separators are stripped")
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing ticker column", "symbol,position\nAAPL,100\n", ErrMissingHeader},
		{"missing position column", "ticker,weight\nAAPL,100\n", ErrMissingHeader},
		{"header only", "ticker,position\n", ErrNoDataRows},
		{"all rows dropped", "ticker,position\nAAPL,abc\n,100\n", ErrNoDataRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input), testLogger())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ParseCSV(strings.NewReader(""), testLogger())
	assert.Error(t, err, "empty input fails on the header read")
}

func TestStore(t *testing.T) {
	s := NewStore()

	_, ok := s.Get()
	assert.False(t, ok)

	p, err := ParseCSV(strings.NewReader("ticker,position\nAAPL,100\n"), testLogger())
	require.NoError(t, err)

	s.Set(p)
	got, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, p, got)

	s.Clear()
	_, ok = s.Get()
	assert.False(t, ok)
}
