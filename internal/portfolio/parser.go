// Package portfolio owns the uploaded portfolio: CSV parsing and the
// in-memory store for the currently loaded positions.
package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"portfoliopulse/pkg/contracts/domain"
)

// Parse errors surfaced as validation failures at the upload boundary.
var (
	ErrNotCSV        = errors.New("file is not a CSV")
	ErrMissingHeader = errors.New("CSV header must contain ticker and position columns")
	ErrNoDataRows    = errors.New("CSV contains no data rows")
)

// ValidateFilename rejects uploads that are not .csv files.
func ValidateFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return fmt.Errorf("%w: %s", ErrNotCSV, name)
	}
	return nil
}

// ParseCSV reads a portfolio upload. The header row must contain columns
// named "ticker" and "position"; columns are matched by name, case
// insensitively, not by position, so reordered headers parse fine. Rows with
// an unparseable position are dropped silently rather than failing the whole
// upload. At least one usable data row is required.
func ParseCSV(r io.Reader, logger *slog.Logger) (*domain.Portfolio, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Uploads occasionally carry ragged trailing columns; tolerate them.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	tickerCol, positionCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "ticker":
			tickerCol = i
		case "position":
			positionCol = i
		}
	}
	if tickerCol < 0 || positionCol < 0 {
		return nil, ErrMissingHeader
	}

	var (
		positions []domain.Position
		tickers   []string
		seen      = make(map[string]bool)
		dropped   int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if tickerCol >= len(row) || positionCol >= len(row) {
			dropped++
			continue
		}

		ticker := strings.ToUpper(strings.TrimSpace(row[tickerCol]))
		if ticker == "" {
			dropped++
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[positionCol]), ",", ""), 64)
		if err != nil {
			dropped++
			logger.Debug("dropping row with unparseable position",
				slog.String("ticker", ticker),
				slog.String("position", row[positionCol]))
			continue
		}

		positions = append(positions, domain.Position{Ticker: ticker, Position: value})
		if !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}

	if len(positions) == 0 {
		return nil, ErrNoDataRows
	}
	if dropped > 0 {
		logger.Info("portfolio upload dropped rows",
			slog.Int("dropped", dropped),
			slog.Int("kept", len(positions)))
	}

	return &domain.Portfolio{
		Positions:      positions,
		TotalPositions: len(positions),
		Tickers:        tickers,
		UploadedAt:     time.Now().UTC(),
	}, nil
}
