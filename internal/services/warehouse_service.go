package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"portfoliopulse/internal/config"
	"portfoliopulse/internal/warehouse"
)

// WarehouseService exposes maintenance operations over the on-disk metric
// warehouse and the log directory.
type WarehouseService struct {
	store  *warehouse.Store
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewWarehouseService creates a warehouse maintenance service.
func NewWarehouseService(store *warehouse.Store, paths config.PathsConfig, logger *slog.Logger) *WarehouseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarehouseService{
		store:  store,
		paths:  paths,
		logger: logger.With(slog.String("component", "warehouse_service")),
	}
}

// Stats reports ticker, file and size counters for the warehouse.
func (s *WarehouseService) Stats(ctx context.Context) (warehouse.Stats, error) {
	stats, err := s.store.ComputeStats()
	if err != nil {
		return warehouse.Stats{}, fmt.Errorf("failed to compute warehouse stats: %w", err)
	}
	return stats, nil
}

// Search lists stored tickers matching the term, case-insensitive.
func (s *WarehouseService) Search(ctx context.Context, term string) ([]string, error) {
	tickers, err := s.store.Search(term)
	if err != nil {
		return nil, fmt.Errorf("warehouse search failed: %w", err)
	}
	return tickers, nil
}

// ClearTicker removes every stored entry for one ticker.
func (s *WarehouseService) ClearTicker(ctx context.Context, ticker string) (int, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return 0, fmt.Errorf("%w: ticker is required", ErrInvalidInput)
	}

	removed, err := s.store.ClearTicker(ticker)
	if err != nil {
		if errors.Is(err, warehouse.ErrTickerNotFound) {
			return 0, ErrTickerNotFound
		}
		return 0, fmt.Errorf("failed to clear ticker %s: %w", ticker, err)
	}

	s.logger.InfoContext(ctx, "warehouse ticker cleared",
		slog.String("ticker", ticker),
		slog.Int("removed", removed))
	return removed, nil
}

// ClearAll removes every warehouse entry.
func (s *WarehouseService) ClearAll(ctx context.Context) (int, error) {
	removed, err := s.store.ClearAll()
	if err != nil {
		return 0, fmt.Errorf("failed to clear warehouse: %w", err)
	}

	s.logger.InfoContext(ctx, "warehouse cleared", slog.Int("removed", removed))
	return removed, nil
}

// ClearLogs removes rotated log files from the configured logs directory.
// The active log file stays open; only *.log files other than it are removed.
func (s *WarehouseService) ClearLogs(ctx context.Context, activeLogFile string) (int, error) {
	entries, err := os.ReadDir(s.paths.LogsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read logs directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		path := filepath.Join(s.paths.LogsDir, entry.Name())
		if path == activeLogFile {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.WarnContext(ctx, "failed to remove log file",
				slog.String("file", path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	s.logger.InfoContext(ctx, "log files cleared", slog.Int("removed", removed))
	return removed, nil
}
