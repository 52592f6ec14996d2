// Package warehouse is the local ticker-data warehouse: per-ticker payloads
// fetched from the metrics backend are cached here so repeated analyses of
// the same range skip the backend. The admin endpoints expose stats, search,
// and targeted/global clearing.
package warehouse

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrTickerNotFound is returned when a clear targets a ticker with no
// warehouse entries.
var ErrTickerNotFound = errors.New("ticker not found in warehouse")

// Stats summarizes warehouse contents for the admin dashboard.
type Stats struct {
	Tickers    int       `json:"tickers"`
	Files      int       `json:"files"`
	SizeBytes  int64     `json:"size_bytes"`
	OldestFile time.Time `json:"oldest_file,omitempty"`
	NewestFile time.Time `json:"newest_file,omitempty"`
}

// Store is a directory-backed warehouse. Each ticker owns files named
// "<TICKER>__<key>.json"; the key encodes the date range the payload covers.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewStore creates a warehouse rooted at dir, creating it if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create warehouse directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "warehouse")),
	}, nil
}

// Put stores a payload for a ticker under the given range key.
func (s *Store) Put(ticker, key string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal warehouse payload: %w", err)
	}
	path := filepath.Join(s.dir, entryName(ticker, key))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write warehouse entry: %w", err)
	}
	s.logger.Debug("warehouse entry written",
		slog.String("ticker", strings.ToUpper(ticker)),
		slog.String("key", key),
		slog.Int("size_bytes", len(data)))
	return nil
}

// Get loads a ticker payload for the range key into out. Returns false when
// absent; corrupt entries are removed and treated as absent.
func (s *Store) Get(ticker, key string, out interface{}) bool {
	s.mu.RLock()
	path := filepath.Join(s.dir, entryName(ticker, key))
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("removing corrupt warehouse entry",
			slog.String("ticker", strings.ToUpper(ticker)),
			slog.String("error", err.Error()))
		s.mu.Lock()
		os.Remove(path)
		s.mu.Unlock()
		return false
	}
	return true
}

// ComputeStats walks the warehouse and aggregates per-ticker file counts.
func (s *Store) ComputeStats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read warehouse directory: %w", err)
	}

	stats := Stats{}
	tickers := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Files++
		stats.SizeBytes += info.Size()
		tickers[tickerOf(entry.Name())] = true
		mod := info.ModTime()
		if stats.OldestFile.IsZero() || mod.Before(stats.OldestFile) {
			stats.OldestFile = mod
		}
		if mod.After(stats.NewestFile) {
			stats.NewestFile = mod
		}
	}
	stats.Tickers = len(tickers)
	return stats, nil
}

// Search returns the tickers with warehouse entries whose symbol contains
// term (case-insensitive), sorted. An empty term lists everything.
func (s *Store) Search(term string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read warehouse directory: %w", err)
	}

	term = strings.ToUpper(strings.TrimSpace(term))
	seen := make(map[string]bool)
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ticker := tickerOf(entry.Name())
		if seen[ticker] {
			continue
		}
		if term == "" || strings.Contains(ticker, term) {
			seen[ticker] = true
			out = append(out, ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ClearTicker removes every entry for one ticker.
func (s *Store) ClearTicker(ticker string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read warehouse directory: %w", err)
	}

	target := strings.ToUpper(strings.TrimSpace(ticker))
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || tickerOf(entry.Name()) != target {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove warehouse entry: %w", err)
		}
		removed++
	}
	if removed == 0 {
		return 0, ErrTickerNotFound
	}
	s.logger.Info("warehouse ticker cleared",
		slog.String("ticker", target),
		slog.Int("files_removed", removed))
	return removed, nil
}

// ClearAll removes every warehouse entry.
func (s *Store) ClearAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read warehouse directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove warehouse entry: %w", err)
		}
		removed++
	}
	s.logger.Info("warehouse cleared", slog.Int("files_removed", removed))
	return removed, nil
}

func entryName(ticker, key string) string {
	return fmt.Sprintf("%s__%s.json", strings.ToUpper(strings.TrimSpace(ticker)), key)
}

func tickerOf(filename string) string {
	name := strings.TrimSuffix(filename, ".json")
	if i := strings.Index(name, "__"); i >= 0 {
		return name[:i]
	}
	return name
}
