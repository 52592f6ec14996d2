package analysis

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"portfoliopulse/internal/dateselect"
	"portfoliopulse/pkg/contracts/domain"
)

// SchemaVersion is bumped whenever the cached result shape changes in a way
// the consuming tables cannot tolerate. Entries written under an older
// version are discarded on load, never partially trusted.
const SchemaVersion = 2

// Cache file names under the cache directory. Clear removes all of them.
const (
	resultFile   = "analysis_result.json"
	rangeFile    = "analysis_range.json"
	viewModeFile = "view_mode.json"
)

// CachedAnalysis is what a successful Load returns: the backend payload plus
// the range that produced it and when it was saved.
type CachedAnalysis struct {
	Result  domain.AnalysisResult `json:"result"`
	Range   dateselect.DateRange  `json:"range"`
	SavedAt time.Time             `json:"saved_at"`
}

type resultEnvelope struct {
	SchemaVersion int                   `json:"schema_version"`
	SavedAt       time.Time             `json:"saved_at"`
	Result        domain.AnalysisResult `json:"result"`
}

// ResultCache persists the last analysis result and its date range under
// fixed keys so a reload does not lose results. Corrupt or schema-drifted
// entries self-heal: they are removed on load and treated as absent.
type ResultCache struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewResultCache creates a cache rooted at dir, creating it if needed.
func NewResultCache(dir string, logger *slog.Logger) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &ResultCache{
		dir:    dir,
		logger: logger.With(slog.String("component", "result_cache")),
	}, nil
}

// Save writes the result and its range. The write is staged through temp
// files and renamed so a crash never leaves a half-written entry.
func (c *ResultCache) Save(result domain.AnalysisResult, rng dateselect.DateRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env := resultEnvelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now().UTC(),
		Result:        result,
	}
	if err := c.writeJSON(resultFile, env); err != nil {
		return err
	}
	if err := c.writeJSON(rangeFile, rng); err != nil {
		return err
	}
	c.logger.Debug("analysis result cached",
		slog.String("start_date", rng.StartDate),
		slog.String("end_date", rng.EndDate))
	return nil
}

// Load returns the cached analysis, or ok=false when nothing usable is
// stored. Malformed JSON and old-schema entries are removed so they do not
// keep failing on every future load.
func (c *ResultCache) Load() (*CachedAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, resultFile))
	if err != nil {
		return nil, false
	}

	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("discarding corrupt cached result", slog.String("error", err.Error()))
		c.removeAll()
		return nil, false
	}
	if env.SchemaVersion != SchemaVersion || env.Result.StartDate == "" || env.Result.EndDate == "" {
		c.logger.Warn("discarding cached result with stale schema",
			slog.Int("found_version", env.SchemaVersion),
			slog.Int("want_version", SchemaVersion))
		c.removeAll()
		return nil, false
	}

	var rng dateselect.DateRange
	rangeData, err := os.ReadFile(filepath.Join(c.dir, rangeFile))
	if err != nil || json.Unmarshal(rangeData, &rng) != nil || rng.StartDate == "" {
		c.logger.Warn("discarding cached result with unreadable range")
		c.removeAll()
		return nil, false
	}

	return &CachedAnalysis{Result: env.Result, Range: rng, SavedAt: env.SavedAt}, true
}

// Clear removes the result, the range, and the view-mode preference together.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeAll()
	c.logger.Debug("analysis cache cleared")
}

// SaveViewMode persists the table/chart view preference alongside the result.
func (c *ResultCache) SaveViewMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeJSON(viewModeFile, mode)
}

// ViewMode returns the stored view preference, or fallback when absent.
func (c *ResultCache) ViewMode(fallback string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, viewModeFile))
	if err != nil {
		return fallback
	}
	var mode string
	if err := json.Unmarshal(data, &mode); err != nil || mode == "" {
		os.Remove(filepath.Join(c.dir, viewModeFile))
		return fallback
	}
	return mode
}

func (c *ResultCache) writeJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(c.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

func (c *ResultCache) removeAll() {
	for _, name := range []string{resultFile, rangeFile, viewModeFile} {
		os.Remove(filepath.Join(c.dir, name))
	}
}
