package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"portfoliopulse/internal/analysis"
	"portfoliopulse/internal/backend"
	"portfoliopulse/internal/dateselect"
	"portfoliopulse/internal/infrastructure"
	"portfoliopulse/internal/portfolio"
	"portfoliopulse/internal/warehouse"
	ws "portfoliopulse/internal/websocket"
	"portfoliopulse/pkg/contracts/domain"
)

// compareConcurrency caps parallel per-ticker metric fetches against the
// backend during a comparison run.
const compareConcurrency = 4

// PortfolioService orchestrates the portfolio lifecycle: CSV upload, the
// analysis flows against the metrics backend, and the result cache.
type PortfolioService struct {
	store     *portfolio.Store
	backend   *backend.Client
	cache     *analysis.ResultCache
	warehouse *warehouse.Store
	hub       *ws.Hub
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger

	now func() time.Time

	// Monotonic sequence counters. A result is only published when its
	// sequence is still the latest, so a slow response never overwrites
	// the result of a request issued after it.
	analysisSeq atomic.Uint64
	tickersSeq  atomic.Uint64
	compareSeq  atomic.Uint64
}

// NewPortfolioService creates a portfolio service with injected dependencies.
func NewPortfolioService(
	store *portfolio.Store,
	client *backend.Client,
	cache *analysis.ResultCache,
	wh *warehouse.Store,
	hub *ws.Hub,
	metrics *infrastructure.BusinessMetrics,
	logger *slog.Logger,
) *PortfolioService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioService{
		store:     store,
		backend:   client,
		cache:     cache,
		warehouse: wh,
		hub:       hub,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "portfolio_service")),
		now:       time.Now,
	}
}

// Upload parses a portfolio CSV and replaces the current portfolio. Any
// cached analysis belongs to the previous portfolio and is discarded.
func (s *PortfolioService) Upload(ctx context.Context, filename string, r io.Reader) (*domain.Portfolio, error) {
	if err := portfolio.ValidateFilename(filename); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	p, err := portfolio.ParseCSV(r, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	s.store.Set(p)
	s.cache.Clear()

	if s.metrics != nil {
		s.metrics.PortfolioUploadsTotal.Add(ctx, 1)
		s.metrics.PortfolioTickerCount.Record(ctx, float64(len(p.Tickers)))
	}

	s.logger.InfoContext(ctx, "portfolio uploaded",
		slog.String("filename", filename),
		slog.Int("positions", p.TotalPositions),
		slog.Int("tickers", len(p.Tickers)))

	if s.hub != nil {
		s.hub.Broadcast(ws.TypePortfolioUpdate, map[string]interface{}{
			"positions": p.TotalPositions,
			"tickers":   len(p.Tickers),
		})
	}

	return p, nil
}

// Current returns the portfolio currently in memory.
func (s *PortfolioService) Current(ctx context.Context) (*domain.Portfolio, error) {
	p, ok := s.store.Get()
	if !ok {
		return nil, ErrNoPortfolio
	}
	return p, nil
}

// Clear removes the portfolio and any cached analysis for it.
func (s *PortfolioService) Clear(ctx context.Context) {
	s.store.Clear()
	s.cache.Clear()
	s.logger.InfoContext(ctx, "portfolio cleared")

	if s.hub != nil {
		s.hub.Broadcast(ws.TypePortfolioUpdate, map[string]interface{}{
			"positions": 0,
			"tickers":   0,
		})
	}
}

// Estimate returns the advisory timeout estimate for analyzing the current
// portfolio over the given range.
func (s *PortfolioService) Estimate(ctx context.Context, rng dateselect.DateRange) (analysis.TimeoutEstimate, error) {
	p, ok := s.store.Get()
	if !ok {
		return analysis.TimeoutEstimate{}, ErrNoPortfolio
	}
	if err := rng.Validate(s.now()); err != nil {
		return analysis.TimeoutEstimate{}, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}
	return analysis.EstimateTimeout(len(p.Tickers), rng.StartDate, rng.EndDate), nil
}

// Analyze runs a full portfolio analysis for the given range. The request
// deadline is derived from the timeout estimator, progress is pushed over the
// WebSocket hub, and the final result is cached. If a newer analysis request
// was issued while this one was in flight, its result is discarded.
func (s *PortfolioService) Analyze(ctx context.Context, rng dateselect.DateRange) (*domain.AnalysisResult, error) {
	p, ok := s.store.Get()
	if !ok {
		return nil, ErrNoPortfolio
	}
	if err := rng.Validate(s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}

	estimate := analysis.EstimateTimeout(len(p.Tickers), rng.StartDate, rng.EndDate)
	seq := s.analysisSeq.Add(1)

	s.logger.InfoContext(ctx, "analysis started",
		slog.String("start_date", rng.StartDate),
		slog.String("end_date", rng.EndDate),
		slog.Int("tickers", len(p.Tickers)),
		slog.Int("timeout_seconds", estimate.Seconds))

	if s.hub != nil {
		s.hub.Broadcast(ws.TypeAnalysisStarted, map[string]interface{}{
			"start_date":        rng.StartDate,
			"end_date":          rng.EndDate,
			"tickers":           len(p.Tickers),
			"estimated_seconds": estimate.Seconds,
		})
	}

	if s.metrics != nil {
		s.metrics.AnalysisRunsTotal.Add(ctx, 1)
		s.metrics.AnalysisActiveRequests.Add(ctx, 1)
		defer s.metrics.AnalysisActiveRequests.Add(ctx, -1)
	}

	start := s.now()
	result, err := s.backend.Analyze(ctx, p, rng, estimate.Duration())
	elapsed := time.Since(start)

	if err != nil {
		return nil, s.failAnalysis(ctx, err, elapsed)
	}

	if s.analysisSeq.Load() != seq {
		if s.metrics != nil {
			s.metrics.AnalysisSuperseded.Add(ctx, 1)
		}
		s.logger.WarnContext(ctx, "analysis result discarded, superseded by newer request",
			slog.Duration("elapsed", elapsed))
		return nil, ErrAnalysisSuperseded
	}

	if err := s.cache.Save(*result, rng); err != nil {
		s.logger.WarnContext(ctx, "failed to cache analysis result",
			slog.String("error", err.Error()))
	}

	if s.metrics != nil {
		s.metrics.AnalysisDuration.Record(ctx, elapsed.Seconds())
	}

	s.logger.InfoContext(ctx, "analysis completed",
		slog.Duration("elapsed", elapsed),
		slog.Float64("total_return", result.TotalReturn))

	if s.hub != nil {
		s.hub.Broadcast(ws.TypeAnalysisComplete, map[string]interface{}{
			"start_date": result.StartDate,
			"end_date":   result.EndDate,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}

	return result, nil
}

// AnalyzeTickers runs the per-ticker analysis flow for the given range.
func (s *PortfolioService) AnalyzeTickers(ctx context.Context, rng dateselect.DateRange) (*domain.TickerAnalysis, error) {
	p, ok := s.store.Get()
	if !ok {
		return nil, ErrNoPortfolio
	}
	if err := rng.Validate(s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}

	estimate := analysis.EstimateTimeout(len(p.Tickers), rng.StartDate, rng.EndDate)
	seq := s.tickersSeq.Add(1)

	result, err := s.backend.AnalyzeTickers(ctx, p, rng, estimate.Duration())
	if err != nil {
		return nil, s.failAnalysis(ctx, err, 0)
	}

	if s.tickersSeq.Load() != seq {
		return nil, ErrAnalysisSuperseded
	}

	s.archiveTickerMetrics(ctx, rng, result.Tickers)

	return result, nil
}

// Compare fetches per-ticker metrics concurrently and derives the headline
// winners and the advanced-metric rankings locally.
func (s *PortfolioService) Compare(ctx context.Context, rng dateselect.DateRange) (*domain.ComparisonResult, error) {
	p, ok := s.store.Get()
	if !ok {
		return nil, ErrNoPortfolio
	}
	if err := rng.Validate(s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}

	estimate := analysis.EstimateTimeout(len(p.Tickers), rng.StartDate, rng.EndDate)
	seq := s.compareSeq.Add(1)

	var (
		mu      sync.Mutex
		metrics []domain.TickerMetrics
		failed  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareConcurrency)

	for _, pos := range p.Positions {
		pos := pos
		g.Go(func() error {
			tm, err := s.backend.TickerMetrics(gctx, pos.Ticker, pos.Position, rng, estimate.Duration())
			if err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					mu.Lock()
					failed = append(failed, pos.Ticker)
					mu.Unlock()
					return nil
				}
				return err
			}
			mu.Lock()
			metrics = append(metrics, *tm)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, s.failAnalysis(ctx, err, 0)
	}

	if s.compareSeq.Load() != seq {
		return nil, ErrAnalysisSuperseded
	}

	if len(metrics) == 0 {
		return nil, ErrNoTickersFound
	}

	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Ticker < metrics[j].Ticker })
	sort.Strings(failed)

	result := &domain.ComparisonResult{
		StartDate: rng.StartDate,
		EndDate:   rng.EndDate,
		Rankings:  buildRankings(metrics),
		Tickers:   metrics,
	}
	result.BestPerformer = bestBy(metrics, func(m domain.TickerMetrics) float64 { return m.TotalReturn }, true)
	result.WorstPerformer = bestBy(metrics, func(m domain.TickerMetrics) float64 { return m.TotalReturn }, false)
	result.BestSharpe = bestBy(metrics, func(m domain.TickerMetrics) float64 { return m.SharpeRatio }, true)
	result.LowestRisk = bestBy(metrics, func(m domain.TickerMetrics) float64 { return m.Volatility }, false)
	result.Warnings.MissingTickers = failed

	s.archiveTickerMetrics(ctx, rng, metrics)

	return result, nil
}

// CachedAnalysis returns the cached analysis result, if a valid one exists.
func (s *PortfolioService) CachedAnalysis(ctx context.Context) (*analysis.CachedAnalysis, error) {
	cached, ok := s.cache.Load()
	if !ok {
		if s.metrics != nil {
			s.metrics.CacheMisses.Add(ctx, 1)
		}
		return nil, ErrNoCachedAnalysis
	}
	if s.metrics != nil {
		s.metrics.CacheHits.Add(ctx, 1)
	}
	return cached, nil
}

// ClearCache drops the cached analysis result.
func (s *PortfolioService) ClearCache(ctx context.Context) {
	s.cache.Clear()
	s.logger.InfoContext(ctx, "analysis cache cleared")
}

// ViewMode returns the persisted dashboard view mode.
func (s *PortfolioService) ViewMode() string {
	return s.cache.ViewMode("dollar")
}

// SetViewMode persists the dashboard view mode.
func (s *PortfolioService) SetViewMode(mode string) error {
	if mode != "dollar" && mode != "percent" {
		return fmt.Errorf("%w: view mode must be dollar or percent", ErrInvalidInput)
	}
	return s.cache.SaveViewMode(mode)
}

// failAnalysis maps backend failures to service sentinels and records them.
func (s *PortfolioService) failAnalysis(ctx context.Context, err error, elapsed time.Duration) error {
	switch {
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		if s.metrics != nil {
			s.metrics.AnalysisTimeouts.Add(ctx, 1)
		}
		s.logger.ErrorContext(ctx, "analysis timed out",
			slog.Duration("elapsed", elapsed))
		if s.hub != nil {
			s.hub.BroadcastError("ANALYSIS_TIMEOUT", "The analysis backend did not respond in time", "analysis", true)
		}
		return fmt.Errorf("%w: %v", ErrAnalysisTimeout, err)

	default:
		s.logger.ErrorContext(ctx, "analysis failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed))
		if s.hub != nil {
			s.hub.BroadcastError("ANALYSIS_FAILED", err.Error(), "analysis", true)
		}
		return err
	}
}

// archiveTickerMetrics stores per-ticker results in the warehouse so ranged
// results survive restarts. Failures are logged, never fatal.
func (s *PortfolioService) archiveTickerMetrics(ctx context.Context, rng dateselect.DateRange, metrics []domain.TickerMetrics) {
	if s.warehouse == nil {
		return
	}
	key := rng.StartDate + "_" + rng.EndDate
	for _, m := range metrics {
		if err := s.warehouse.Put(m.Ticker, key, m); err != nil {
			s.logger.WarnContext(ctx, "failed to archive ticker metrics",
				slog.String("ticker", m.Ticker),
				slog.String("error", err.Error()))
		}
	}
}

// rankedMetrics lists the advanced metrics exposed as comparison rankings and
// whether a higher value ranks first.
var rankedMetrics = []struct {
	name           string
	value          func(domain.TickerMetrics) float64
	higherIsBetter bool
}{
	{"total_return", func(m domain.TickerMetrics) float64 { return m.TotalReturn }, true},
	{"annualized_return", func(m domain.TickerMetrics) float64 { return m.AnnualizedReturn }, true},
	{"sharpe_ratio", func(m domain.TickerMetrics) float64 { return m.SharpeRatio }, true},
	{"sortino_ratio", func(m domain.TickerMetrics) float64 { return m.SortinoRatio }, true},
	{"calmar_ratio", func(m domain.TickerMetrics) float64 { return m.CalmarRatio }, true},
	{"volatility", func(m domain.TickerMetrics) float64 { return m.Volatility }, false},
	{"max_drawdown", func(m domain.TickerMetrics) float64 { return m.MaxDrawdown }, false},
	{"var_95", func(m domain.TickerMetrics) float64 { return m.VaR95 }, false},
	{"ulcer_index", func(m domain.TickerMetrics) float64 { return m.UlcerIndex }, false},
}

// buildRankings orders tickers per advanced metric, best first.
func buildRankings(metrics []domain.TickerMetrics) []domain.TickerRanking {
	rankings := make([]domain.TickerRanking, 0, len(rankedMetrics))
	for _, rm := range rankedMetrics {
		entries := make([]domain.RankedTicker, len(metrics))
		for i, m := range metrics {
			entries[i] = domain.RankedTicker{Ticker: m.Ticker, Value: rm.value(m)}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			if rm.higherIsBetter {
				return entries[i].Value > entries[j].Value
			}
			return entries[i].Value < entries[j].Value
		})
		for i := range entries {
			entries[i].Rank = i + 1
		}
		rankings = append(rankings, domain.TickerRanking{Metric: rm.name, Tickers: entries})
	}
	return rankings
}

// bestBy returns the ticker with the extreme value of the given metric.
func bestBy(metrics []domain.TickerMetrics, value func(domain.TickerMetrics) float64, max bool) string {
	if len(metrics) == 0 {
		return ""
	}
	best := metrics[0]
	for _, m := range metrics[1:] {
		v, bv := value(m), value(best)
		if (max && v > bv) || (!max && v < bv) {
			best = m
		}
	}
	return best.Ticker
}
