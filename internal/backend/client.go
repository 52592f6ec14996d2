// Package backend is the HTTP client for the external metrics backend. The
// backend owns all metric computation; this client transports requests,
// applies the advisory per-request timeout, and normalizes failures into the
// tagged shapes the handlers switch on.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"portfoliopulse/internal/dateselect"
	"portfoliopulse/pkg/contracts/domain"
)

// Client wraps the metrics backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a backend client. The http.Client carries no global
// timeout; every call gets a context deadline from the timeout estimator.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger.With(slog.String("component", "backend_client")),
	}
}

// analysisRequest is the shared request body for all analysis calls.
type analysisRequest struct {
	Positions []domain.Position `json:"positions"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
}

// Analyze fetches portfolio-level metrics for the range. timeout is the
// advisory estimate; it bounds how long we wait, nothing more.
func (c *Client) Analyze(ctx context.Context, p *domain.Portfolio, rng dateselect.DateRange, timeout time.Duration) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	err := c.post(ctx, "/v1/portfolio/analysis", analysisRequest{
		Positions: p.Positions,
		StartDate: rng.StartDate,
		EndDate:   rng.EndDate,
	}, &result, timeout)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeTickers fetches the per-ticker metrics table for the range.
func (c *Client) AnalyzeTickers(ctx context.Context, p *domain.Portfolio, rng dateselect.DateRange, timeout time.Duration) (*domain.TickerAnalysis, error) {
	var result domain.TickerAnalysis
	err := c.post(ctx, "/v1/tickers/analysis", analysisRequest{
		Positions: p.Positions,
		StartDate: rng.StartDate,
		EndDate:   rng.EndDate,
	}, &result, timeout)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// tickerMetricsRequest asks for a single ticker's metrics; used by the
// comparison flow, which fans these out concurrently.
type tickerMetricsRequest struct {
	Position  float64 `json:"position"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

// TickerMetrics fetches one ticker's metrics for the range.
func (c *Client) TickerMetrics(ctx context.Context, ticker string, position float64, rng dateselect.DateRange, timeout time.Duration) (*domain.TickerMetrics, error) {
	var result domain.TickerMetrics
	path := fmt.Sprintf("/v1/tickers/%s/metrics", ticker)
	err := c.post(ctx, path, tickerMetricsRequest{
		Position:  position,
		StartDate: rng.StartDate,
		EndDate:   rng.EndDate,
	}, &result, timeout)
	if err != nil {
		return nil, err
	}
	if result.Ticker == "" {
		result.Ticker = ticker
	}
	return &result, nil
}

// Ping checks backend reachability for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return normalizeTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Error{Message: "backend unhealthy", StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "backend request failed",
			slog.String("path", path),
			slog.Duration("elapsed", time.Since(started)),
			slog.String("error", err.Error()))
		return normalizeTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalizeResponseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Message: "backend returned malformed JSON", StatusCode: resp.StatusCode, Details: err.Error()}
	}

	c.logger.DebugContext(ctx, "backend request completed",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

func normalizeResponseError(resp *http.Response) error {
	// Backends that speak our error envelope get their message passed
	// through; anything else is summarized by status.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	message := ""
	if json.Unmarshal(body, &envelope) == nil {
		switch {
		case envelope.Message != "":
			message = envelope.Message
		case envelope.Detail != "":
			message = envelope.Detail
		case envelope.Error != "":
			message = envelope.Error
		}
	}
	if message == "" {
		message = fmt.Sprintf("backend returned %s", resp.Status)
	}
	return &Error{Message: message, StatusCode: resp.StatusCode, Details: string(body)}
}
