package infrastructure

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Analysis metrics
	AnalysisRunsTotal      metric.Int64Counter
	AnalysisDuration       metric.Float64Histogram
	AnalysisTimeouts       metric.Int64Counter
	AnalysisSuperseded     metric.Int64Counter
	AnalysisActiveRequests metric.Int64UpDownCounter

	// Portfolio metrics
	PortfolioUploadsTotal metric.Int64Counter
	PortfolioTickerCount  metric.Float64Histogram

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// WebSocket metrics
	WebSocketConnections metric.Int64UpDownCounter

	// System metrics
	SystemErrors metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	analysisRunsTotal, err := meter.Int64Counter(
		"analysis_runs_total",
		metric.WithDescription("Total number of portfolio analysis runs"),
	)
	if err != nil {
		return nil, err
	}

	analysisDuration, err := meter.Float64Histogram(
		"analysis_duration_seconds",
		metric.WithDescription("Portfolio analysis duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	analysisTimeouts, err := meter.Int64Counter(
		"analysis_timeouts_total",
		metric.WithDescription("Total number of analysis requests that timed out"),
	)
	if err != nil {
		return nil, err
	}

	analysisSuperseded, err := meter.Int64Counter(
		"analysis_superseded_total",
		metric.WithDescription("Total number of analysis results discarded because a newer request superseded them"),
	)
	if err != nil {
		return nil, err
	}

	analysisActiveRequests, err := meter.Int64UpDownCounter(
		"analysis_active_requests",
		metric.WithDescription("Number of analysis requests in flight"),
	)
	if err != nil {
		return nil, err
	}

	portfolioUploadsTotal, err := meter.Int64Counter(
		"portfolio_uploads_total",
		metric.WithDescription("Total number of portfolio CSV uploads"),
	)
	if err != nil {
		return nil, err
	}

	portfolioTickerCount, err := meter.Float64Histogram(
		"portfolio_ticker_count",
		metric.WithDescription("Number of tickers per uploaded portfolio"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"analysis_cache_hits_total",
		metric.WithDescription("Total number of analysis cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"analysis_cache_misses_total",
		metric.WithDescription("Total number of analysis cache misses"),
	)
	if err != nil {
		return nil, err
	}

	webSocketConnections, err := meter.Int64UpDownCounter(
		"websocket_connections",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		AnalysisRunsTotal:      analysisRunsTotal,
		AnalysisDuration:       analysisDuration,
		AnalysisTimeouts:       analysisTimeouts,
		AnalysisSuperseded:     analysisSuperseded,
		AnalysisActiveRequests: analysisActiveRequests,

		PortfolioUploadsTotal: portfolioUploadsTotal,
		PortfolioTickerCount:  portfolioTickerCount,

		CacheHits:   cacheHits,
		CacheMisses: cacheMisses,

		WebSocketConnections: webSocketConnections,

		SystemErrors: systemErrors,
	}, nil
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}
