package services

import "errors"

// Service-level sentinel errors. Handlers map these to API error codes.
var (
	// Portfolio errors
	ErrNoPortfolio     = errors.New("no portfolio uploaded")
	ErrInvalidCSV      = errors.New("invalid portfolio csv")
	ErrNoTickersFound  = errors.New("no tickers found")
	ErrTickerNotFound  = errors.New("ticker not found")

	// Analysis errors
	ErrNoCachedAnalysis   = errors.New("no cached analysis result")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrAnalysisSuperseded = errors.New("analysis superseded by a newer request")
	ErrAnalysisTimeout    = errors.New("analysis timed out")
	ErrBackendUnavailable = errors.New("analysis backend unavailable")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
