package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliopulse/internal/dateselect"
	"portfoliopulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPortfolio() *domain.Portfolio {
	return &domain.Portfolio{
		Positions: []domain.Position{
			{Ticker: "AAPL", Position: 100},
			{Ticker: "MSFT", Position: 50},
		},
		TotalPositions: 2,
		Tickers:        []string{"AAPL", "MSFT"},
	}
}

func testRange() dateselect.DateRange {
	return dateselect.DateRange{StartDate: "2024-06-17", EndDate: "2025-06-17"}
}

func TestClientAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/portfolio/analysis", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Positions []domain.Position `json:"positions"`
			StartDate string            `json:"start_date"`
			EndDate   string            `json:"end_date"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Positions, 2)
		assert.Equal(t, "2024-06-17", req.StartDate)

		json.NewEncoder(w).Encode(domain.AnalysisResult{
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			TotalReturn: 12.5,
			SharpeRatio: 1.1,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	result, err := client.Analyze(context.Background(), testPortfolio(), testRange(), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 12.5, result.TotalReturn)
	assert.Equal(t, "2024-06-17", result.StartDate)
}

func TestClientTickerMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tickers/AAPL/metrics", r.URL.Path)
		// Backend omits the ticker field; the client fills it in.
		json.NewEncoder(w).Encode(domain.TickerMetrics{TotalReturn: 8.2})
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	m, err := client.TickerMetrics(context.Background(), "AAPL", 100, testRange(), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", m.Ticker)
	assert.Equal(t, 8.2, m.TotalReturn)
}

func TestClientNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.TickerMetrics(context.Background(), "ZZZZ", 1, testRange(), 30*time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, testLogger())
	_, err := client.Analyze(context.Background(), testPortfolio(), testRange(), 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClientErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "pricing data unavailable"})
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.Analyze(context.Background(), testPortfolio(), testRange(), 30*time.Second)

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, http.StatusInternalServerError, berr.StatusCode)
	assert.Equal(t, "pricing data unavailable", berr.Message)
}

func TestClientNonEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.Analyze(context.Background(), testPortfolio(), testRange(), 30*time.Second)

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, http.StatusBadGateway, berr.StatusCode)
	assert.Contains(t, berr.Message, "502")
}

func TestClientMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.Analyze(context.Background(), testPortfolio(), testRange(), 30*time.Second)

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Message, "malformed")
}

func TestClientUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", testLogger())
	err := client.Ping(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClientPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	assert.NoError(t, client.Ping(context.Background()))
}
