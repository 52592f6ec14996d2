package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliopulse/internal/analysis"
	"portfoliopulse/internal/backend"
	apierrors "portfoliopulse/internal/errors"
	"portfoliopulse/internal/portfolio"
	"portfoliopulse/internal/services"
	"portfoliopulse/internal/warehouse"
)

const testMaxUpload = 1 << 20

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// testEnv bundles the service wiring behind the handlers under test.
type testEnv struct {
	portfolioSvc *services.PortfolioService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// newTestEnv builds a PortfolioService backed by a stub metrics backend.
func newTestEnv(t *testing.T, backendHandler http.Handler) *testEnv {
	t.Helper()
	if backendHandler == nil {
		backendHandler = http.NotFoundHandler()
	}
	server := httptest.NewServer(backendHandler)
	t.Cleanup(server.Close)

	logger := testLogger()
	cache, err := analysis.NewResultCache(t.TempDir(), logger)
	require.NoError(t, err)
	wh, err := warehouse.NewStore(t.TempDir(), logger)
	require.NoError(t, err)

	svc := services.NewPortfolioService(
		portfolio.NewStore(),
		backend.NewClient(server.URL, logger),
		cache, wh, nil, nil, logger)

	return &testEnv{
		portfolioSvc: svc,
		errorHandler: apierrors.NewErrorHandler(logger, false),
		logger:       logger,
	}
}

func (e *testEnv) portfolioRouter() chi.Router {
	return NewPortfolioHandler(e.portfolioSvc, testMaxUpload, e.logger, e.errorHandler).Routes()
}

// multipartCSV builds a multipart body with a single "file" part.
func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadPortfolio(t *testing.T, env *testEnv) {
	t.Helper()
	_, err := env.portfolioSvc.Upload(context.Background(), "portfolio.csv",
		strings.NewReader("ticker,position\nAAPL,100\nMSFT,50\n"))
	require.NoError(t, err)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// analyzeBackendStub answers every analysis endpoint with a fixed result.
func analyzeBackendStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"start_date":   "2024-01-02",
			"end_date":     "2024-06-28",
			"total_return": 7.5,
		})
	})
}

func TestPortfolioUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.portfolioRouter()

	body, contentType := multipartCSV(t, "portfolio.csv", "ticker,position\nAAPL,100\n")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "success", envelope["status"])
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["totalPositions"])
}

func TestPortfolioUploadErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.portfolioRouter()

	t.Run("missing file part", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("note", "no file here"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("unparseable csv", func(t *testing.T) {
		body, contentType := multipartCSV(t, "portfolio.csv", "symbol,weight\nAAPL,1\n")
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_CSV")
	})

	t.Run("wrong extension", func(t *testing.T) {
		body, contentType := multipartCSV(t, "portfolio.xlsx", "ticker,position\nAAPL,1\n")
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed multipart body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not a multipart payload"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=deadbeef")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
	})

	t.Run("oversized upload", func(t *testing.T) {
		// A handler with a tiny limit so a normal body trips MaxBytesReader.
		tiny := NewPortfolioHandler(env.portfolioSvc, 64, env.logger, env.errorHandler).Routes()

		body, contentType := multipartCSV(t, "portfolio.csv",
			"ticker,position\n"+strings.Repeat("AAPL,100\n", 64))
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		tiny.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
	})
}

func TestPortfolioGet(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.portfolioRouter()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PORTFOLIO_NOT_FOUND")

	uploadPortfolio(t, env)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeEnvelope(t, rec)["status"])
}

func TestPortfolioDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.portfolioRouter()
	uploadPortfolio(t, env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortfolioAnalyze(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.portfolioRouter()
	uploadPortfolio(t, env)

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, 7.5, data["total_return"])
}

func TestPortfolioAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.portfolioRouter()
	uploadPortfolio(t, env)

	tests := []struct {
		name     string
		payload  string
		wantCode int
		wantBody string
	}{
		{"malformed json", `{"startDate":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing dates", `{}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"wrong date format", `{"startDate":"01/02/2024","endDate":"2024-06-28"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"inverted range", `{"startDate":"2024-06-28","endDate":"2024-01-02"}`, http.StatusBadRequest, "INVALID_DATE_RANGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(tt.payload))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestPortfolioAnalyzeNoPortfolio(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.portfolioRouter()

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PORTFOLIO_NOT_FOUND")
}

func TestPortfolioAnalyzeBackendFailure(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	router := env.portfolioRouter()
	uploadPortfolio(t, env)

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "BACKEND_ERROR")
}

func TestPortfolioCompare(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		ticker := parts[3]
		if ticker == "MSFT" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ticker": ticker, "total_return": 20.0, "volatility": 15.0,
		})
	}))
	router := env.portfolioRouter()
	uploadPortfolio(t, env)

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "AAPL", data["best_performer"])
	warnings := data["warnings"].(map[string]interface{})
	assert.Equal(t, []interface{}{"MSFT"}, warnings["missingTickers"])
}

func TestPortfolioCompareNoTickers(t *testing.T) {
	env := newTestEnv(t, nil) // backend 404s everything
	router := env.portfolioRouter()
	uploadPortfolio(t, env)

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_TICKERS_FOUND")
}
