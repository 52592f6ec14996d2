package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliopulse/internal/dateselect"
	"portfoliopulse/internal/exporter"
)

func (e *testEnv) analysisRouter() http.Handler {
	return NewAnalysisHandler(e.portfolioSvc, exporter.New(e.logger), e.logger, e.errorHandler).Routes()
}

func TestEstimate(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.analysisRouter()
	uploadPortfolio(t, env)

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.GreaterOrEqual(t, data["seconds"].(float64), float64(30))
	breakdown := data["breakdown"].(map[string]interface{})
	assert.Equal(t, float64(2), breakdown["tickerCount"])
}

func TestEstimateNoPortfolio(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.analysisRouter()

	payload := `{"startDate":"2024-01-02","endDate":"2024-06-28"}`
	req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PORTFOLIO_NOT_FOUND")
}

func runAnalysis(t *testing.T, env *testEnv) {
	t.Helper()
	_, err := env.portfolioSvc.Analyze(context.Background(), dateselect.DateRange{
		StartDate: "2024-01-02", EndDate: "2024-06-28", Kind: dateselect.KindCustom,
	})
	require.NoError(t, err)
}

func TestCachedAnalysisLifecycle(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.analysisRouter()
	uploadPortfolio(t, env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cached", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ANALYSIS_NOT_FOUND")

	runAnalysis(t, env)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cached", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	result := data["result"].(map[string]interface{})
	assert.Equal(t, 7.5, result["total_return"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cached", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cached", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewModeEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.analysisRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view-mode", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "dollar", data["mode"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/view-mode",
		strings.NewReader(`{"mode":"percent"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view-mode", nil))
	data = decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "percent", data["mode"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/view-mode",
		strings.NewReader(`{"mode":"euro"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.analysisRouter()
	uploadPortfolio(t, env)
	runAnalysis(t, env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBF"), "CSV export carries a BOM")
	assert.Contains(t, rec.Body.String(), "Total Return")
}

func TestExportXLSX(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.analysisRouter()
	uploadPortfolio(t, env)
	runAnalysis(t, env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestExportErrors(t *testing.T) {
	env := newTestEnv(t, analyzeBackendStub())
	router := env.analysisRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing cached yet")

	uploadPortfolio(t, env)
	runAnalysis(t, env)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}
