package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliopulse/internal/backend"
	"portfoliopulse/internal/config"
	"portfoliopulse/internal/services"
	"portfoliopulse/internal/warehouse"
)

func healthRouter(t *testing.T, backendURL string) http.Handler {
	t.Helper()
	logger := testLogger()
	wh, err := warehouse.NewStore(t.TempDir(), logger)
	require.NoError(t, err)

	svc := services.NewHealthService("test", "", config.PathsConfig{},
		backend.NewClient(backendURL, logger), wh, nil, logger)
	return NewHealthHandler(svc, logger).Routes()
}

func TestHealthCheck(t *testing.T) {
	router := healthRouter(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Contains(t, body["runtime"], "go_version")
}

func TestReadinessHealthy(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(stub.Close)
	router := healthRouter(t, stub.URL)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "healthy", body["status"])
	services := body["services"].(map[string]interface{})
	backendHealth := services["metrics_backend"].(map[string]interface{})
	assert.Equal(t, "healthy", backendHealth["status"])
	assert.Contains(t, services, "warehouse")
}

func TestReadinessDegraded(t *testing.T) {
	// Nothing listens here; the backend probe must fail fast.
	router := healthRouter(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "degraded", body["status"])
	backendHealth := body["services"].(map[string]interface{})["metrics_backend"].(map[string]interface{})
	assert.Equal(t, "unhealthy", backendHealth["status"])
}
