package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"portfoliopulse/internal/dateselect"
	apierrors "portfoliopulse/internal/errors"
	"portfoliopulse/internal/exporter"
	"portfoliopulse/internal/services"
)

// AnalysisHandler handles estimate, cache, and export HTTP requests
type AnalysisHandler struct {
	service      *services.PortfolioService
	exporter     *exporter.Service
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *services.PortfolioService, exp *exporter.Service, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		exporter:     exp,
		logger:       logger.With(slog.String("handler", "analysis")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(render.SetContentType(render.ContentTypeJSON)).Group(func(r chi.Router) {
		r.Post("/estimate", h.Estimate)
		r.Get("/cached", h.Cached)
		r.Delete("/cached", h.ClearCache)
		r.Get("/view-mode", h.ViewMode)
		r.Put("/view-mode", h.SetViewMode)
	})

	r.Get("/export", h.Export)

	return r
}

// Estimate handles POST /api/analysis/estimate
func (h *AnalysisHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.decodeRange(w, r)
	if !ok {
		return
	}

	estimate, err := h.service.Estimate(r.Context(), rng)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPortfolio):
			h.errorHandler.HandleError(w, r, apierrors.ErrPortfolioNotFound)
		case errors.Is(err, services.ErrInvalidDateRange):
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusBadRequest,
				"INVALID_DATE_RANGE",
				"Invalid analysis date range",
				err.Error(),
			))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   estimate,
	})
}

// Cached handles GET /api/analysis/cached
func (h *AnalysisHandler) Cached(w http.ResponseWriter, r *http.Request) {
	cached, err := h.service.CachedAnalysis(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoCachedAnalysis) {
			h.errorHandler.HandleError(w, r, apierrors.ErrAnalysisNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   cached,
	})
}

// ClearCache handles DELETE /api/analysis/cached
func (h *AnalysisHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// ViewMode handles GET /api/analysis/view-mode
func (h *AnalysisHandler) ViewMode(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]string{
			"mode": h.service.ViewMode(),
		},
	})
}

// SetViewMode handles PUT /api/analysis/view-mode
func (h *AnalysisHandler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.service.SetViewMode(req.Mode); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("mode", "view mode must be dollar or percent"))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// Export handles GET /api/analysis/export?format=csv|xlsx
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	cached, err := h.service.CachedAnalysis(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoCachedAnalysis) {
			h.errorHandler.HandleError(w, r, apierrors.ErrAnalysisNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	stamp := time.Now().Format("20060102_150405")

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis_%s.csv"`, stamp))
		if err := h.exporter.AnalysisCSV(w, cached); err != nil {
			h.logger.ErrorContext(r.Context(), "csv export failed",
				slog.String("error", err.Error()))
		}

	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis_%s.xlsx"`, stamp))
		if err := h.exporter.AnalysisWorkbook(w, cached); err != nil {
			h.logger.ErrorContext(r.Context(), "xlsx export failed",
				slog.String("error", err.Error()))
		}

	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "format must be csv or xlsx"))
	}
}

// decodeRange decodes and validates the shared analysis request body.
func (h *AnalysisHandler) decodeRange(w http.ResponseWriter, r *http.Request) (rng dateselect.DateRange, ok bool) {
	var req analyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return rng, false
	}
	if err := validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"VALIDATION_FAILED",
			"startDate and endDate must be YYYY-MM-DD dates",
			err.Error(),
		))
		return rng, false
	}
	return req.toRange(), true
}
