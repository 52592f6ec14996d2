package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "portfoliopulse/internal/errors"
	"portfoliopulse/internal/services"
)

// DateRangeHandler handles date range resolution HTTP requests
type DateRangeHandler struct {
	service      *services.DateRangeService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDateRangeHandler creates a new date range handler
func NewDateRangeHandler(service *services.DateRangeService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DateRangeHandler {
	return &DateRangeHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "daterange")),
		errorHandler: errorHandler,
	}
}

// Routes returns the date range routes
func (h *DateRangeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/presets", h.Presets)
	r.Get("/presets/{id}", h.Preset)
	r.Get("/calendar", h.Calendar)
	r.Get("/cutoff", h.Cutoff)

	return r
}

// Presets handles GET /api/daterange/presets
func (h *DateRangeHandler) Presets(w http.ResponseWriter, r *http.Request) {
	presets := h.service.Presets(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   presets,
		"count":  len(presets),
	})
}

// Preset handles GET /api/daterange/presets/{id}
func (h *DateRangeHandler) Preset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rng, err := h.service.Preset(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Unknown preset: "+id))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rng,
	})
}

// Calendar handles GET /api/daterange/calendar?year=2024&month=6
func (h *DateRangeHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", "year must be an integer"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("month", "month must be an integer 1..12"))
		return
	}

	grid, err := h.service.Calendar(r.Context(), year, month)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusBadRequest,
				"INVALID_PARAMETER",
				"Calendar month out of range",
				err.Error(),
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   grid,
	})
}

// Cutoff handles GET /api/daterange/cutoff
func (h *DateRangeHandler) Cutoff(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]string{
			"cutoff": h.service.Cutoff(),
		},
	})
}
