package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "portfoliopulse/internal/errors"
	"portfoliopulse/internal/services"
)

// WarehouseHandler handles warehouse maintenance HTTP requests
type WarehouseHandler struct {
	service       *services.WarehouseService
	activeLogFile string
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
}

// NewWarehouseHandler creates a new warehouse handler
func NewWarehouseHandler(service *services.WarehouseService, activeLogFile string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WarehouseHandler {
	return &WarehouseHandler{
		service:       service,
		activeLogFile: activeLogFile,
		logger:        logger.With(slog.String("handler", "warehouse")),
		errorHandler:  errorHandler,
	}
}

// Routes returns the warehouse maintenance routes
func (h *WarehouseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/stats", h.Stats)
	r.Get("/search", h.Search)
	r.Delete("/ticker/{ticker}", h.ClearTicker)
	r.Delete("/", h.ClearAll)
	r.Post("/logs/clear", h.ClearLogs)

	return r
}

// Stats handles GET /api/warehouse/stats
func (h *WarehouseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("warehouse stats", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}

// Search handles GET /api/warehouse/search?q=term
func (h *WarehouseHandler) Search(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("warehouse search", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   tickers,
		"count":  len(tickers),
	})
}

// ClearTicker handles DELETE /api/warehouse/ticker/{ticker}
func (h *WarehouseHandler) ClearTicker(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	removed, err := h.service.ClearTicker(r.Context(), ticker)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTickerNotFound):
			h.errorHandler.HandleError(w, r, apierrors.ErrTickerNotFound)
		case errors.Is(err, services.ErrInvalidInput):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("ticker", "Ticker symbol is required"))
		default:
			h.errorHandler.HandleError(w, r, apierrors.FileSystemError("warehouse clear", err))
		}
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// ClearAll handles DELETE /api/warehouse
func (h *WarehouseHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearAll(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("warehouse clear", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// ClearLogs handles POST /api/warehouse/logs/clear
func (h *WarehouseHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearLogs(r.Context(), h.activeLogFile)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("log cleanup", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}
