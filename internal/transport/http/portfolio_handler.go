package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"portfoliopulse/internal/dateselect"
	apierrors "portfoliopulse/internal/errors"
	"portfoliopulse/internal/services"
)

var validate = validator.New()

// analyzeRequest is the shared request body of the analysis flows.
type analyzeRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Label     string `json:"label"`
	Kind      string `json:"kind"`
}

func (req analyzeRequest) toRange() dateselect.DateRange {
	kind := dateselect.RangeKind(req.Kind)
	if kind != dateselect.KindPreset {
		kind = dateselect.KindCustom
	}
	return dateselect.DateRange{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Label:     req.Label,
		Kind:      kind,
	}
}

// PortfolioHandler handles portfolio upload and analysis HTTP requests
type PortfolioHandler struct {
	service        *services.PortfolioService
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service *services.PortfolioService, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PortfolioHandler {
	return &PortfolioHandler{
		service:        service,
		logger:         logger.With(slog.String("handler", "portfolio")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the portfolio routes
func (h *PortfolioHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Upload)
	r.Get("/", h.Get)
	r.Delete("/", h.Delete)

	r.Post("/analysis", h.Analyze)
	r.Post("/tickers/analysis", h.AnalyzeTickers)
	r.Post("/compare", h.Compare)

	return r
}

// Upload handles POST /api/portfolio (multipart CSV upload)
func (h *PortfolioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Uploaded file exceeds the size limit",
				err.Error(),
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A CSV file upload is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "portfolio upload received",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	p, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCSV) {
			h.errorHandler.HandleError(w, r, apierrors.InvalidCSVError(err))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   p,
	})
}

// Get handles GET /api/portfolio
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Current(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoPortfolio) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPortfolioNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   p,
	})
}

// Delete handles DELETE /api/portfolio
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.service.Clear(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// Analyze handles POST /api/portfolio/analysis
func (h *PortfolioHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.decodeRange(w, r)
	if !ok {
		return
	}

	result, err := h.service.Analyze(r.Context(), rng)
	if err != nil {
		h.handleAnalysisError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// AnalyzeTickers handles POST /api/portfolio/tickers/analysis
func (h *PortfolioHandler) AnalyzeTickers(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.decodeRange(w, r)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeTickers(r.Context(), rng)
	if err != nil {
		h.handleAnalysisError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result.Tickers),
	})
}

// Compare handles POST /api/portfolio/compare
func (h *PortfolioHandler) Compare(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.decodeRange(w, r)
	if !ok {
		return
	}

	result, err := h.service.Compare(r.Context(), rng)
	if err != nil {
		if errors.Is(err, services.ErrNoTickersFound) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_TICKERS_FOUND",
				"No ticker could be priced for the requested range",
			))
			return
		}
		h.handleAnalysisError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// decodeRange decodes and validates the shared analysis request body.
func (h *PortfolioHandler) decodeRange(w http.ResponseWriter, r *http.Request) (dateselect.DateRange, bool) {
	var req analyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return dateselect.DateRange{}, false
	}
	if err := validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"VALIDATION_FAILED",
			"startDate and endDate must be YYYY-MM-DD dates",
			err.Error(),
		))
		return dateselect.DateRange{}, false
	}
	return req.toRange(), true
}

// handleAnalysisError maps analysis service errors to API errors.
func (h *PortfolioHandler) handleAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "analysis request failed",
		slog.String("request_id", reqID),
		slog.String("error", err.Error()))

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
	case errors.Is(err, services.ErrAnalysisTimeout):
		h.errorHandler.HandleError(w, r, apierrors.ErrAnalysisTimeout)
	case errors.Is(err, services.ErrAnalysisSuperseded):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusConflict,
			"ANALYSIS_SUPERSEDED",
			"A newer analysis request replaced this one",
		))
	default:
		h.errorHandler.HandleError(w, r, apierrors.BackendError(err))
	}
}
