package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"portfoliopulse/internal/dateselect"
)

// PresetInfo is one selectable preset with its resolved range.
type PresetInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// CalendarMonth is one resolved month grid for the date picker.
type CalendarMonth struct {
	Year  int                       `json:"year"`
	Month int                       `json:"month"`
	Cells []dateselect.CalendarCell `json:"cells"`
}

// DateRangeService resolves presets and calendar grids against the current
// market cutoff. It is stateless; the browser owns selection state and this
// service answers what is selectable.
type DateRangeService struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewDateRangeService creates a date range service.
func NewDateRangeService(logger *slog.Logger) *DateRangeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DateRangeService{
		logger: logger.With(slog.String("component", "daterange_service")),
		now:    time.Now,
	}
}

// Presets resolves every preset against the current cutoff, in display order.
func (s *DateRangeService) Presets(ctx context.Context) []PresetInfo {
	reference := s.now()
	presets := make([]PresetInfo, 0, len(dateselect.PresetIDs()))
	for _, id := range dateselect.PresetIDs() {
		rng, err := dateselect.PresetRange(id, reference)
		if err != nil {
			// Preset table and ID list are defined together; treat a miss
			// as a programming error worth logging, not a user failure.
			s.logger.ErrorContext(ctx, "preset resolution failed",
				slog.String("preset", string(id)),
				slog.String("error", err.Error()))
			continue
		}
		presets = append(presets, PresetInfo{
			ID:        string(id),
			Label:     rng.Label,
			StartDate: rng.StartDate,
			EndDate:   rng.EndDate,
		})
	}
	return presets
}

// Preset resolves a single preset by ID.
func (s *DateRangeService) Preset(ctx context.Context, id string) (dateselect.DateRange, error) {
	rng, err := dateselect.PresetRange(dateselect.PresetID(id), s.now())
	if err != nil {
		return dateselect.DateRange{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rng, nil
}

// Calendar builds the 42-cell grid for the requested month, with selectability
// resolved against the current cutoff.
func (s *DateRangeService) Calendar(ctx context.Context, year, month int) (*CalendarMonth, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1..12, got %d", ErrInvalidInput, month)
	}
	reference := s.now()
	if year < dateselect.MinCustomYear || year > reference.Year() {
		return nil, fmt.Errorf("%w: year must be %d..%d, got %d",
			ErrInvalidInput, dateselect.MinCustomYear, reference.Year(), year)
	}

	return &CalendarMonth{
		Year:  year,
		Month: month,
		Cells: dateselect.BuildMonthGrid(year, time.Month(month), reference),
	}, nil
}

// Cutoff returns the last completed working day in market time.
func (s *DateRangeService) Cutoff() string {
	return dateselect.FormatDate(dateselect.PreviousWorkingDay(s.now()))
}

// ValidateRange checks a custom range against the range invariants.
func (s *DateRangeService) ValidateRange(ctx context.Context, rng dateselect.DateRange) error {
	if err := rng.Validate(s.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}
	return nil
}
