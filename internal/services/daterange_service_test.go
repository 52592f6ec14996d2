package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliopulse/internal/dateselect"
)

func newTestDateRangeService() *DateRangeService {
	svc := NewDateRangeService(testLogger())
	svc.now = testClock
	return svc
}

func TestPresets(t *testing.T) {
	svc := newTestDateRangeService()

	presets := svc.Presets(context.Background())
	require.Len(t, presets, 7)

	assert.Equal(t, "12m", presets[0].ID)
	assert.Equal(t, "2024-06-17", presets[0].StartDate)
	assert.Equal(t, "2025-06-17", presets[0].EndDate)

	last := presets[len(presets)-1]
	assert.Equal(t, "prev_year", last.ID)
	assert.Equal(t, "2024-01-01", last.StartDate)
	assert.Equal(t, "2024-12-31", last.EndDate)
}

func TestPreset(t *testing.T) {
	svc := newTestDateRangeService()

	rng, err := svc.Preset(context.Background(), "ytd")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", rng.StartDate)
	assert.Equal(t, dateselect.KindPreset, rng.Kind)

	_, err = svc.Preset(context.Background(), "6m")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalendar(t *testing.T) {
	svc := newTestDateRangeService()

	month, err := svc.Calendar(context.Background(), 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, 2025, month.Year)
	assert.Equal(t, 6, month.Month)
	assert.Len(t, month.Cells, dateselect.GridSize)

	tests := []struct {
		name        string
		year, month int
	}{
		{"month too low", 2025, 0},
		{"month too high", 2025, 13},
		{"year before minimum", dateselect.MinCustomYear - 1, 6},
		{"year in the future", 2026, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Calendar(context.Background(), tt.year, tt.month)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCutoff(t *testing.T) {
	svc := newTestDateRangeService()
	assert.Equal(t, "2025-06-17", svc.Cutoff())
}

func TestValidateRange(t *testing.T) {
	svc := newTestDateRangeService()

	assert.NoError(t, svc.ValidateRange(context.Background(), dateselect.DateRange{
		StartDate: "2024-01-01", EndDate: "2025-06-17",
	}))

	err := svc.ValidateRange(context.Background(), dateselect.DateRange{
		StartDate: "2025-06-17", EndDate: "2024-01-01",
	})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}
