package dateselect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.January, 31},
		{2025, time.April, 30},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2000, time.February, 29},
		{1900, time.February, 28},
		{2025, time.December, 31},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysInMonth(tt.year, tt.month), "%d-%s", tt.year, tt.month)
	}
}

func TestBuildMonthGridShape(t *testing.T) {
	reference := at(2025, time.June, 18, 15) // cutoff 2025-06-17

	// June 2025 starts on a Sunday, so the grid leads with six May days.
	cells := BuildMonthGrid(2025, time.June, reference)
	require.Len(t, cells, GridSize)

	assert.Equal(t, CalendarCell{Day: 26, Membership: PreviousMonth}, cells[0])
	assert.Equal(t, CalendarCell{Day: 31, Membership: PreviousMonth}, cells[5])

	assert.Equal(t, 1, cells[6].Day)
	assert.Equal(t, CurrentMonth, cells[6].Membership)
	assert.Equal(t, 30, cells[35].Day)
	assert.Equal(t, CurrentMonth, cells[35].Membership)

	assert.Equal(t, CalendarCell{Day: 1, Membership: NextMonth}, cells[36])
	assert.Equal(t, CalendarCell{Day: 6, Membership: NextMonth}, cells[41])
}

func TestBuildMonthGridLeapFebruary(t *testing.T) {
	reference := at(2025, time.June, 18, 15)

	// February 2024 starts on a Thursday and has 29 days.
	cells := BuildMonthGrid(2024, time.February, reference)
	require.Len(t, cells, GridSize)

	assert.Equal(t, CalendarCell{Day: 29, Membership: PreviousMonth}, cells[0])
	assert.Equal(t, CalendarCell{Day: 31, Membership: PreviousMonth}, cells[2])
	assert.Equal(t, 1, cells[3].Day)
	assert.Equal(t, 29, cells[31].Day)
	assert.Equal(t, CurrentMonth, cells[31].Membership)
	assert.Equal(t, CalendarCell{Day: 10, Membership: NextMonth}, cells[41])
}

func TestBuildMonthGridSelectability(t *testing.T) {
	reference := at(2025, time.June, 18, 15) // cutoff 2025-06-17

	cells := BuildMonthGrid(2025, time.June, reference)
	byDay := map[int]CalendarCell{}
	for _, c := range cells {
		if c.Membership == CurrentMonth {
			byDay[c.Day] = c
		}
	}

	assert.True(t, byDay[1].Selectable)
	assert.True(t, byDay[17].Selectable, "cutoff day is selectable")
	assert.False(t, byDay[18].Selectable, "days past the cutoff are not")
	assert.False(t, byDay[30].Selectable)

	// Padding cells are never selectable regardless of their date.
	for _, c := range cells {
		if c.Membership != CurrentMonth {
			assert.False(t, c.Selectable)
		}
	}

	// A fully past month is selectable throughout.
	for _, c := range BuildMonthGrid(2024, time.March, reference) {
		if c.Membership == CurrentMonth {
			assert.True(t, c.Selectable, "day %d", c.Day)
		}
	}

	// A fully future month is not selectable at all.
	for _, c := range BuildMonthGrid(2025, time.July, reference) {
		if c.Membership == CurrentMonth {
			assert.False(t, c.Selectable, "day %d", c.Day)
		}
	}
}
