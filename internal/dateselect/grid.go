package dateselect

import "time"

// GridSize is the fixed number of cells in a rendered month: 6 weeks of 7
// days, so the calendar keeps a stable height across months.
const GridSize = 42

// CellMembership tags a grid cell with the month its day number belongs to.
// Only CurrentMonth cells are selectable; the adjacent-month cells exist to
// pad the grid.
type CellMembership string

const (
	PreviousMonth CellMembership = "previous"
	CurrentMonth  CellMembership = "current"
	NextMonth     CellMembership = "next"
)

// CalendarCell is one day slot in a month grid. Cells have no persisted
// identity; grids are rebuilt from (year, month) on demand.
type CalendarCell struct {
	Day        int            `json:"day"`
	Membership CellMembership `json:"membership"`
	Selectable bool           `json:"selectable"`
}

// DaysInMonth returns the number of days in the given month, leap years
// included, using the day-zero-of-next-month normalization.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// mondayIndex normalizes a weekday so the week starts on Monday:
// Monday = 0 ... Sunday = 6.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// BuildMonthGrid produces the 42-cell grid for a month: the trailing days of
// the previous month up to the month's first weekday, every day of the month,
// then leading days of the next month until the grid is full. Selectability
// is evaluated against the working-day cutoff derived from reference.
func BuildMonthGrid(year int, month time.Month, reference time.Time) []CalendarCell {
	cells := make([]CalendarCell, 0, GridSize)

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := mondayIndex(first.Weekday())
	daysInPrev := DaysInMonth(year, month-1)

	for i := 0; i < lead; i++ {
		cells = append(cells, CalendarCell{
			Day:        daysInPrev - lead + i + 1,
			Membership: PreviousMonth,
		})
	}

	for day := 1; day <= DaysInMonth(year, month); day++ {
		cells = append(cells, CalendarCell{
			Day:        day,
			Membership: CurrentMonth,
			Selectable: !IsAfterCutoff(year, month, day, reference),
		})
	}

	for day := 1; len(cells) < GridSize; day++ {
		cells = append(cells, CalendarCell{
			Day:        day,
			Membership: NextMonth,
		})
	}

	return cells
}
