package dateselect

import (
	"fmt"
	"time"
)

// RangeKind tags how a DateRange was produced.
type RangeKind string

const (
	KindPreset RangeKind = "preset"
	KindCustom RangeKind = "custom"
)

// DateRange is a committed start/end date pair. Ranges are replaced wholesale
// on every change, never mutated in place.
type DateRange struct {
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Label     string    `json:"label"`
	Kind      RangeKind `json:"kind"`
}

// Validate checks the range invariants: both dates parse, start <= end, and
// the end date is not beyond the cutoff derived from reference.
func (r DateRange) Validate(reference time.Time) error {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", r.StartDate, err)
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", r.EndDate, err)
	}
	if start.After(end) {
		return fmt.Errorf("start date %s after end date %s", r.StartDate, r.EndDate)
	}
	if end.After(PreviousWorkingDay(reference)) {
		return fmt.Errorf("end date %s is beyond the last completed working day", r.EndDate)
	}
	return nil
}

// PresetID identifies one of the fixed range rules.
type PresetID string

const (
	Preset12Months     PresetID = "12m"
	Preset24Months     PresetID = "24m"
	Preset36Months     PresetID = "36m"
	Preset48Months     PresetID = "48m"
	Preset60Months     PresetID = "60m"
	PresetYearToDate   PresetID = "ytd"
	PresetPreviousYear PresetID = "prev_year"
)

var presetMonths = map[PresetID]int{
	Preset12Months: 12,
	Preset24Months: 24,
	Preset36Months: 36,
	Preset48Months: 48,
	Preset60Months: 60,
}

// PresetIDs lists all presets in display order.
func PresetIDs() []PresetID {
	return []PresetID{
		Preset12Months, Preset24Months, Preset36Months,
		Preset48Months, Preset60Months,
		PresetYearToDate, PresetPreviousYear,
	}
}

// PresetRange computes the DateRange for a preset at the given reference
// instant. Month-back presets end at the cutoff and start the same
// day-of-month N months earlier (clamped to shorter months); year-to-date
// starts January 1 of the cutoff's year; previous-year covers the full prior
// calendar year.
func PresetRange(id PresetID, reference time.Time) (DateRange, error) {
	cutoff := PreviousWorkingDay(reference)

	if months, ok := presetMonths[id]; ok {
		return DateRange{
			StartDate: FormatDate(addMonthsClamped(cutoff, -months)),
			EndDate:   FormatDate(cutoff),
			Label:     fmt.Sprintf("%d Months", months),
			Kind:      KindPreset,
		}, nil
	}

	switch id {
	case PresetYearToDate:
		jan1 := time.Date(cutoff.Year(), time.January, 1, 0, 0, 0, 0, cutoff.Location())
		return DateRange{
			StartDate: FormatDate(jan1),
			EndDate:   FormatDate(cutoff),
			Label:     "Year to Date",
			Kind:      KindPreset,
		}, nil
	case PresetPreviousYear:
		y := cutoff.Year() - 1
		return DateRange{
			StartDate: FormatDate(time.Date(y, time.January, 1, 0, 0, 0, 0, cutoff.Location())),
			EndDate:   FormatDate(time.Date(y, time.December, 31, 0, 0, 0, 0, cutoff.Location())),
			Label:     "Previous Year",
			Kind:      KindPreset,
		}, nil
	}
	return DateRange{}, fmt.Errorf("unknown preset %q", id)
}

// addMonthsClamped shifts a date by whole months, keeping the day-of-month
// and clamping to the last valid day when the target month is shorter.
// time.AddDate would overflow into the next month instead.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if max := DaysInMonth(target.Year(), target.Month()); d > max {
		d = max
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, t.Location())
}

// CalendarSide distinguishes the start and end calendar widgets.
type CalendarSide string

const (
	SideStart CalendarSide = "start"
	SideEnd   CalendarSide = "end"
)

// MinCustomYear is the earliest year accepted by the free-text year input.
const MinCustomYear = 2000

type cursor struct {
	Year  int
	Month time.Month
}

// Selector orchestrates the two calendar cursors and the committed range.
// It mirrors a single user's selection state and is not safe for concurrent
// use; callers own any required synchronization.
type Selector struct {
	now       func() time.Time
	cursors   map[CalendarSide]cursor
	committed DateRange
}

// NewSelector creates a selector with both cursors on the cutoff month and
// the default 12-month preset committed. A nil clock means time.Now.
func NewSelector(now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	s := &Selector{now: now}
	s.Reset()
	return s
}

// Reset restores the default committed range and realigns both cursors.
func (s *Selector) Reset() {
	cutoff := PreviousWorkingDay(s.now())
	s.cursors = map[CalendarSide]cursor{
		SideStart: {Year: cutoff.Year(), Month: cutoff.Month()},
		SideEnd:   {Year: cutoff.Year(), Month: cutoff.Month()},
	}
	s.committed, _ = PresetRange(Preset12Months, s.now())
}

// Committed returns the current DateRange.
func (s *Selector) Committed() DateRange { return s.committed }

// Cutoff returns the last completed working day for the selector's clock.
func (s *Selector) Cutoff() time.Time { return PreviousWorkingDay(s.now()) }

// Cursor returns the (year, month) a calendar side is showing.
func (s *Selector) Cursor(side CalendarSide) (int, time.Month) {
	c := s.cursors[side]
	return c.Year, c.Month
}

// Grid builds the 42-cell grid for a calendar side's cursor.
func (s *Selector) Grid(side CalendarSide) []CalendarCell {
	c := s.cursors[side]
	return BuildMonthGrid(c.Year, c.Month, s.now())
}

// SelectPreset commits a preset range and returns it.
func (s *Selector) SelectPreset(id PresetID) (DateRange, error) {
	r, err := PresetRange(id, s.now())
	if err != nil {
		return DateRange{}, err
	}
	s.committed = r
	return r, nil
}

// SelectCustomDay applies a calendar-day click to one side of the range.
// Returns the new committed range and true when the click was accepted; a
// click on a day after the cutoff, or one that would invert the range, is a
// no-op and returns the unchanged range with false. The untouched side keeps
// its committed value.
func (s *Selector) SelectCustomDay(side CalendarSide, year int, month time.Month, day int) (DateRange, bool) {
	if IsAfterCutoff(year, month, day, s.now()) {
		return s.committed, false
	}
	picked := FormatDate(time.Date(year, month, day, 0, 0, 0, 0, MarketLocation()))

	next := s.committed
	next.Kind = KindCustom
	switch side {
	case SideStart:
		next.StartDate = picked
	case SideEnd:
		next.EndDate = picked
	default:
		return s.committed, false
	}
	if next.StartDate > next.EndDate {
		return s.committed, false
	}
	next.Label = customLabel(next.StartDate, next.EndDate)

	s.committed = next
	return next, true
}

// NavigateMonth moves a calendar cursor by delta months, rolling across year
// boundaries in either direction.
func (s *Selector) NavigateMonth(side CalendarSide, delta int) {
	c := s.cursors[side]
	t := time.Date(c.Year, c.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	s.cursors[side] = cursor{Year: t.Year(), Month: t.Month()}
}

// SetCursorYear applies a free-text year entry to a calendar cursor. Years
// outside [MinCustomYear, current year] are rejected and leave the cursor on
// its last valid year.
func (s *Selector) SetCursorYear(side CalendarSide, year int) error {
	if year < MinCustomYear || year > s.now().In(MarketLocation()).Year() {
		return fmt.Errorf("year %d out of range [%d, %d]", year, MinCustomYear, s.now().In(MarketLocation()).Year())
	}
	c := s.cursors[side]
	c.Year = year
	s.cursors[side] = c
	return nil
}

func customLabel(start, end string) string {
	s, err1 := ParseDate(start)
	e, err2 := ParseDate(end)
	if err1 != nil || err2 != nil {
		return start + " – " + end
	}
	return s.Format("Jan 2, 2006") + " – " + e.Format("Jan 2, 2006")
}
