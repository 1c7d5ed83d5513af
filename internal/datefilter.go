package internal

import (
	"errors"
	"fmt"
	"time"
)

// DateFilter narrows candidates to a calendar month or a single day in UTC.
// A zero Year and Month means no filter.
type DateFilter struct {
	Year  int
	Month int
	Day   int
}

// Active reports whether the filter restricts anything
func (f DateFilter) Active() bool {
	return f.Year != 0 && f.Month != 0
}

// Validate enforces that year and month come together and day needs both
func (f DateFilter) Validate() error {
	if f.Day != 0 && (f.Year == 0 || f.Month == 0) {
		return errors.New("--date must be used together with --year and --month")
	}
	if (f.Year == 0) != (f.Month == 0) {
		return errors.New("--year and --month must be provided together")
	}
	if !f.Active() {
		return nil
	}
	if f.Month < 1 || f.Month > 12 {
		return fmt.Errorf("--month must be between 1 and 12, got %d", f.Month)
	}
	if f.Day != 0 {
		if f.Day < 1 || f.Day > 31 {
			return fmt.Errorf("--date must be between 1 and 31, got %d", f.Day)
		}
		if t := time.Date(f.Year, time.Month(f.Month), f.Day, 0, 0, 0, 0, time.UTC); t.Day() != f.Day {
			return fmt.Errorf("%04d-%02d has no day %d", f.Year, f.Month, f.Day)
		}
	}
	return nil
}

// Window returns the half-open UTC interval [start, end) covered by the filter
func (f DateFilter) Window() (start, end time.Time, ok bool) {
	if !f.Active() {
		return time.Time{}, time.Time{}, false
	}
	if f.Day != 0 {
		start = time.Date(f.Year, time.Month(f.Month), f.Day, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1), true
	}
	start = time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), true
}

// Contains reports whether t falls inside the window; always true when inactive
func (f DateFilter) Contains(t time.Time) bool {
	start, end, ok := f.Window()
	if !ok {
		return true
	}
	t = t.UTC()
	return !t.Before(start) && t.Before(end)
}

func (f DateFilter) String() string {
	switch {
	case !f.Active():
		return "all dates"
	case f.Day != 0:
		return fmt.Sprintf("%04d-%02d-%02d", f.Year, f.Month, f.Day)
	default:
		return fmt.Sprintf("%04d-%02d", f.Year, f.Month)
	}
}
