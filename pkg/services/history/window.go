package history

import (
	"time"

	"github.com/fadedpez/ledger/pkg/entities"
)

// Window is a calendar lookback length
type Window struct {
	Years  int
	Months int
	Days   int
}

var windows = map[entities.HistoryType]Window{
	entities.HistoryTypeDaily:   {Days: 1},
	entities.HistoryTypeWeekly:  {Days: 7},
	entities.HistoryTypeMonthly: {Months: 1},
}

// unboundedWindow covers PERMANENT and any unrecognized type
var unboundedWindow = Window{Years: 200}

// WindowFor returns the retention window of a history type
func WindowFor(historyType entities.HistoryType) Window {
	if w, ok := windows[historyType]; ok {
		return w
	}
	return unboundedWindow
}

// Before returns now minus the window, computed in UTC and truncated to milliseconds.
// Month and year steps clamp to the last valid day of the target month.
func (w Window) Before(now time.Time) time.Time {
	t := now.UTC()
	if months := w.Years*12 + w.Months; months != 0 {
		t = SubtractMonths(t, months)
	}
	if w.Days != 0 {
		t = t.AddDate(0, 0, -w.Days)
	}
	return t.Truncate(time.Millisecond)
}

// Cutoff is the oldest timestamp still inside historyType's window at now
func Cutoff(now time.Time, historyType entities.HistoryType) time.Time {
	return WindowFor(historyType).Before(now)
}

// SubtractMonths moves t back n calendar months keeping the time of day.
// When the day does not exist in the target month it becomes that month's last day,
// so March 31 minus one month is February 28 (or 29).
func SubtractMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	// First of the target month never overflows
	first := time.Date(year, month-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}

	hour, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
