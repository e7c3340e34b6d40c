package schedule

import (
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
)

// DateKey is the canonical YYYY-MM-DD form used for daily_progress rows
// and approval date_for columns.
const DateKey = "2006-01-02"

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// TaskAppliesOn reports whether a task with the given day filter is due on
// the given date. Unknown filters behave like anyday.
func TaskAppliesOn(dayType string, date time.Time) bool {
	switch dayType {
	case model.DayTypeWeekday:
		return !IsWeekend(date)
	case model.DayTypeWeekend:
		return IsWeekend(date)
	default:
		return true
	}
}

// WeekBounds returns the household week containing date. Weeks run Friday
// through Thursday so weekend allowances line up with the end of the
// school week.
func WeekBounds(date time.Time) (start, end time.Time) {
	date = StartOfDay(date)
	daysSinceFriday := (int(date.Weekday()) - int(time.Friday) + 7) % 7
	start = date.AddDate(0, 0, -daysSinceFriday)
	end = start.AddDate(0, 0, 6)
	return start, end
}
