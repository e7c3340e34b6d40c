package schedule

import (
	"testing"
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTaskAppliesOn(t *testing.T) {
	monday := date(2025, time.March, 3)
	saturday := date(2025, time.March, 8)

	tests := []struct {
		name    string
		dayType string
		on      time.Time
		want    bool
	}{
		{"weekday task on monday", model.DayTypeWeekday, monday, true},
		{"weekday task on saturday", model.DayTypeWeekday, saturday, false},
		{"weekend task on saturday", model.DayTypeWeekend, saturday, true},
		{"weekend task on monday", model.DayTypeWeekend, monday, false},
		{"anyday task on monday", model.DayTypeAnyDay, monday, true},
		{"anyday task on saturday", model.DayTypeAnyDay, saturday, true},
		{"unknown filter defaults to anyday", "", saturday, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TaskAppliesOn(tt.dayType, tt.on); got != tt.want {
				t.Errorf("TaskAppliesOn(%q, %s) = %v, want %v", tt.dayType, tt.on.Format(DateKey), got, tt.want)
			}
		})
	}
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name      string
		on        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"friday starts its own week", date(2025, time.March, 7), date(2025, time.March, 7), date(2025, time.March, 13)},
		{"thursday closes previous week", date(2025, time.March, 13), date(2025, time.March, 7), date(2025, time.March, 13)},
		{"sunday mid-week", date(2025, time.March, 9), date(2025, time.March, 7), date(2025, time.March, 13)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekBounds(tt.on)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %s, want %s", start.Format(DateKey), tt.wantStart.Format(DateKey))
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %s, want %s", end.Format(DateKey), tt.wantEnd.Format(DateKey))
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	ts := time.Date(2025, time.June, 1, 23, 45, 12, 999, loc)
	got := StartOfDay(ts)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("StartOfDay = %v, want midnight", got)
	}
	if got.Location() != loc {
		t.Errorf("location changed: %v", got.Location())
	}
}
