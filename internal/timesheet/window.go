package timesheet

import (
	"fmt"
	"time"
)

// WeekStart is the weekday every window is anchored to.
const WeekStart = time.Monday

// WeekWindow is the [Start, End) range used to query one week of events.
type WeekWindow struct {
	Start time.Time
	End   time.Time
}

// ComputeWindow returns the window for the week that is weeksBack weeks before
// now (negative values look into the future). Both bounds are derived from the
// same shifted instant in loc; a nil loc means UTC.
func ComputeWindow(now time.Time, loc *time.Location, weeksBack int) WeekWindow {
	if loc == nil {
		loc = time.UTC
	}
	shifted := now.In(loc).AddDate(0, 0, -7*weeksBack)
	return WeekWindow{
		Start: floorWeek(shifted),
		End:   ceilWeek(shifted),
	}
}

// floorWeek returns local midnight of the WeekStart day on or before t.
func floorWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) - int(WeekStart) + 7) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// ceilWeek returns local midnight of the WeekStart day after t's week.
func ceilWeek(t time.Time) time.Time {
	return floorWeek(t).AddDate(0, 0, 7)
}

// Contains reports whether t falls inside [Start, End).
func (w WeekWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Label renders the window with its inclusive last day,
// e.g. "Mon Jun 10 - Sun Jun 16, 2024".
func (w WeekWindow) Label() string {
	if w.Start.IsZero() {
		return ""
	}
	last := w.End.AddDate(0, 0, -1)
	return fmt.Sprintf("%s - %s", w.Start.Format("Mon Jan 2"), last.Format("Mon Jan 2, 2006"))
}
