package calendar

import (
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/calsheet/internal/timesheet"
)

// Operation names reported in metrics and span names.
const (
	opListCalendars = "list_calendars"
	opColors        = "colors"
	opListEvents    = "list_events"
	opCreate        = "create"
	opPatch         = "patch"
)

// toRawEvent reduces an API event to the fields the timesheet reads.
// All-day events carry a Date instead of a DateTime and come out with an
// empty Start or End.
func toRawEvent(event *calendar.Event) timesheet.RawEvent {
	if event == nil {
		return timesheet.RawEvent{}
	}

	raw := timesheet.RawEvent{
		Summary: event.Summary,
		ID:      event.Id,
		ColorID: event.ColorId,
	}
	if event.Start != nil {
		raw.Start = event.Start.DateTime
	}
	if event.End != nil {
		raw.End = event.End.DateTime
	}
	return raw
}

// toEventColors converts the event section of the color palette.
func toEventColors(colors *calendar.Colors) timesheet.EventColors {
	out := timesheet.EventColors{}
	if colors == nil {
		return out
	}
	for tag, def := range colors.Event {
		out[tag] = timesheet.ColorSpec{
			Background: def.Background,
			Foreground: def.Foreground,
		}
	}
	return out
}

// primaryCalendarID returns the id of the entry flagged primary.
func primaryCalendarID(entries []*calendar.CalendarListEntry) (string, bool) {
	for _, entry := range entries {
		if entry != nil && entry.Primary {
			return entry.Id, true
		}
	}
	return "", false
}
