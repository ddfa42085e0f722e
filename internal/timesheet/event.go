package timesheet

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedRecord is returned by Normalize for a raw record that misses a
// required field or carries an unusable time range.
var ErrMalformedRecord = errors.New("malformed event record")

// RawEvent is the minimal wire shape of a calendar event:
// summary, start.dateTime, end.dateTime, id and colorId.
type RawEvent struct {
	Summary string
	Start   string // RFC 3339 dateTime, empty for all-day events
	End     string // RFC 3339 dateTime, empty for all-day events
	ID      string
	ColorID string
}

// NormalizedEvent is a calendar event reduced to what the timesheet needs.
type NormalizedEvent struct {
	// Name is the event title and acts as the client grouping key.
	Name string
	// Start and End are expressed in the active timezone.
	Start time.Time
	End   time.Time
	ID    string
	// ColorTag is the calendar colorId, used as a status marker.
	ColorTag string
	// DurationMinutes is End - Start in whole minutes.
	DurationMinutes int
}

// Normalize converts one raw record. Start and End are converted into loc so
// that later weekday bucketing uses the active timezone; a nil loc means UTC.
//
// A record missing any of summary, start, end, id or colorId, with an
// unparseable timestamp, or ending before it starts yields ErrMalformedRecord.
func Normalize(raw RawEvent, loc *time.Location) (NormalizedEvent, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch {
	case raw.Summary == "":
		return NormalizedEvent{}, fmt.Errorf("%w: missing summary", ErrMalformedRecord)
	case raw.Start == "":
		return NormalizedEvent{}, fmt.Errorf("%w: missing start", ErrMalformedRecord)
	case raw.End == "":
		return NormalizedEvent{}, fmt.Errorf("%w: missing end", ErrMalformedRecord)
	case raw.ID == "":
		return NormalizedEvent{}, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	case raw.ColorID == "":
		return NormalizedEvent{}, fmt.Errorf("%w: missing colorId", ErrMalformedRecord)
	}

	start, err := time.Parse(time.RFC3339, raw.Start)
	if err != nil {
		return NormalizedEvent{}, fmt.Errorf("%w: start %q: %v", ErrMalformedRecord, raw.Start, err)
	}
	end, err := time.Parse(time.RFC3339, raw.End)
	if err != nil {
		return NormalizedEvent{}, fmt.Errorf("%w: end %q: %v", ErrMalformedRecord, raw.End, err)
	}
	if end.Before(start) {
		return NormalizedEvent{}, fmt.Errorf("%w: end %s before start %s", ErrMalformedRecord, raw.End, raw.Start)
	}

	return NormalizedEvent{
		Name:            raw.Summary,
		Start:           start.In(loc),
		End:             end.In(loc),
		ID:              raw.ID,
		ColorTag:        raw.ColorID,
		DurationMinutes: int(end.Sub(start) / time.Minute),
	}, nil
}

// NormalizeAll normalizes every record and silently drops malformed ones.
// The second return value is the number of dropped records.
func NormalizeAll(raw []RawEvent, loc *time.Location) ([]NormalizedEvent, int) {
	events := make([]NormalizedEvent, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		ev, err := Normalize(r, loc)
		if err != nil {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	return events, dropped
}

// FilterByName returns the events whose Name is exactly name.
func FilterByName(events []NormalizedEvent, name string) []NormalizedEvent {
	var matched []NormalizedEvent
	for _, ev := range events {
		if ev.Name == name {
			matched = append(matched, ev)
		}
	}
	return matched
}
