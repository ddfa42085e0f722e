// Package orchestratortest provides in-memory collaborators for exercising
// an orchestrator.Runner without Google.
package orchestratortest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/timesheet"
)

// CalendarID is the primary calendar id reported by Calendar.
const CalendarID = "primary@example.com"

// Default color tags used by NewRunner.
const (
	CompleteColor   = "10"
	IncompleteColor = "11"
)

var _ orchestrator.CalendarService = (*Calendar)(nil)

// Calendar is an in-memory orchestrator.CalendarService. Created events and
// color patches are applied to its event list, so a later fetch sees them.
type Calendar struct {
	mu sync.Mutex

	events    []timesheet.RawEvent
	colors    timesheet.EventColors
	fetchErrs []error
	patchErrs map[string]error

	fetches int
	created []string
	patched map[string]string
	seq     int
}

// NewCalendar returns a Calendar holding events.
func NewCalendar(events ...timesheet.RawEvent) *Calendar {
	return &Calendar{
		events: append([]timesheet.RawEvent(nil), events...),
		colors: timesheet.EventColors{
			CompleteColor:   {Background: "#51b749", Foreground: "#1d1d1d"},
			IncompleteColor: {Background: "#dc2127", Foreground: "#1d1d1d"},
		},
		patchErrs: make(map[string]error),
		patched:   make(map[string]string),
	}
}

// Event builds a raw event record.
func Event(id, name, colorTag string, start time.Time, d time.Duration) timesheet.RawEvent {
	return timesheet.RawEvent{
		Summary: name,
		Start:   start.Format(time.RFC3339),
		End:     start.Add(d).Format(time.RFC3339),
		ID:      id,
		ColorID: colorTag,
	}
}

// FailNextFetch makes the next FetchEvents call return err.
func (c *Calendar) FailNextFetch(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchErrs = append(c.fetchErrs, err)
}

// FailPatch makes every color patch of eventID return err.
func (c *Calendar) FailPatch(eventID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patchErrs[eventID] = err
}

// ResolvePrimaryCalendar implements orchestrator.CalendarService.
func (c *Calendar) ResolvePrimaryCalendar(context.Context) (string, error) {
	return CalendarID, nil
}

// FetchColors implements orchestrator.CalendarService.
func (c *Calendar) FetchColors(context.Context) (timesheet.EventColors, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.colors, nil
}

// FetchEvents implements orchestrator.CalendarService. Only events starting
// inside window are returned.
func (c *Calendar) FetchEvents(_ context.Context, _ string, window timesheet.WeekWindow) ([]timesheet.RawEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetches++
	if len(c.fetchErrs) > 0 {
		err := c.fetchErrs[0]
		c.fetchErrs = c.fetchErrs[1:]
		return nil, err
	}

	var out []timesheet.RawEvent
	for _, e := range c.events {
		start, err := time.Parse(time.RFC3339, e.Start)
		if err != nil || window.Contains(start) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateEvent implements orchestrator.CalendarService. New events carry the
// incomplete color.
func (c *Calendar) CreateEvent(_ context.Context, _ string, name string, start, end time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.created = append(c.created, name)
	c.events = append(c.events, timesheet.RawEvent{
		Summary: name,
		Start:   start.Format(time.RFC3339),
		End:     end.Format(time.RFC3339),
		ID:      "created-" + strconv.Itoa(c.seq),
		ColorID: IncompleteColor,
	})
	return nil
}

// PatchEventColor implements orchestrator.CalendarService.
func (c *Calendar) PatchEventColor(_ context.Context, _ string, eventID, colorTag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.patchErrs[eventID]; err != nil {
		return err
	}
	c.patched[eventID] = colorTag
	for i := range c.events {
		if c.events[i].ID == eventID {
			c.events[i].ColorID = colorTag
		}
	}
	return nil
}

// Fetches returns the number of FetchEvents calls.
func (c *Calendar) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Created returns the names of created events in order.
func (c *Calendar) Created() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.created...)
}

// Patched returns the color applied to each patched event.
func (c *Calendar) Patched() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.patched))
	for k, v := range c.patched {
		out[k] = v
	}
	return out
}

// Auth is an orchestrator.Authenticator that always succeeds.
type Auth struct{}

// BeginAuth implements orchestrator.Authenticator.
func (Auth) BeginAuth(context.Context) error { return nil }

// Clock is a fixed orchestrator.Clock.
type Clock struct {
	T time.Time
}

// Now implements orchestrator.Clock.
func (c Clock) Now() time.Time { return c.T }

// NewRunner returns a Runner over cal with the default color tags. A nil auth
// means Auth; a zero now means the wall clock.
func NewRunner(cal *Calendar, auth orchestrator.Authenticator, now time.Time) *orchestrator.Runner {
	if auth == nil {
		auth = Auth{}
	}
	cfg := orchestrator.Config{
		Location:        time.UTC,
		CompleteColor:   CompleteColor,
		IncompleteColor: IncompleteColor,
	}
	if !now.IsZero() {
		cfg.Clock = Clock{T: now}
	}
	return orchestrator.NewRunner(orchestrator.NewMachine(cfg), cal, auth, orchestrator.RunnerOptions{})
}
