package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calsheet/internal/timesheet"
)

type fakeCalendar struct {
	mu sync.Mutex

	calendarID string
	resolveErr error
	colors     timesheet.EventColors
	events     []timesheet.RawEvent
	// fetchErrs are returned by successive FetchEvents calls before events.
	fetchErrs []error

	fetches []timesheet.WeekWindow
	created []string
	patched map[string]string
}

func newFakeCalendar(events []timesheet.RawEvent) *fakeCalendar {
	return &fakeCalendar{
		calendarID: "primary@example.com",
		colors:     timesheet.EventColors{"10": {Background: "#51b749"}},
		events:     events,
		patched:    make(map[string]string),
	}
}

func (f *fakeCalendar) ResolvePrimaryCalendar(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calendarID, f.resolveErr
}

func (f *fakeCalendar) FetchColors(ctx context.Context) (timesheet.EventColors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.colors, nil
}

func (f *fakeCalendar) FetchEvents(ctx context.Context, calendarID string, window timesheet.WeekWindow) ([]timesheet.RawEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, window)
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return nil, err
	}
	return append([]timesheet.RawEvent(nil), f.events...), nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, calendarID, name string, start, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	f.events = append(f.events, timesheet.RawEvent{
		Summary: name,
		Start:   start.Format(time.RFC3339),
		End:     end.Format(time.RFC3339),
		ID:      "created-" + name,
		ColorID: "11",
	})
	return nil
}

func (f *fakeCalendar) PatchEventColor(ctx context.Context, calendarID, eventID, colorTag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patched[eventID] = colorTag
	for i := range f.events {
		if f.events[i].ID == eventID {
			f.events[i].ColorID = colorTag
		}
	}
	return nil
}

func (f *fakeCalendar) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

type fakeAuth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeAuth) BeginAuth(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *fakeAuth) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeTicker struct {
	mu      sync.Mutex
	tick    func()
	stopped bool
}

func (f *fakeTicker) Start(tick func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tick = tick
	return nil
}

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) fire() {
	f.mu.Lock()
	tick := f.tick
	f.mu.Unlock()
	tick()
}

func startRunner(t *testing.T, cal CalendarService, auth Authenticator, ticker Ticker) (*Runner, context.Context) {
	t.Helper()

	machine := NewMachine(Config{
		Clock:           &fakeClock{now: time.Date(2024, time.June, 12, 14, 0, 0, 0, time.UTC)},
		CompleteColor:   "10",
		IncompleteColor: "11",
	})
	runner := NewRunner(machine, cal, auth, RunnerOptions{Ticker: ticker})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return runner, ctx
}

func settledAfter(gen uint64) func(View) bool {
	return func(v View) bool {
		return v.Generation > gen && Settled(v)
	}
}

func TestRunner_LoadAndMarkComplete(t *testing.T) {
	cal := newFakeCalendar(acmeWeek())
	runner, ctx := startRunner(t, cal, &fakeAuth{}, nil)

	require.NoError(t, runner.Start(ctx))
	v, err := runner.Wait(ctx, Settled)
	require.NoError(t, err)
	require.Equal(t, StateEventsLoaded, v.State)
	assert.Equal(t, "primary@example.com", v.CalendarID)
	assert.Len(t, v.Rows, 3)

	ack, err := runner.MarkComplete(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 3, ack.Matched)
	assert.NotEmpty(t, ack.BatchID)

	v, err = runner.Wait(ctx, settledAfter(v.Generation))
	require.NoError(t, err)
	assert.Equal(t, 0, v.Pending)
	assert.Equal(t, timesheet.ColorMinutes{"10": 135}, v.Rows[0].WeeklyTotal())

	cal.mu.Lock()
	assert.Equal(t, map[string]string{"a1": "10", "a2": "10", "a3": "10"}, cal.patched)
	cal.mu.Unlock()
	assert.Equal(t, 2, cal.fetchCount())
}

func TestRunner_MarkWithoutMatchesDoesNotRefresh(t *testing.T) {
	cal := newFakeCalendar(acmeWeek())
	runner, ctx := startRunner(t, cal, &fakeAuth{}, nil)

	require.NoError(t, runner.Start(ctx))
	_, err := runner.Wait(ctx, Settled)
	require.NoError(t, err)

	ack, err := runner.MarkIncomplete(ctx, "Nobody")
	require.NoError(t, err)
	assert.Equal(t, Ack{}, ack)

	// Navigation is processed after the no-op, so once it settles every
	// request caused by the mark has been observed.
	require.NoError(t, runner.GoBack(ctx))
	v, err := runner.Wait(ctx, func(v View) bool { return v.WeeksBack == 1 && Settled(v) })
	require.NoError(t, err)
	assert.Equal(t, 2, cal.fetchCount())
	assert.Equal(t, "Mon Jun 3 - Sun Jun 9, 2024", v.Label)
}

func TestRunner_ScheduledRefresh(t *testing.T) {
	cal := newFakeCalendar(acmeWeek())
	ticker := &fakeTicker{}
	runner, ctx := startRunner(t, cal, &fakeAuth{}, ticker)

	require.NoError(t, runner.Start(ctx))
	v, err := runner.Wait(ctx, Settled)
	require.NoError(t, err)

	ticker.fire()
	_, err = runner.Wait(ctx, settledAfter(v.Generation))
	require.NoError(t, err)
	assert.Equal(t, 2, cal.fetchCount())
}

func TestRunner_ReauthenticatesOnRejectedCredential(t *testing.T) {
	cal := newFakeCalendar(acmeWeek())
	cal.fetchErrs = []error{errAuth}
	auth := &fakeAuth{}
	runner, ctx := startRunner(t, cal, auth, nil)

	require.NoError(t, runner.Start(ctx))
	v, err := runner.Wait(ctx, Settled)
	require.NoError(t, err)

	assert.Equal(t, StateEventsLoaded, v.State)
	assert.Equal(t, 2, auth.count())
	assert.Equal(t, 2, cal.fetchCount())
}

func TestRunner_LoginFailure(t *testing.T) {
	runner, ctx := startRunner(t, newFakeCalendar(nil), &fakeAuth{err: errors.New("denied")}, nil)

	require.NoError(t, runner.Start(ctx))
	v, err := runner.Wait(ctx, Settled)
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, v.State)
	assert.Contains(t, v.Reason(), "denied")
}

func TestRunner_CreateNewEvent(t *testing.T) {
	cal := newFakeCalendar(nil)
	runner, ctx := startRunner(t, cal, &fakeAuth{}, nil)

	assert.ErrorIs(t, runner.CreateNewEvent(ctx, "Acme"), ErrNoCalendar)

	require.NoError(t, runner.Start(ctx))
	v, err := runner.Wait(ctx, Settled)
	require.NoError(t, err)

	require.NoError(t, runner.CreateNewEvent(ctx, "Acme"))
	v, err = runner.Wait(ctx, settledAfter(v.Generation))
	require.NoError(t, err)

	require.Len(t, v.Events, 1)
	assert.Equal(t, "Acme", v.Events[0].Name)
	assert.Equal(t, 60, v.Events[0].DurationMinutes)
}

func TestRunner_StoppedCommands(t *testing.T) {
	machine := NewMachine(Config{})
	runner := NewRunner(machine, newFakeCalendar(nil), &fakeAuth{}, RunnerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, runner.Refresh(context.Background()), ErrStopped)
	assert.Error(t, runner.Run(context.Background()))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunner_DroppedEventsLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		logged bool
	}{
		{name: "hidden at info", level: slog.LevelInfo, logged: false},
		{name: "visible at debug", level: slog.LevelDebug, logged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := acmeWeek()
			raw[0].ColorID = ""

			var out lockedBuffer
			logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: tt.level}))

			machine := NewMachine(Config{
				Clock:           &fakeClock{now: time.Date(2024, time.June, 12, 14, 0, 0, 0, time.UTC)},
				CompleteColor:   "10",
				IncompleteColor: "11",
			})
			runner := NewRunner(machine, newFakeCalendar(raw), &fakeAuth{}, RunnerOptions{Logger: logger})

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			done := make(chan error, 1)
			go func() { done <- runner.Run(ctx) }()
			defer func() {
				cancel()
				<-done
			}()

			require.NoError(t, runner.Start(ctx))
			v, err := runner.Wait(ctx, Settled)
			require.NoError(t, err)
			require.Equal(t, 1, v.Dropped)

			assert.Equal(t, tt.logged, strings.Contains(out.String(), "dropped malformed events"))
			assert.NotContains(t, out.String(), "level=WARN")
		})
	}
}
