package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teemow/calsheet/internal/instrumentation"
	"github.com/teemow/calsheet/internal/logging"
	"github.com/teemow/calsheet/internal/timesheet"
)

// ErrStopped is returned by Runner commands once Run has returned.
var ErrStopped = errors.New("orchestrator stopped")

const defaultInboxSize = 64

// CalendarService performs the calendar requests. Failures caused by a
// rejected credential must wrap timesheet.ErrAuthFailure.
type CalendarService interface {
	ResolvePrimaryCalendar(ctx context.Context) (string, error)
	FetchColors(ctx context.Context) (timesheet.EventColors, error)
	FetchEvents(ctx context.Context, calendarID string, window timesheet.WeekWindow) ([]timesheet.RawEvent, error)
	CreateEvent(ctx context.Context, calendarID, name string, start, end time.Time) error
	PatchEventColor(ctx context.Context, calendarID, eventID, colorTag string) error
}

// Authenticator obtains a fresh credential. BeginAuth blocks until the login
// flow has finished or failed.
type Authenticator interface {
	BeginAuth(ctx context.Context) error
}

// Ticker fires the scheduled refresh. Start must not block.
type Ticker interface {
	Start(tick func()) error
	Stop()
}

// Ack describes how a command was applied.
type Ack struct {
	// BatchID is set for color changes that matched at least one event.
	BatchID string
	// Matched is the number of events a color change applies to.
	Matched int
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	// Ticker drives scheduled refreshes. Nil disables them.
	Ticker Ticker
}

type outcome struct {
	ack Ack
	err error
}

type envelope struct {
	msg   Message
	reply chan outcome
}

// Runner drives a Machine from a single goroutine. Intents are executed in
// background goroutines and their results are queued as completion messages,
// so no request ever blocks the loop.
type Runner struct {
	machine  *Machine
	calendar CalendarService
	auth     Authenticator
	ticker   Ticker
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	inbox   chan envelope
	done    chan struct{}
	running atomic.Bool

	inflight sync.WaitGroup

	view    atomic.Pointer[View]
	mu      sync.Mutex
	changed chan struct{}
}

// NewRunner creates a Runner. Call Run to start processing.
func NewRunner(machine *Machine, calendar CalendarService, auth Authenticator, opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = &instrumentation.Metrics{}
	}

	r := &Runner{
		machine:  machine,
		calendar: calendar,
		auth:     auth,
		ticker:   opts.Ticker,
		logger:   logging.WithService(opts.Logger, "orchestrator"),
		metrics:  opts.Metrics,
		inbox:    make(chan envelope, defaultInboxSize),
		done:     make(chan struct{}),
		changed:  make(chan struct{}),
	}
	v := machine.Snapshot()
	r.view.Store(&v)
	return r
}

// Run processes messages until ctx is cancelled. It may be called once.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("orchestrator already running")
	}
	defer close(r.done)

	if r.ticker != nil {
		if err := r.ticker.Start(func() { r.enqueue(ctx, Tick{}) }); err != nil {
			return fmt.Errorf("failed to start refresh schedule: %w", err)
		}
		defer r.ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			r.inflight.Wait()
			return nil
		case env := <-r.inbox:
			r.process(ctx, env)
		}
	}
}

func (r *Runner) process(ctx context.Context, env envelope) {
	before := r.machine.Snapshot()

	intents, err := r.machine.Handle(env.msg)
	if err != nil {
		r.logger.Debug("command rejected", "message", fmt.Sprintf("%T", env.msg), logging.Err(err))
		r.reply(env, outcome{err: err})
		return
	}

	after := r.machine.Snapshot()
	r.observe(ctx, env.msg, before, after)

	for _, intent := range intents {
		r.dispatch(ctx, intent)
	}

	r.publish(after)
	r.reply(env, outcome{ack: ackFor(intents)})
}

func (r *Runner) reply(env envelope, out outcome) {
	if env.reply != nil {
		env.reply <- out
	}
}

func ackFor(intents []Intent) Ack {
	var ack Ack
	for _, intent := range intents {
		if patch, ok := intent.(PatchColor); ok {
			ack.BatchID = patch.BatchID
			ack.Matched++
		}
	}
	return ack
}

// observe logs and records metrics for a transition.
func (r *Runner) observe(ctx context.Context, msg Message, before, after View) {
	if delta := after.Pending - before.Pending; delta != 0 {
		r.metrics.AddPendingMutations(ctx, int64(delta))
	}

	if before.State != after.State {
		r.logger.Debug("state changed",
			logging.State(after.State.String()),
			slog.String("previous", before.State.String()),
			slog.String("message", fmt.Sprintf("%T", msg)))
	}

	if before.WeeksBack != after.WeeksBack {
		r.logger.Info("week selected", logging.WeeksBack(after.WeeksBack), slog.String("week", after.Label))
	}

	switch msg := msg.(type) {
	case EventsFetched:
		if after.State == StateEventsLoaded && after.Generation == msg.Generation && after.Dropped > 0 {
			r.logger.Debug("dropped malformed events",
				slog.Int("dropped", after.Dropped),
				logging.Generation(msg.Generation))
			r.metrics.RecordDroppedEvents(ctx, int64(after.Dropped))
		}
		if msg.Generation != after.Generation {
			r.logger.Debug("discarded stale events response",
				logging.Generation(msg.Generation),
				slog.Uint64("current_generation", after.Generation))
		}
	case ColorPatched:
		if msg.Err != nil {
			r.logger.Warn("color update failed",
				logging.EventID(msg.EventID),
				logging.BatchID(msg.BatchID),
				logging.Err(msg.Err))
		}
		if before.LastBatch != nil && after.LastBatch != nil && after.LastBatch.ID == msg.BatchID &&
			!before.LastBatch.Done() && after.LastBatch.Done() {
			status := instrumentation.StatusSuccess
			if len(after.LastBatch.Failed) > 0 {
				status = instrumentation.StatusError
			}
			r.metrics.RecordColorBatch(ctx, status, after.LastBatch.Total)
			r.logger.Info("color batch settled",
				logging.BatchID(msg.BatchID),
				logging.Client(after.LastBatch.Name),
				slog.Int("total", after.LastBatch.Total),
				slog.Int("failed", len(after.LastBatch.Failed)))
		}
	}

	if after.Err != nil && !errors.Is(after.Err, before.Err) {
		r.logger.Error("request failed", logging.State(after.State.String()), logging.Err(after.Err))
	}
	if after.Notice != nil && after.Notice != before.Notice {
		r.logger.Warn("request failed", logging.Err(after.Notice))
	}
}

func (r *Runner) dispatch(ctx context.Context, intent Intent) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		if msg := r.perform(ctx, intent); msg != nil {
			r.enqueue(ctx, msg)
		}
	}()
}

// perform executes intent and returns its completion message.
func (r *Runner) perform(ctx context.Context, intent Intent) Message {
	switch in := intent.(type) {
	case BeginAuth:
		r.logger.Info("authentication required")
		err := r.auth.BeginAuth(ctx)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		r.metrics.RecordAuthAttempt(ctx, status)
		return Authenticated{Err: err}

	case ResolveCalendar:
		id, err := r.calendar.ResolvePrimaryCalendar(ctx)
		if err == nil {
			r.logger.Debug("resolved primary calendar", logging.CalendarID(id))
		}
		return CalendarResolved{CalendarID: id, Err: err}

	case FetchColors:
		colors, err := r.calendar.FetchColors(ctx)
		return ColorsFetched{Colors: colors, Err: err}

	case FetchEvents:
		r.metrics.RecordRefresh(ctx, string(in.Trigger))
		r.logger.Debug("fetching events",
			logging.CalendarID(in.CalendarID),
			logging.Generation(in.Generation),
			logging.Trigger(string(in.Trigger)),
			slog.String("window", in.Window.Label()))
		raw, err := r.calendar.FetchEvents(ctx, in.CalendarID, in.Window)
		return EventsFetched{Generation: in.Generation, Raw: raw, Err: err}

	case CreateEvent:
		err := r.calendar.CreateEvent(ctx, in.CalendarID, in.Name, in.Start, in.End)
		if err == nil {
			r.logger.Info("created event", logging.Client(in.Name), slog.Time("start", in.Start))
		}
		return EventCreated{Name: in.Name, Err: err}

	case PatchColor:
		err := r.calendar.PatchEventColor(ctx, in.CalendarID, in.EventID, in.ColorTag)
		return ColorPatched{BatchID: in.BatchID, EventID: in.EventID, Err: err}

	default:
		r.logger.Error("unsupported intent", slog.String("intent", fmt.Sprintf("%T", intent)))
		return nil
	}
}

// enqueue queues a message without waiting for it to be processed.
func (r *Runner) enqueue(ctx context.Context, msg Message) {
	select {
	case r.inbox <- envelope{msg: msg}:
	case <-ctx.Done():
	case <-r.done:
	}
}

func (r *Runner) publish(v View) {
	r.view.Store(&v)
	r.mu.Lock()
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
}

// send queues a command and waits until the loop has applied it.
func (r *Runner) send(ctx context.Context, msg Message) (Ack, error) {
	env := envelope{msg: msg, reply: make(chan outcome, 1)}
	select {
	case r.inbox <- env:
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	case <-r.done:
		return Ack{}, ErrStopped
	}

	select {
	case out := <-env.reply:
		return out.ack, out.err
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	case <-r.done:
		return Ack{}, ErrStopped
	}
}

// View returns the latest published snapshot.
func (r *Runner) View() View {
	return *r.view.Load()
}

// Wait blocks until pred holds for the published view.
func (r *Runner) Wait(ctx context.Context, pred func(View) bool) (View, error) {
	for {
		r.mu.Lock()
		changed := r.changed
		r.mu.Unlock()

		v := r.View()
		if pred(v) {
			return v, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return v, ctx.Err()
		case <-r.done:
			return r.View(), ErrStopped
		}
	}
}

// Start begins authentication and calendar discovery.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.send(ctx, Start{})
	return err
}

// Refresh re-fetches the current week.
func (r *Runner) Refresh(ctx context.Context) error {
	_, err := r.send(ctx, Refresh{Trigger: TriggerManual})
	return err
}

// GoBack moves one week into the past and refreshes.
func (r *Runner) GoBack(ctx context.Context) error {
	_, err := r.send(ctx, GoBack{})
	return err
}

// GoForward moves one week into the future and refreshes.
func (r *Runner) GoForward(ctx context.Context) error {
	_, err := r.send(ctx, GoForward{})
	return err
}

// GoToCurrentWeek returns to the current week and refreshes.
func (r *Runner) GoToCurrentWeek(ctx context.Context) error {
	_, err := r.send(ctx, GoToCurrentWeek{})
	return err
}

// CreateNewEvent creates an event called name starting now.
func (r *Runner) CreateNewEvent(ctx context.Context, name string) error {
	_, err := r.send(ctx, CreateNewEvent{Name: name})
	return err
}

// MarkComplete retags every loaded event called name as complete.
func (r *Runner) MarkComplete(ctx context.Context, name string) (Ack, error) {
	return r.send(ctx, MarkComplete{Name: name})
}

// MarkIncomplete retags every loaded event called name as incomplete.
func (r *Runner) MarkIncomplete(ctx context.Context, name string) (Ack, error) {
	return r.send(ctx, MarkIncomplete{Name: name})
}

// Settled reports whether v has no request outstanding that would change the
// summary: events are loaded or failed with no pending color change, or the
// login failed.
func Settled(v View) bool {
	switch v.State {
	case StateEventsLoaded, StateEventsFailed:
		return v.Pending == 0
	case StateUnauthenticated:
		return v.Err != nil
	default:
		return false
	}
}
