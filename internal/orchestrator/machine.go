package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/calsheet/internal/timesheet"
)

// Command rejections returned by Machine.Handle.
var (
	ErrNoCalendar = errors.New("calendar not resolved yet")
	ErrEmptyName  = errors.New("event name must not be empty")
)

// DefaultNewEventDuration is the length of events created by CreateNewEvent.
const DefaultNewEventDuration = time.Hour

// New events start at the current time rounded down to this granularity.
const newEventGranularity = 15 * time.Minute

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Config configures a Machine.
type Config struct {
	// Location is the active timezone. Nil means UTC.
	Location *time.Location
	// Clock defaults to SystemClock.
	Clock Clock
	// CompleteColor and IncompleteColor are the color tags applied by
	// MarkComplete and MarkIncomplete.
	CompleteColor   string
	IncompleteColor string
	// NewEventDuration defaults to DefaultNewEventDuration.
	NewEventDuration time.Duration
	// WeeksBack is the initial week offset.
	WeeksBack int
	// NewBatchID defaults to uuid.NewString.
	NewBatchID func() string
}

// BatchProgress tracks the acknowledgements of one color-change batch.
type BatchProgress struct {
	ID           string
	Name         string
	ColorTag     string
	Total        int
	Acknowledged int
	// Failed lists the event IDs whose update was rejected.
	Failed []string
}

// Done reports whether every mutation of the batch has been acknowledged.
func (b BatchProgress) Done() bool {
	return b.Acknowledged >= b.Total
}

// Machine is the request orchestrator state machine. It is not safe for
// concurrent use; Runner serializes access to it.
type Machine struct {
	cfg Config

	state      State
	calendarID string
	weeksBack  int
	window     timesheet.WeekWindow
	generation uint64

	events  []timesheet.NormalizedEvent
	dropped int
	rows    []timesheet.ClientDaySummary

	colors         timesheet.EventColors
	colorsLoaded   bool
	colorsInFlight bool

	// pending counts outstanding color mutations per event ID.
	pending   map[string]int
	batches   map[string]*BatchProgress
	lastBatch *BatchProgress

	// failure is the reason for StateEventsFailed or a failed login.
	failure error
	// notice is the latest non-terminal error.
	notice error
}

// NewMachine creates a Machine in StateUnauthenticated.
func NewMachine(cfg Config) *Machine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.NewEventDuration <= 0 {
		cfg.NewEventDuration = DefaultNewEventDuration
	}
	if cfg.NewBatchID == nil {
		cfg.NewBatchID = uuid.NewString
	}

	m := &Machine{
		cfg:       cfg,
		state:     StateUnauthenticated,
		weeksBack: cfg.WeeksBack,
		colors:    timesheet.EventColors{},
		pending:   make(map[string]int),
		batches:   make(map[string]*BatchProgress),
	}
	m.window = timesheet.ComputeWindow(cfg.Clock.Now(), cfg.Location, m.weeksBack)
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Pending returns the number of events with an outstanding color mutation.
func (m *Machine) Pending() int {
	return len(m.pending)
}

// Handle applies msg and returns the intents to perform. A non-nil error means
// the command was rejected and the state is unchanged.
func (m *Machine) Handle(msg Message) ([]Intent, error) {
	switch msg := msg.(type) {
	case Start:
		if m.state != StateUnauthenticated {
			return nil, nil
		}
		return m.beginAuth(), nil
	case Refresh:
		trigger := msg.Trigger
		if trigger == "" {
			trigger = TriggerManual
		}
		return m.refresh(trigger), nil
	case Tick:
		return m.refresh(TriggerScheduled), nil
	case GoBack:
		return m.navigate(m.weeksBack + 1), nil
	case GoForward:
		return m.navigate(m.weeksBack - 1), nil
	case GoToCurrentWeek:
		return m.navigate(0), nil
	case CreateNewEvent:
		return m.createEvent(msg.Name)
	case MarkComplete:
		return m.startBatch(msg.Name, m.cfg.CompleteColor)
	case MarkIncomplete:
		return m.startBatch(msg.Name, m.cfg.IncompleteColor)
	case Authenticated:
		return m.onAuthenticated(msg), nil
	case CalendarResolved:
		return m.onCalendarResolved(msg), nil
	case ColorsFetched:
		return m.onColorsFetched(msg), nil
	case EventsFetched:
		return m.onEventsFetched(msg), nil
	case EventCreated:
		return m.onEventCreated(msg), nil
	case ColorPatched:
		return m.onColorPatched(msg), nil
	default:
		return nil, fmt.Errorf("unsupported message %T", msg)
	}
}

func (m *Machine) beginAuth() []Intent {
	if m.state == StateAuthenticating {
		return nil
	}
	m.state = StateAuthenticating
	// Responses to requests issued with the rejected credential are dropped;
	// the resume path fetches again.
	m.generation++
	return []Intent{BeginAuth{}}
}

func (m *Machine) resolveCalendar() []Intent {
	m.state = StateCalendarResolving
	intents := []Intent{ResolveCalendar{}}
	return append(intents, m.fetchColors()...)
}

func (m *Machine) fetchColors() []Intent {
	if m.colorsLoaded || m.colorsInFlight {
		return nil
	}
	m.colorsInFlight = true
	return []Intent{FetchColors{}}
}

func (m *Machine) refresh(trigger Trigger) []Intent {
	switch m.state {
	case StateUnauthenticated:
		if trigger == TriggerScheduled {
			return nil
		}
		return m.beginAuth()
	case StateAuthenticating, StateCalendarResolving:
		// The pending completion fetches events once it arrives.
		return nil
	}

	if len(m.pending) > 0 {
		return nil
	}
	if m.calendarID == "" {
		return m.resolveCalendar()
	}

	m.window = timesheet.ComputeWindow(m.cfg.Clock.Now(), m.cfg.Location, m.weeksBack)
	m.generation++
	m.state = StateEventsLoading
	return []Intent{FetchEvents{
		CalendarID: m.calendarID,
		Window:     m.window,
		Generation: m.generation,
		Trigger:    trigger,
	}}
}

func (m *Machine) navigate(weeksBack int) []Intent {
	m.weeksBack = weeksBack
	m.window = timesheet.ComputeWindow(m.cfg.Clock.Now(), m.cfg.Location, m.weeksBack)
	return m.refresh(TriggerNavigation)
}

func (m *Machine) onAuthenticated(msg Authenticated) []Intent {
	if m.state != StateAuthenticating {
		return nil
	}
	if msg.Err != nil {
		m.state = StateUnauthenticated
		m.failure = fmt.Errorf("authentication failed: %w", msg.Err)
		return nil
	}

	m.failure = nil
	if m.calendarID == "" {
		return m.resolveCalendar()
	}

	m.state = StateReady
	intents := m.refresh(TriggerAuth)
	return append(intents, m.fetchColors()...)
}

func (m *Machine) onCalendarResolved(msg CalendarResolved) []Intent {
	if msg.Err != nil {
		if timesheet.IsAuthFailure(msg.Err) {
			return m.beginAuth()
		}
		if m.state != StateCalendarResolving {
			return nil
		}
		m.state = StateEventsFailed
		m.failure = fmt.Errorf("failed to resolve calendar: %w", msg.Err)
		return nil
	}

	m.calendarID = msg.CalendarID
	if m.state != StateCalendarResolving {
		return nil
	}
	m.state = StateReady
	return m.refresh(TriggerCalendar)
}

func (m *Machine) onColorsFetched(msg ColorsFetched) []Intent {
	m.colorsInFlight = false
	if msg.Err != nil {
		m.notice = fmt.Errorf("failed to fetch colors: %w", msg.Err)
		if timesheet.IsAuthFailure(msg.Err) {
			return m.beginAuth()
		}
		return nil
	}

	m.colors = m.colors.Merge(msg.Colors)
	m.colorsLoaded = true
	return nil
}

func (m *Machine) onEventsFetched(msg EventsFetched) []Intent {
	if msg.Generation != m.generation || m.state != StateEventsLoading {
		return nil
	}
	if msg.Err != nil {
		if timesheet.IsAuthFailure(msg.Err) {
			return m.beginAuth()
		}
		m.state = StateEventsFailed
		m.failure = fmt.Errorf("failed to fetch events: %w", msg.Err)
		return nil
	}

	m.events, m.dropped = timesheet.NormalizeAll(msg.Raw, m.cfg.Location)
	m.rows = timesheet.Aggregate(m.events, m.cfg.Location)
	m.state = StateEventsLoaded
	m.failure = nil
	return nil
}

func (m *Machine) createEvent(name string) ([]Intent, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if m.calendarID == "" {
		return nil, ErrNoCalendar
	}

	start := m.cfg.Clock.Now().In(m.cfg.Location).Truncate(newEventGranularity)
	return []Intent{CreateEvent{
		CalendarID: m.calendarID,
		Name:       name,
		Start:      start,
		End:        start.Add(m.cfg.NewEventDuration),
	}}, nil
}

func (m *Machine) onEventCreated(msg EventCreated) []Intent {
	if msg.Err != nil {
		m.notice = fmt.Errorf("failed to create event %q: %w", msg.Name, msg.Err)
		if timesheet.IsAuthFailure(msg.Err) {
			return m.beginAuth()
		}
		return nil
	}
	return m.refresh(TriggerMutation)
}
