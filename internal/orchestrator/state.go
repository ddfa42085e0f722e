package orchestrator

// State is the readiness of the calendar and its events.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateCalendarResolving
	StateReady
	StateEventsLoading
	StateEventsLoaded
	StateEventsFailed
)

var stateNames = map[State]string{
	StateUnauthenticated:   "unauthenticated",
	StateAuthenticating:    "authenticating",
	StateCalendarResolving: "calendar_resolving",
	StateReady:             "ready",
	StateEventsLoading:     "events_loading",
	StateEventsLoaded:      "events_loaded",
	StateEventsFailed:      "events_failed",
}

// String returns the snake_case name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Settled reports whether no events request is outstanding for the state.
func (s State) Settled() bool {
	return s == StateEventsLoaded || s == StateEventsFailed
}

// Trigger names what caused a refresh.
type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerScheduled  Trigger = "scheduled"
	TriggerNavigation Trigger = "navigation"
	TriggerMutation   Trigger = "mutation"
	TriggerAuth       Trigger = "auth"
	TriggerCalendar   Trigger = "calendar"
)
