package orchestrator

import (
	"github.com/teemow/calsheet/internal/timesheet"
)

// Message is an input to Machine.Handle: either a command or the completion
// of a previously emitted intent.
type Message interface {
	isMessage()
}

// Commands.
type (
	// Start begins the authentication and calendar discovery sequence.
	Start struct{}

	// Refresh re-fetches the events of the current week.
	Refresh struct {
		Trigger Trigger
	}

	// Tick is a scheduled refresh.
	Tick struct{}

	// GoBack moves one week into the past.
	GoBack struct{}

	// GoForward moves one week into the future.
	GoForward struct{}

	// GoToCurrentWeek returns to the week containing now.
	GoToCurrentWeek struct{}

	// CreateNewEvent creates an event named Name starting at the current
	// quarter hour.
	CreateNewEvent struct {
		Name string
	}

	// MarkComplete retags every loaded event named Name with the complete color.
	MarkComplete struct {
		Name string
	}

	// MarkIncomplete retags every loaded event named Name with the incomplete color.
	MarkIncomplete struct {
		Name string
	}
)

// Completions.
type (
	// Authenticated completes BeginAuth.
	Authenticated struct {
		Err error
	}

	// CalendarResolved completes ResolveCalendar.
	CalendarResolved struct {
		CalendarID string
		Err        error
	}

	// ColorsFetched completes FetchColors.
	ColorsFetched struct {
		Colors timesheet.EventColors
		Err    error
	}

	// EventsFetched completes FetchEvents.
	EventsFetched struct {
		Generation uint64
		Raw        []timesheet.RawEvent
		Err        error
	}

	// EventCreated completes CreateEvent.
	EventCreated struct {
		Name string
		Err  error
	}

	// ColorPatched completes one PatchColor.
	ColorPatched struct {
		BatchID string
		EventID string
		Err     error
	}
)

func (Start) isMessage()            {}
func (Refresh) isMessage()          {}
func (Tick) isMessage()             {}
func (GoBack) isMessage()           {}
func (GoForward) isMessage()        {}
func (GoToCurrentWeek) isMessage()  {}
func (CreateNewEvent) isMessage()   {}
func (MarkComplete) isMessage()     {}
func (MarkIncomplete) isMessage()   {}
func (Authenticated) isMessage()    {}
func (CalendarResolved) isMessage() {}
func (ColorsFetched) isMessage()    {}
func (EventsFetched) isMessage()    {}
func (EventCreated) isMessage()     {}
func (ColorPatched) isMessage()     {}
