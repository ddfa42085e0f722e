package orchestrator

import (
	"time"

	"github.com/teemow/calsheet/internal/timesheet"
)

// Intent is a request the Machine wants performed. Each intent is answered by
// exactly one completion message.
type Intent interface {
	isIntent()
}

type (
	// BeginAuth starts the login flow. Answered by Authenticated.
	BeginAuth struct{}

	// ResolveCalendar looks up the primary calendar. Answered by CalendarResolved.
	ResolveCalendar struct{}

	// FetchColors loads the color metadata. Answered by ColorsFetched.
	FetchColors struct{}

	// FetchEvents lists the events of Window. Answered by EventsFetched
	// carrying the same Generation.
	FetchEvents struct {
		CalendarID string
		Window     timesheet.WeekWindow
		Generation uint64
		Trigger    Trigger
	}

	// CreateEvent inserts a new event. Answered by EventCreated.
	CreateEvent struct {
		CalendarID string
		Name       string
		Start      time.Time
		End        time.Time
	}

	// PatchColor sets the color of one event. Answered by ColorPatched.
	PatchColor struct {
		CalendarID string
		EventID    string
		ColorTag   string
		BatchID    string
	}
)

func (BeginAuth) isIntent()       {}
func (ResolveCalendar) isIntent() {}
func (FetchColors) isIntent()     {}
func (FetchEvents) isIntent()     {}
func (CreateEvent) isIntent()     {}
func (PatchColor) isIntent()      {}
