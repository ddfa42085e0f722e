package orchestrator

import (
	"github.com/teemow/calsheet/internal/timesheet"
)

// View is an immutable snapshot of the orchestrator for presentation.
type View struct {
	State      State
	CalendarID string
	WeeksBack  int
	Window     timesheet.WeekWindow
	Label      string
	Generation uint64

	// Rows is the latest summary, total row last. Nil before the first load.
	Rows    []timesheet.ClientDaySummary
	Events  []timesheet.NormalizedEvent
	Dropped int
	Colors  timesheet.EventColors

	Pending   int
	LastBatch *BatchProgress

	// Err is the reason for StateEventsFailed or a failed login.
	Err error
	// Notice is the latest non-terminal error, such as a rejected mutation.
	Notice error
}

// Reason returns a short human-readable failure reason, or "".
func (v View) Reason() string {
	if v.Err == nil {
		return ""
	}
	return v.Err.Error()
}

// Loaded reports whether the view carries a summary for its current window.
func (v View) Loaded() bool {
	return v.State == StateEventsLoaded
}

// Snapshot returns the current View. Slices and maps in the result are shared
// with the machine but never mutated after publication.
func (m *Machine) Snapshot() View {
	v := View{
		State:      m.state,
		CalendarID: m.calendarID,
		WeeksBack:  m.weeksBack,
		Window:     m.window,
		Label:      m.window.Label(),
		Generation: m.generation,
		Rows:       m.rows,
		Events:     m.events,
		Dropped:    m.dropped,
		Colors:     m.colors,
		Pending:    len(m.pending),
		Err:        m.failure,
		Notice:     m.notice,
	}
	if m.lastBatch != nil {
		batch := *m.lastBatch
		batch.Failed = append([]string(nil), m.lastBatch.Failed...)
		v.LastBatch = &batch
	}
	return v
}
