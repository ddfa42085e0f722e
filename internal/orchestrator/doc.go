// Package orchestrator sequences the calendar requests behind the timesheet.
//
// The package is split in two layers:
//
//   - Machine is a pure state machine. It consumes typed messages (user
//     commands and request completions) and returns intents describing the
//     requests to issue. It never performs I/O.
//   - Runner owns a Machine and a single-consumer inbox. It executes intents
//     against a CalendarService and an Authenticator in the background and
//     feeds their results back into the inbox as completion messages.
//
// States progress as
//
//	Unauthenticated -> Authenticating -> CalendarResolving -> Ready
//	  -> EventsLoading -> EventsLoaded | EventsFailed
//
// An auth rejection on any request moves the machine back to Authenticating
// and resumes once a new credential is available. While color changes are in
// flight, refreshes are suppressed; the last acknowledgement of a batch
// triggers exactly one refresh.
//
// Every events request carries a generation number. A response whose
// generation is not the latest one is discarded, so navigating quickly
// between weeks never shows a stale week.
package orchestrator
