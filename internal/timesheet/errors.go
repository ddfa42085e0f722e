package timesheet

import "errors"

// Failure classes reported by calendar collaborators. Implementations wrap
// these with fmt.Errorf("...: %w", ...) so callers can test with errors.Is.
var (
	// ErrAuthFailure means the credential was rejected (HTTP 401). It is
	// recoverable by authenticating again.
	ErrAuthFailure = errors.New("authentication rejected")

	// ErrNoPrimaryCalendar means the calendar list has no entry flagged primary.
	ErrNoPrimaryCalendar = errors.New("no primary calendar")
)

// IsAuthFailure reports whether err carries ErrAuthFailure.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailure)
}
