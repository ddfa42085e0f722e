package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes are the Google OAuth scopes calsheet requests.
// Reading events, creating events and changing their colors all need write
// access to the calendar.
var DefaultOAuthScopes = []string{
	calendar.CalendarScope,
}
