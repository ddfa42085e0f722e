// Package calendar talks to the Google Calendar API on behalf of the
// timesheet orchestrator.
//
// Client implements orchestrator.CalendarService: it resolves the primary
// calendar, reads the event color palette, lists the events of a week,
// inserts events and patches event colors. A rejected credential (HTTP 401
// or a failed token refresh) is reported as timesheet.ErrAuthFailure so the
// orchestrator can start a new login; the underlying service is rebuilt from
// the token store on the next call.
//
// Example usage:
//
//	oauth := google.NewOAuth(creds, "")
//	client := calendar.NewClient(oauth, calendar.Options{Account: "default"})
//
//	id, err := client.ResolvePrimaryCalendar(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	events, err := client.FetchEvents(ctx, id, timesheet.ComputeWindow(time.Now(), time.UTC, 0))
package calendar
