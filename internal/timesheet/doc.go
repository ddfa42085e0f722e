// Package timesheet turns a flat list of Google Calendar events into a weekly
// timesheet.
//
// The package is pure: it never talks to the network. It provides:
//   - Normalize / NormalizeAll: raw event records to NormalizedEvent, dropping
//     records that miss a required field
//   - ComputeWindow: the [start, end) query window for a week, relative to now
//   - Aggregate: per-client, per-weekday, per-color-tag minute totals plus a
//     synthetic "Total" row
//   - EventColors: the color-tag metadata cache used for display
//   - FormatTable: a plain-text rendering of the summary
//
// Weekend events are folded into the Monday column; the table only has
// Monday through Friday.
//
// Example usage:
//
//	events := timesheet.NormalizeAll(raw, loc)
//	rows := timesheet.Aggregate(events, loc)
//	fmt.Print(timesheet.FormatTable(rows, timesheet.FormatOptions{Colors: colors}))
package timesheet
