// Package resources provides MCP resources for the timesheet.
// Resources are read-only snapshots that MCP clients can fetch without
// sending a command to the orchestrator: the summary of the selected week
// and the calendar's color palette.
package resources
