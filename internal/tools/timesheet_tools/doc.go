// Package timesheet_tools exposes the weekly timesheet as MCP tools.
//
// Summary and navigation tools are always registered. Tools that write to the
// calendar (creating events, retagging events as complete or incomplete) are
// registered only when the server is not read-only.
//
// Every handler talks to the shared orchestrator.Runner held by the
// server.ServerContext, so MCP clients and the scheduled refresh observe the
// same week and summary.
package timesheet_tools
