// Package cmd implements the command-line interface for calsheet.
//
// This package provides the following commands:
//   - summary: Print the weekly timesheet of the primary calendar
//   - mark: Mark every event of a client as complete or incomplete
//   - create: Create an event for a client starting now
//   - auth: Authorize access to Google Calendar
//   - config: Write or show the configuration file
//   - serve: Start the MCP server to provide timesheet tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The summary command is the default command when no subcommand is specified.
package cmd
