package timesheet_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/server"
	"github.com/teemow/calsheet/internal/tools/batch"
	"github.com/teemow/calsheet/internal/tools/common"
)

// RegisterEventTools registers the tools that write to the calendar
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createEventTool := mcp.NewTool("timesheet_create_event",
		mcp.WithDescription("Create a calendar event for a client starting now (rounded down to the quarter hour). New events use the calendar's default color."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Client name used as the event title"),
		),
		formatOption(),
		waitOption("the event shows up in the summary"),
	)
	s.AddTool(createEventTool, common.InstrumentedToolHandler("timesheet_create_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	markCompleteTool := mcp.NewTool("timesheet_mark_complete",
		mcp.WithDescription("Mark every event of the selected week with the given client name(s) as complete by changing its color"),
		mcp.WithString("names",
			mcp.Required(),
			mcp.Description("Client name or array of client names (exact, case-sensitive match)"),
		),
		waitOption("every color change is acknowledged"),
	)
	s.AddTool(markCompleteTool, common.InstrumentedToolHandler("timesheet_mark_complete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMark(ctx, request, sc, sc.Runner().MarkComplete)
		}))

	markIncompleteTool := mcp.NewTool("timesheet_mark_incomplete",
		mcp.WithDescription("Mark every event of the selected week with the given client name(s) as incomplete by changing its color"),
		mcp.WithString("names",
			mcp.Required(),
			mcp.Description("Client name or array of client names (exact, case-sensitive match)"),
		),
		waitOption("every color change is acknowledged"),
	)
	s.AddTool(markIncompleteTool, common.InstrumentedToolHandler("timesheet_mark_incomplete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMark(ctx, request, sc, sc.Runner().MarkIncomplete)
		}))

	return nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	name, err := common.RequiredStringArg(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := formatArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	before := sc.Runner().View()
	if err := sc.Runner().CreateNewEvent(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create event: %v", err)), nil
	}

	if !common.BoolArg(request, "wait", true) {
		return mcp.NewToolResultText(fmt.Sprintf("Creating event %q. The summary refreshes once it is saved.", name)), nil
	}

	// A saved event triggers a new fetch; a rejected one only sets a notice.
	v, ok := waitFor(ctx, sc, func(v orchestrator.View) bool {
		return (v.Generation > before.Generation && orchestrator.Settled(v)) || v.Notice != before.Notice
	})
	if v.Notice != nil && v.Notice != before.Notice {
		return mcp.NewToolResultError(v.Notice.Error()), nil
	}

	note := fmt.Sprintf("Created event %q.", name)
	if !ok {
		note = fmt.Sprintf("Event %q was requested but the summary has not refreshed yet.", name)
	}
	return viewResult(sc, v, format, note)
}

func handleMark(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, mark func(context.Context, string) (orchestrator.Ack, error)) (*mcp.CallToolResult, error) {
	names, err := batch.ParseStringOrArray(request.GetArguments()["names"], "names")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	before := sc.Runner().View()
	matched := 0
	results := batch.ProcessBatch(ctx, names, func(ctx context.Context, name string) (string, error) {
		ack, err := mark(ctx, name)
		if err != nil {
			return "", err
		}
		if ack.Matched == 0 {
			return "", fmt.Errorf("no events named %q in the selected week: %w", name, batch.ErrSkipped)
		}
		matched += ack.Matched
		return fmt.Sprintf("changing color of %d event(s) (batch %s)", ack.Matched, ack.BatchID), nil
	})
	br := batch.Summarize(results)

	if matched > 0 && common.BoolArg(request, "wait", true) {
		v, ok := waitFor(ctx, sc, func(v orchestrator.View) bool { return v.Pending == 0 })
		switch {
		case !ok:
			br.Note = fmt.Sprintf("Timed out with %d color change(s) still pending.", v.Pending)
		case v.Notice != nil && v.Notice != before.Notice:
			br.Note = fmt.Sprintf("All color changes acknowledged. Last error: %v", v.Notice)
		default:
			br.Note = "All color changes acknowledged. The summary is refreshing."
		}
	}

	return mcp.NewToolResultText(batch.FormatResults(br)), nil
}
