package timesheet_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/server"
	"github.com/teemow/calsheet/internal/tools/common"
)

// RegisterSummaryTools registers the read-only summary and navigation tools
func RegisterSummaryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	summaryTool := mcp.NewTool("timesheet_summary",
		mcp.WithDescription("Show the timesheet of the selected week: minutes per client and workday, split by event color, with a total row. Weekend events are counted on Monday."),
		formatOption(),
		waitOption("the summary is loaded"),
	)
	s.AddTool(summaryTool, common.InstrumentedToolHandler("timesheet_summary", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCommand(ctx, request, sc, nil)
		}))

	refreshTool := mcp.NewTool("timesheet_refresh",
		mcp.WithDescription("Re-fetch the events of the selected week from Google Calendar and show the new summary"),
		formatOption(),
		waitOption("the summary is loaded"),
	)
	s.AddTool(refreshTool, common.InstrumentedToolHandler("timesheet_refresh", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCommand(ctx, request, sc, sc.Runner().Refresh)
		}))

	goBackTool := mcp.NewTool("timesheet_go_back",
		mcp.WithDescription("Select the previous week and show its summary"),
		formatOption(),
		weeksOption(),
		waitOption("the summary is loaded"),
	)
	s.AddTool(goBackTool, common.InstrumentedToolHandler("timesheet_go_back", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			step, err := repeatStep(request, sc.Runner().GoBack)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return handleCommand(ctx, request, sc, step)
		}))

	goForwardTool := mcp.NewTool("timesheet_go_forward",
		mcp.WithDescription("Select the next week and show its summary. Moving past the current week is allowed."),
		formatOption(),
		weeksOption(),
		waitOption("the summary is loaded"),
	)
	s.AddTool(goForwardTool, common.InstrumentedToolHandler("timesheet_go_forward", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			step, err := repeatStep(request, sc.Runner().GoForward)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return handleCommand(ctx, request, sc, step)
		}))

	currentWeekTool := mcp.NewTool("timesheet_current_week",
		mcp.WithDescription("Return to the current week and show its summary"),
		formatOption(),
		waitOption("the summary is loaded"),
	)
	s.AddTool(currentWeekTool, common.InstrumentedToolHandler("timesheet_current_week", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCommand(ctx, request, sc, sc.Runner().GoToCurrentWeek)
		}))

	return nil
}

// maxWeeksStep bounds a single navigation.
const maxWeeksStep = 52

func weeksOption() mcp.ToolOption {
	return mcp.WithNumber("weeks",
		mcp.Description(fmt.Sprintf("Number of weeks to move (default: 1, max: %d)", maxWeeksStep)),
	)
}

// repeatStep returns a command that runs step as many times as the weeks
// argument asks for. Only the fetch of the last step is kept.
func repeatStep(request mcp.CallToolRequest, step func(context.Context) error) (func(context.Context) error, error) {
	n, err := common.IntArg(request, "weeks", 1)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > maxWeeksStep {
		return nil, fmt.Errorf("weeks must be between 1 and %d", maxWeeksStep)
	}

	return func(ctx context.Context) error {
		for i := 0; i < n; i++ {
			if err := step(ctx); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// handleCommand runs command, if any, and answers with the summary.
func handleCommand(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, command func(context.Context) error) (*mcp.CallToolResult, error) {
	format, err := formatArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if command != nil {
		if err := command(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update the timesheet: %v", err)), nil
		}
	}

	v := sc.Runner().View()
	note := ""
	if common.BoolArg(request, "wait", true) {
		var settled bool
		if v, settled = waitFor(ctx, sc, orchestrator.Settled); !settled && !awaitingLogin(sc) {
			note = "The timesheet is still loading; showing the latest state."
		}
	}

	return viewResult(sc, v, format, note)
}
