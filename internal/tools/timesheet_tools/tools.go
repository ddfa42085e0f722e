package timesheet_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/server"
)

// Output formats accepted by the format parameter.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// settleTimeout bounds how long a tool waits for the timesheet to settle.
var settleTimeout = 30 * time.Second

// RegisterTimesheetTools registers all timesheet tools with the MCP server
func RegisterTimesheetTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := RegisterSummaryTools(s, sc); err != nil {
		return fmt.Errorf("failed to register summary tools: %w", err)
	}

	if !readOnly {
		if err := RegisterEventTools(s, sc); err != nil {
			return fmt.Errorf("failed to register event tools: %w", err)
		}
	}

	return nil
}

// formatOption declares the shared format parameter.
func formatOption() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: 'table' (default) or 'json'"),
	)
}

// waitOption declares the shared wait parameter.
func waitOption(what string) mcp.ToolOption {
	return mcp.WithBoolean("wait",
		mcp.Description(fmt.Sprintf("Wait until %s before answering (default: true)", what)),
	)
}

func formatArg(request mcp.CallToolRequest) (string, error) {
	format := FormatTable
	if v, ok := request.GetArguments()["format"].(string); ok && v != "" {
		format = strings.ToLower(v)
	}
	if format != FormatTable && format != FormatJSON {
		return "", fmt.Errorf("format must be %q or %q", FormatTable, FormatJSON)
	}
	return format, nil
}

// awaitingLogin reports whether the runner is blocked on a consent the user
// has not given yet.
func awaitingLogin(sc *server.ServerContext) bool {
	auth := sc.Authenticator()
	return auth != nil && auth.Waiting()
}

// waitFor blocks until pred holds, the timeout elapses or the server is
// waiting for a login. The boolean is false when pred did not hold.
func waitFor(ctx context.Context, sc *server.ServerContext, pred func(orchestrator.View) bool) (orchestrator.View, bool) {
	if awaitingLogin(sc) {
		return sc.Runner().View(), false
	}

	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	v, err := sc.Runner().Wait(ctx, pred)
	return v, err == nil
}

// viewResult renders v in format, followed by note when not empty.
func viewResult(sc *server.ServerContext, v orchestrator.View, format, note string) (*mcp.CallToolResult, error) {
	if awaitingLogin(sc) {
		note = strings.TrimSpace(note + "\nGoogle authorization is pending. Use google_get_auth_url to sign in.")
	}

	if format == FormatJSON {
		report := struct {
			orchestrator.Report
			Note string `json:"note,omitempty"`
		}{v.Report(sc.StatusNames()), note}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to encode summary: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	text := v.Text(sc.StatusNames())
	if note != "" {
		text += "\n" + note + "\n"
	}
	return mcp.NewToolResultText(text), nil
}
