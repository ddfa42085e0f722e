package google_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calsheet/internal/server"
	"github.com/teemow/calsheet/internal/tools/common"
)

// RegisterGoogleTools registers the Google OAuth tools with the MCP server.
// Nothing is registered when the server has no pending authorizer.
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Authenticator() == nil {
		return nil
	}

	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize Google Calendar access for the timesheet"),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Save the OAuth authorization code to complete Google Calendar authentication. The timesheet loads once the code is accepted."),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("google_save_auth_code", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

func handleGetAuthURL(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	auth := sc.Authenticator()

	status := "No login is pending; the stored token is in use."
	if auth.Waiting() {
		status = "The timesheet is waiting for this authorization."
	}

	result := fmt.Sprintf(`To authorize Google Calendar access:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Calendar
4. Copy the authorization code

5. Call the google_save_auth_code tool with the code to complete authentication

%s`, auth.AuthURL(), status)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	authCode, err := common.RequiredStringArg(request, "authCode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := sc.Authenticator().SaveTokenForAccount(ctx, authCode); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code: %v", err)), nil
	}

	return mcp.NewToolResultText("✅ Authorization successful! Google Calendar token saved. The timesheet will load shortly."), nil
}
