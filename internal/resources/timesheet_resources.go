package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calsheet/internal/server"
)

// Resource URIs.
const (
	SummaryURI = "timesheet://summary"
	ColorsURI  = "timesheet://colors"
)

// RegisterTimesheetResources registers the summary and color palette
// resources.
func RegisterTimesheetResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	summaryResource := mcp.NewResource(
		SummaryURI,
		"Timesheet Summary",
		mcp.WithResourceDescription("Per-client minutes of the selected week, split by workday and color"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(summaryResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSummary(ctx, request, sc)
	})

	colorsResource := mcp.NewResource(
		ColorsURI,
		"Calendar Colors",
		mcp.WithResourceDescription("Event color tags of the calendar with their display colors"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(colorsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleColors(ctx, request, sc)
	})

	return nil
}

func handleSummary(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	report := sc.Runner().View().Report(sc.StatusNames())
	return jsonContents(request.Params.URI, report)
}

// colorEntry is one color tag in the palette resource.
type colorEntry struct {
	Tag        string `json:"tag"`
	Name       string `json:"name,omitempty"`
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

func handleColors(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	v := sc.Runner().View()
	names := sc.StatusNames()

	entries := make([]colorEntry, 0, len(v.Colors))
	for _, tag := range v.Colors.Tags() {
		spec := v.Colors[tag]
		entries = append(entries, colorEntry{
			Tag:        tag,
			Name:       names[tag],
			Background: spec.Background,
			Foreground: spec.Foreground,
		})
	}

	return jsonContents(request.Params.URI, map[string]interface{}{
		"calendar": v.CalendarID,
		"colors":   entries,
	})
}

func jsonContents(uri string, data interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
