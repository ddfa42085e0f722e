package timesheet_tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/orchestrator/orchestratortest"
	"github.com/teemow/calsheet/internal/server"
	"github.com/teemow/calsheet/internal/timesheet"
	"github.com/teemow/calsheet/internal/tools/batch"
)

// Wednesday of the week starting Monday, June 10, 2024.
var now = time.Date(2024, time.June, 12, 14, 7, 0, 0, time.UTC)

func weekEvents() []timesheet.RawEvent {
	monday := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	return []timesheet.RawEvent{
		orchestratortest.Event("a1", "Acme", orchestratortest.IncompleteColor, monday, time.Hour),
		orchestratortest.Event("a2", "Acme", orchestratortest.IncompleteColor, monday.AddDate(0, 0, 1), 30*time.Minute),
		orchestratortest.Event("b1", "Beta", orchestratortest.CompleteColor, monday.AddDate(0, 0, 2), 45*time.Minute),
	}
}

func newTestServer(t *testing.T, cal *orchestratortest.Calendar, readOnly bool) (*mcpserver.MCPServer, *server.ServerContext) {
	t.Helper()

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Runner:      orchestratortest.NewRunner(cal, nil, now),
		StatusNames: timesheet.StatusNames(orchestratortest.CompleteColor, orchestratortest.IncompleteColor),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sc.Shutdown(ctx)
	})
	require.NoError(t, sc.Start())

	s := mcpserver.NewMCPServer("calsheet-test", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterTimesheetTools(s, sc, readOnly))
	return s, sc
}

func waitLoaded(t *testing.T, sc *server.ServerContext) orchestrator.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := sc.Runner().Wait(ctx, orchestrator.Settled)
	require.NoError(t, err)
	require.Equal(t, orchestrator.StateEventsLoaded, v.State)
	return v
}

func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()

	tool, ok := s.ListTools()[name]
	require.True(t, ok, "tool %s is not registered", name)

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := tool.Handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func reportOf(t *testing.T, result *mcp.CallToolResult) orchestrator.Report {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var r orchestrator.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &r))
	return r
}

func batchOf(t *testing.T, result *mcp.CallToolResult) batch.BatchResult {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var br batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &br))
	return br
}

func TestRegisterTimesheetTools(t *testing.T) {
	readOnlyTools := []string{
		"timesheet_current_week",
		"timesheet_go_back",
		"timesheet_go_forward",
		"timesheet_refresh",
		"timesheet_summary",
	}
	writeTools := []string{
		"timesheet_create_event",
		"timesheet_mark_complete",
		"timesheet_mark_incomplete",
	}

	tests := []struct {
		name     string
		readOnly bool
		want     []string
	}{
		{name: "read-only", readOnly: true, want: readOnlyTools},
		{name: "read-write", readOnly: false, want: append(append([]string{}, readOnlyTools...), writeTools...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, orchestratortest.NewCalendar(), tt.readOnly)

			var names []string
			for name := range s.ListTools() {
				names = append(names, name)
			}
			sort.Strings(names)
			want := append([]string{}, tt.want...)
			sort.Strings(want)
			assert.Equal(t, want, names)
		})
	}
}

func TestSummary_Table(t *testing.T) {
	s, _ := newTestServer(t, orchestratortest.NewCalendar(weekEvents()...), true)

	result := callTool(t, s, "timesheet_summary", nil)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Mon Jun 10")
	assert.Contains(t, text, "Acme")
	assert.Contains(t, text, "incomplete 1:00")
	assert.Contains(t, text, "complete 0:45")
	assert.Contains(t, text, "State: events_loaded")
}

func TestSummary_JSON(t *testing.T) {
	s, _ := newTestServer(t, orchestratortest.NewCalendar(weekEvents()...), true)

	r := reportOf(t, callTool(t, s, "timesheet_summary", map[string]interface{}{"format": "json"}))

	assert.Equal(t, "events_loaded", r.State)
	assert.Equal(t, orchestratortest.CalendarID, r.Calendar)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, "Acme", r.Rows[0].Client)
	assert.Equal(t, map[string]int{orchestratortest.IncompleteColor: 90}, r.Rows[0].Week)
	assert.True(t, r.Rows[2].Total)
	assert.Equal(t, "complete", r.Colors[orchestratortest.CompleteColor])
}

func TestSummary_InvalidFormat(t *testing.T) {
	s, _ := newTestServer(t, orchestratortest.NewCalendar(), true)

	result := callTool(t, s, "timesheet_summary", map[string]interface{}{"format": "xml"})

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "format must be")
}

func TestNavigationTools(t *testing.T) {
	s, sc := newTestServer(t, orchestratortest.NewCalendar(weekEvents()...), true)
	waitLoaded(t, sc)

	asJSON := map[string]interface{}{"format": "json"}

	r := reportOf(t, callTool(t, s, "timesheet_go_back", asJSON))
	assert.Equal(t, 1, r.WeeksBack)
	assert.Equal(t, "events_loaded", r.State)
	require.Len(t, r.Rows, 1, "previous week has no events")
	assert.True(t, r.Rows[0].Total)

	r = reportOf(t, callTool(t, s, "timesheet_go_back", asJSON))
	assert.Equal(t, 2, r.WeeksBack)

	r = reportOf(t, callTool(t, s, "timesheet_go_forward", asJSON))
	assert.Equal(t, 1, r.WeeksBack)

	r = reportOf(t, callTool(t, s, "timesheet_current_week", asJSON))
	assert.Equal(t, 0, r.WeeksBack)
	assert.Len(t, r.Rows, 3)

	r = reportOf(t, callTool(t, s, "timesheet_go_forward", asJSON))
	assert.Equal(t, -1, r.WeeksBack)

	r = reportOf(t, callTool(t, s, "timesheet_go_back", map[string]interface{}{"format": "json", "weeks": 3.0}))
	assert.Equal(t, 2, r.WeeksBack)
	assert.Equal(t, "events_loaded", r.State)
}

func TestNavigationTools_InvalidWeeks(t *testing.T) {
	s, sc := newTestServer(t, orchestratortest.NewCalendar(), true)
	waitLoaded(t, sc)

	tests := []struct {
		name  string
		weeks interface{}
	}{
		{name: "zero", weeks: 0.0},
		{name: "too many", weeks: 53.0},
		{name: "fraction", weeks: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s, "timesheet_go_back", map[string]interface{}{"weeks": tt.weeks})
			assert.True(t, result.IsError)
			assert.Equal(t, 0, sc.Runner().View().WeeksBack)
		})
	}
}

func TestRefreshTool(t *testing.T) {
	cal := orchestratortest.NewCalendar(weekEvents()...)
	s, sc := newTestServer(t, cal, true)
	waitLoaded(t, sc)
	fetches := cal.Fetches()

	cal.FailNextFetch(errors.New("backend unavailable"))
	result := callTool(t, s, "timesheet_refresh", nil)

	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Error: failed to fetch events: backend unavailable")
	assert.Equal(t, fetches+1, cal.Fetches())

	r := reportOf(t, callTool(t, s, "timesheet_refresh", map[string]interface{}{"format": "json"}))
	assert.Equal(t, "events_loaded", r.State)
	assert.Empty(t, r.Error)
}

func TestCreateEventTool(t *testing.T) {
	cal := orchestratortest.NewCalendar(weekEvents()...)
	s, sc := newTestServer(t, cal, false)
	waitLoaded(t, sc)

	result := callTool(t, s, "timesheet_create_event", map[string]interface{}{"name": "Gamma"})

	require.False(t, result.IsError, resultText(t, result))
	text := resultText(t, result)
	assert.Contains(t, text, `Created event "Gamma".`)
	assert.Contains(t, text, "Gamma")
	assert.Equal(t, []string{"Gamma"}, cal.Created())
}

func TestCreateEventTool_MissingName(t *testing.T) {
	s, sc := newTestServer(t, orchestratortest.NewCalendar(), false)
	waitLoaded(t, sc)

	result := callTool(t, s, "timesheet_create_event", map[string]interface{}{})

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "name is required")
}

func TestMarkCompleteTool(t *testing.T) {
	cal := orchestratortest.NewCalendar(weekEvents()...)
	s, sc := newTestServer(t, cal, false)
	waitLoaded(t, sc)

	br := batchOf(t, callTool(t, s, "timesheet_mark_complete", map[string]interface{}{
		"names": []interface{}{"Acme", "Nobody"},
	}))

	assert.Equal(t, 2, br.Total)
	assert.Equal(t, 1, br.Successful)
	assert.Equal(t, 1, br.Skipped)
	assert.Equal(t, batch.StatusSuccess, br.Results[0].Status)
	assert.Contains(t, br.Results[0].Result, "2 event(s)")
	assert.Equal(t, batch.StatusSkipped, br.Results[1].Status)
	assert.Contains(t, br.Note, "All color changes acknowledged")

	assert.Equal(t, map[string]string{
		"a1": orchestratortest.CompleteColor,
		"a2": orchestratortest.CompleteColor,
	}, cal.Patched())
}

func TestMarkIncompleteTool_NoWait(t *testing.T) {
	cal := orchestratortest.NewCalendar(weekEvents()...)
	s, sc := newTestServer(t, cal, false)
	waitLoaded(t, sc)

	br := batchOf(t, callTool(t, s, "timesheet_mark_incomplete", map[string]interface{}{
		"names": "Beta",
		"wait":  false,
	}))

	assert.Equal(t, 1, br.Successful)
	assert.Empty(t, br.Note)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := sc.Runner().Wait(ctx, func(v orchestrator.View) bool { return v.Pending == 0 })
	require.NoError(t, err)
	assert.Equal(t, orchestratortest.IncompleteColor, cal.Patched()["b1"])
}

func TestMarkTool_RejectedChange(t *testing.T) {
	cal := orchestratortest.NewCalendar(weekEvents()...)
	cal.FailPatch("a1", errors.New("forbidden"))
	s, sc := newTestServer(t, cal, false)
	waitLoaded(t, sc)

	br := batchOf(t, callTool(t, s, "timesheet_mark_complete", map[string]interface{}{"names": "Acme"}))

	assert.Equal(t, 1, br.Successful)
	assert.Contains(t, br.Note, "Last error")
	assert.Contains(t, br.Note, "forbidden")
	assert.Equal(t, map[string]string{"a2": orchestratortest.CompleteColor}, cal.Patched())
}

func TestMarkTool_InvalidNames(t *testing.T) {
	s, _ := newTestServer(t, orchestratortest.NewCalendar(), false)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing", args: map[string]interface{}{}, want: "names is required"},
		{name: "empty string", args: map[string]interface{}{"names": ""}, want: "names cannot be empty"},
		{name: "wrong type", args: map[string]interface{}{"names": 42.0}, want: "must be a string or array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s, "timesheet_mark_complete", tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}
