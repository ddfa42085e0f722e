package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/orchestrator/orchestratortest"
	"github.com/teemow/calsheet/internal/server"
	"github.com/teemow/calsheet/internal/timesheet"
)

func newTestServer(t *testing.T) *mcpserver.MCPServer {
	t.Helper()

	monday := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	cal := orchestratortest.NewCalendar(
		orchestratortest.Event("a1", "Acme", orchestratortest.IncompleteColor, monday, time.Hour),
		orchestratortest.Event("b1", "Beta", orchestratortest.CompleteColor, monday.AddDate(0, 0, 2), 45*time.Minute),
	)

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Runner:      orchestratortest.NewRunner(cal, nil, monday.AddDate(0, 0, 2)),
		StatusNames: timesheet.StatusNames(orchestratortest.CompleteColor, orchestratortest.IncompleteColor),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sc.Shutdown(ctx)
	})
	require.NoError(t, sc.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := sc.Runner().Wait(ctx, orchestrator.Settled)
	require.NoError(t, err)
	require.Equal(t, orchestrator.StateEventsLoaded, v.State)

	s := mcpserver.NewMCPServer("calsheet-test", "test", mcpserver.WithResourceCapabilities(false, false))
	require.NoError(t, RegisterTimesheetResources(s, sc))
	return s
}

// readResource sends a resources/read request and returns the text of the
// first content item.
func readResource(t *testing.T, s *mcpserver.MCPServer, uri string) string {
	t.Helper()

	request, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "resources/read",
		"params":  map[string]interface{}{"uri": uri},
	})
	require.NoError(t, err)

	response := s.HandleMessage(context.Background(), request)
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Contents []struct {
				URI      string `json:"uri"`
				MIMEType string `json:"mimeType"`
				Text     string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.Error, string(raw))
	require.Len(t, decoded.Result.Contents, 1)
	assert.Equal(t, uri, decoded.Result.Contents[0].URI)
	assert.Equal(t, "application/json", decoded.Result.Contents[0].MIMEType)
	return decoded.Result.Contents[0].Text
}

func TestSummaryResource(t *testing.T) {
	s := newTestServer(t)

	var report orchestrator.Report
	require.NoError(t, json.Unmarshal([]byte(readResource(t, s, SummaryURI)), &report))

	assert.Equal(t, orchestrator.StateEventsLoaded.String(), report.State)
	assert.Equal(t, orchestratortest.CalendarID, report.Calendar)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, "Acme", report.Rows[0].Client)
	assert.Equal(t, map[string]int{orchestratortest.IncompleteColor: 60}, report.Rows[0].Week)
	assert.True(t, report.Rows[2].Total)
	assert.Equal(t, timesheet.TotalClient, report.Rows[2].Client)
	assert.Equal(t, map[string]int{
		orchestratortest.IncompleteColor: 60,
		orchestratortest.CompleteColor:   45,
	}, report.Rows[2].Week)
}

func TestColorsResource(t *testing.T) {
	s := newTestServer(t)

	var palette struct {
		Calendar string       `json:"calendar"`
		Colors   []colorEntry `json:"colors"`
	}
	require.NoError(t, json.Unmarshal([]byte(readResource(t, s, ColorsURI)), &palette))

	assert.Equal(t, orchestratortest.CalendarID, palette.Calendar)
	assert.Equal(t, []colorEntry{
		{Tag: orchestratortest.CompleteColor, Name: "complete", Background: "#51b749", Foreground: "#1d1d1d"},
		{Tag: orchestratortest.IncompleteColor, Name: "incomplete", Background: "#dc2127", Foreground: "#1d1d1d"},
	}, palette.Colors)
}
