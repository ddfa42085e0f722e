package orchestrator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_Report(t *testing.T) {
	m, _ := loadedMachine(t, acmeWeek())

	r := m.Snapshot().Report(map[string]string{"10": "complete"})

	assert.Equal(t, "events_loaded", r.State)
	assert.Equal(t, "primary", r.Calendar)
	assert.Zero(t, r.WeeksBack)
	assert.Empty(t, r.Error)

	require.Len(t, r.Rows, 3)
	assert.Equal(t, "Acme", r.Rows[0].Client)
	assert.Equal(t, map[string]int{"11": 60}, r.Rows[0].Days[0])
	assert.Equal(t, map[string]int{"11": 90, "10": 45}, r.Rows[0].Week)
	assert.Equal(t, "Beta", r.Rows[1].Client)
	assert.True(t, r.Rows[2].Total)
	assert.Equal(t, map[string]int{"11": 105, "10": 45}, r.Rows[2].Week)

	assert.Equal(t, map[string]string{"10": "complete", "11": "11"}, r.Colors)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"events_loaded"`)
	assert.NotContains(t, string(data), "pending_changes")
}

func TestView_Text(t *testing.T) {
	tests := []struct {
		name     string
		view     func(t *testing.T) View
		contains []string
		excludes []string
	}{
		{
			name: "loaded week",
			view: func(t *testing.T) View {
				m, _ := loadedMachine(t, acmeWeek())
				return m.Snapshot()
			},
			contains: []string{"Acme", "Beta", "Total", "complete 0:45", "State: events_loaded"},
			excludes: []string{"No events this week", "Error:"},
		},
		{
			name: "empty week",
			view: func(t *testing.T) View {
				m, _ := loadedMachine(t, nil)
				return m.Snapshot()
			},
			contains: []string{"No events this week."},
		},
		{
			name: "before first load",
			view: func(t *testing.T) View {
				m, _ := newTestMachine(t)
				return m.Snapshot()
			},
			contains: []string{"No summary available yet.", "State: unauthenticated"},
		},
		{
			name: "failure and notice",
			view: func(t *testing.T) View {
				m, _ := loadedMachine(t, acmeWeek())
				v := m.Snapshot()
				v.State = StateEventsFailed
				v.Err = errors.New("backend unavailable")
				v.Notice = errors.New("failed to create event")
				v.Pending = 2
				v.WeeksBack = 3
				return v
			},
			contains: []string{
				"(3 week(s) back)",
				"No summary available yet.",
				"Error: backend unavailable",
				"Notice: failed to create event",
				"Color changes pending: 2",
			},
			excludes: []string{"Acme", "Total"},
		},
		{
			name: "malformed events are not mentioned",
			view: func(t *testing.T) View {
				raw := acmeWeek()
				raw[3].End = ""
				m, _ := loadedMachine(t, raw)
				v := m.Snapshot()
				require.Equal(t, 1, v.Dropped)
				return v
			},
			contains: []string{"Acme", "State: events_loaded"},
			excludes: []string{"Beta", "Skipped", "dropped"},
		},
	}

	names := map[string]string{"10": "complete", "11": "incomplete"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := tt.view(t).Text(names)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, text, unwanted)
			}
		})
	}
}

func TestView_NavigationHidesPreviousWeek(t *testing.T) {
	names := map[string]string{"10": "complete", "11": "incomplete"}

	m, _ := loadedMachine(t, acmeWeek())
	loadedLabel := m.Snapshot().Label

	fetch := onlyFetchEvents(t, handle(t, m, GoBack{}))

	loading := m.Snapshot()
	require.Equal(t, StateEventsLoading, loading.State)
	assert.NotEqual(t, loadedLabel, loading.Label)

	text := loading.Text(names)
	assert.Contains(t, text, loading.Label)
	assert.Contains(t, text, "No summary available yet.")
	assert.Contains(t, text, "State: events_loading")
	assert.NotContains(t, text, "Acme")
	assert.NotContains(t, text, "Total")
	assert.Empty(t, loading.Report(names).Rows)

	handle(t, m, EventsFetched{Generation: fetch.Generation, Err: errors.New("backend 500")})

	failed := m.Snapshot()
	require.Equal(t, StateEventsFailed, failed.State)

	text = failed.Text(names)
	assert.Contains(t, text, "No summary available yet.")
	assert.Contains(t, text, "Error: failed to fetch events: backend 500")
	assert.NotContains(t, text, "Acme")
	assert.NotContains(t, text, "Beta")

	r := failed.Report(names)
	assert.Equal(t, "events_failed", r.State)
	assert.Equal(t, 1, r.WeeksBack)
	assert.Equal(t, failed.Label, r.Week)
	assert.Empty(t, r.Rows)
	assert.Empty(t, r.Colors)
	assert.Contains(t, r.Error, "backend 500")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rows":[]`)
	assert.NotContains(t, string(data), "dropped")
}
