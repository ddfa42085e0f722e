package orchestrator

import (
	"fmt"
	"strings"

	"github.com/teemow/calsheet/internal/timesheet"
)

// Report is the serializable form of a View.
type Report struct {
	State          string      `json:"state"`
	Week           string      `json:"week"`
	WeeksBack      int         `json:"weeks_back"`
	Calendar       string      `json:"calendar,omitempty"`
	Rows           []ReportRow `json:"rows"`
	PendingChanges int         `json:"pending_changes,omitempty"`
	Error          string      `json:"error,omitempty"`
	Notice         string      `json:"notice,omitempty"`

	// Colors labels every color tag used in Rows.
	Colors map[string]string `json:"colors,omitempty"`
}

// ReportRow is one client of a Report. Minutes are keyed by color tag.
type ReportRow struct {
	Client string                             `json:"client"`
	Total  bool                               `json:"total,omitempty"`
	Days   [timesheet.Workdays]map[string]int `json:"days"`
	Week   map[string]int                     `json:"week"`
}

// Report converts v. names overrides the palette label of a tag. Rows are
// only reported once the events of the selected week have loaded.
func (v View) Report(names map[string]string) Report {
	r := Report{
		State:          v.State.String(),
		Week:           v.Label,
		WeeksBack:      v.WeeksBack,
		Calendar:       v.CalendarID,
		Rows:           []ReportRow{},
		PendingChanges: v.Pending,
		Error:          v.Reason(),
	}
	if v.Notice != nil {
		r.Notice = v.Notice.Error()
	}
	if !v.Loaded() {
		return r
	}

	opts := timesheet.FormatOptions{Colors: v.Colors, Names: names}
	for _, row := range v.Rows {
		out := ReportRow{Client: row.Client, Total: row.IsTotal, Week: row.WeeklyTotal()}
		for i, day := range row.Days {
			out.Days[i] = day
		}
		for tag := range out.Week {
			if r.Colors == nil {
				r.Colors = make(map[string]string)
			}
			r.Colors[tag] = opts.TagName(tag)
		}
		r.Rows = append(r.Rows, out)
	}
	return r
}

// Text renders v as the summary table followed by status lines.
func (v View) Text(names map[string]string) string {
	var sb strings.Builder

	title := v.Label
	if v.WeeksBack > 0 {
		title = fmt.Sprintf("%s (%d week(s) back)", title, v.WeeksBack)
	}

	// Rows of a previous window must not appear under the new label.
	if v.Loaded() {
		sb.WriteString(timesheet.FormatTable(v.Rows, timesheet.FormatOptions{
			Title:  title,
			Colors: v.Colors,
			Names:  names,
		}))
	} else {
		sb.WriteString(title)
		sb.WriteString("\n\nNo summary available yet.\n")
	}

	fmt.Fprintf(&sb, "\nState: %s\n", v.State)
	if v.Loaded() && len(v.Rows) == 1 {
		sb.WriteString("No events this week.\n")
	}
	if v.Pending > 0 {
		fmt.Fprintf(&sb, "Color changes pending: %d\n", v.Pending)
	}
	if reason := v.Reason(); reason != "" {
		fmt.Fprintf(&sb, "Error: %s\n", reason)
	}
	if v.Notice != nil {
		fmt.Fprintf(&sb, "Notice: %s\n", v.Notice)
	}
	return sb.String()
}
