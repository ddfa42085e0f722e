package timesheet

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
)

// FormatOptions controls FormatTable.
type FormatOptions struct {
	// Title is printed above the table when not empty, typically the week label.
	Title string
	// Colors resolves tags that have no entry in Names.
	Colors EventColors
	// Names gives friendly names to tags, e.g. {"10": "complete"}.
	Names map[string]string
}

// TagName returns the display name of tag.
func (o FormatOptions) TagName(tag string) string {
	if name, ok := o.Names[tag]; ok && name != "" {
		return name
	}
	return o.Colors.Label(tag)
}

var dayHeaders = [Workdays]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// FormatTable renders rows as an aligned plain-text table with one column per
// workday and a weekly column.
func FormatTable(rows []ClientDaySummary, opts FormatOptions) string {
	var sb strings.Builder
	if opts.Title != "" {
		sb.WriteString(opts.Title)
		sb.WriteString("\n\n")
	}

	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Client\t%s\tWeek\n", strings.Join(dayHeaders[:], "\t"))
	for _, row := range rows {
		cells := make([]string, 0, Workdays+2)
		cells = append(cells, row.Client)
		for _, day := range row.Days {
			cells = append(cells, opts.formatCell(day))
		}
		cells = append(cells, opts.formatCell(row.WeeklyTotal()))
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	return sb.String()
}

func (o FormatOptions) formatCell(minutes ColorMinutes) string {
	if len(minutes) == 0 {
		return "-"
	}
	tags := make([]string, 0, len(minutes))
	for tag := range minutes {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, fmt.Sprintf("%s %s", o.TagName(tag), FormatMinutes(minutes[tag])))
	}
	return strings.Join(parts, ", ")
}

// FormatMinutes renders minutes as h:mm.
func FormatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}

// StatusNames labels the complete and incomplete color tags for FormatOptions.
func StatusNames(completeTag, incompleteTag string) map[string]string {
	names := make(map[string]string, 2)
	if completeTag != "" {
		names[completeTag] = "complete"
	}
	if incompleteTag != "" {
		names[incompleteTag] = "incomplete"
	}
	return names
}
