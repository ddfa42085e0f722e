package timesheet

import (
	"sort"
	"time"
)

// TotalClient is the name of the synthetic row that sums every event.
// A real event titled "Total" is still grouped as an ordinary client, so the
// table may show two rows with that name.
const TotalClient = "Total"

// Workdays is the number of day columns in a summary row (Monday..Friday).
const Workdays = 5

// ColorMinutes maps a color tag to accumulated minutes.
type ColorMinutes map[string]int

// ClientDaySummary holds the minutes per color tag for each workday of one
// client. Days[0] is Monday and also receives Saturday and Sunday.
type ClientDaySummary struct {
	Client  string
	Days    [Workdays]ColorMinutes
	IsTotal bool
}

func newClientDaySummary(client string) ClientDaySummary {
	row := ClientDaySummary{Client: client}
	for i := range row.Days {
		row.Days[i] = ColorMinutes{}
	}
	return row
}

// WeeklyTotal merges the day maps of the row into a single map.
func (s ClientDaySummary) WeeklyTotal() ColorMinutes {
	total := ColorMinutes{}
	for _, day := range s.Days {
		for tag, minutes := range day {
			total[tag] += minutes
		}
	}
	return total
}

// Minutes returns the sum over all tags of the whole week.
func (s ClientDaySummary) Minutes() int {
	sum := 0
	for _, day := range s.Days {
		for _, minutes := range day {
			sum += minutes
		}
	}
	return sum
}

// Aggregate groups events by exact Name and folds each group into a row.
// Rows are sorted by client name and followed by one TotalClient row computed
// over every event. Weekday bucketing uses each event's start in loc.
func Aggregate(events []NormalizedEvent, loc *time.Location) []ClientDaySummary {
	if loc == nil {
		loc = time.UTC
	}

	groups := make(map[string][]NormalizedEvent)
	for _, ev := range events {
		groups[ev.Name] = append(groups[ev.Name], ev)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]ClientDaySummary, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, foldEvents(name, groups[name], loc))
	}

	total := foldEvents(TotalClient, events, loc)
	total.IsTotal = true
	return append(rows, total)
}

func foldEvents(client string, events []NormalizedEvent, loc *time.Location) ClientDaySummary {
	row := newClientDaySummary(client)
	for _, ev := range events {
		idx := workdayIndex(ev.Start.In(loc).Weekday())
		row.Days[idx][ev.ColorTag] += ev.DurationMinutes
	}
	return row
}

// workdayIndex maps a weekday to its column; the weekend lands on Monday.
func workdayIndex(d time.Weekday) int {
	switch d {
	case time.Saturday, time.Sunday:
		return 0
	default:
		return int(d) - int(time.Monday)
	}
}
