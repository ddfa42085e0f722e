package timesheet

import "sort"

// ColorSpec is the display metadata of one color tag.
type ColorSpec struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// EventColors maps a color tag to its display metadata. Values are treated as
// immutable: Merge returns a new map, so a snapshot can be shared freely.
type EventColors map[string]ColorSpec

// Merge returns a copy of c with every entry of update written over it.
// Tags missing from update are kept.
func (c EventColors) Merge(update EventColors) EventColors {
	merged := make(EventColors, len(c)+len(update))
	for tag, spec := range c {
		merged[tag] = spec
	}
	for tag, spec := range update {
		merged[tag] = spec
	}
	return merged
}

// Lookup returns the metadata for tag.
func (c EventColors) Lookup(tag string) (ColorSpec, bool) {
	spec, ok := c[tag]
	return spec, ok
}

// Label renders tag for display. Unknown tags degrade to the raw tag.
func (c EventColors) Label(tag string) string {
	spec, ok := c.Lookup(tag)
	if !ok || spec.Background == "" {
		return tag
	}
	return tag + " (" + spec.Background + ")"
}

// Tags returns the known tags in sorted order.
func (c EventColors) Tags() []string {
	tags := make([]string, 0, len(c))
	for tag := range c {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
