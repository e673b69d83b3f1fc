package timeline

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/igolaizola/rapbattle/pkg/elevenlabs"
)

// UnknownName is printed for sections without a name.
const UnknownName = "Unknown"

type Entry struct {
	Index      int    `csv:"index"`
	Name       string `csv:"name"`
	StartMs    int64  `csv:"start_ms"`
	EndMs      int64  `csv:"end_ms"`
	DurationMs int64  `csv:"duration_ms"`
}

func (e Entry) String() string {
	return fmt.Sprintf("Section %d: %s - %dms to %dms (%dms)", e.Index, e.Name, e.StartMs, e.EndMs, e.DurationMs)
}

// Build accumulates section durations in plan order starting at zero. A plan
// without sections gives an empty, non nil timeline.
func Build(plan *elevenlabs.CompositionPlan) []Entry {
	if plan == nil {
		return nil
	}
	entries := []Entry{}
	var cumulative int64
	for i, s := range plan.Sections {
		name := UnknownName
		if s.Name != nil {
			name = *s.Name
		}
		entries = append(entries, Entry{
			Index:      i + 1,
			Name:       name,
			StartMs:    cumulative,
			EndMs:      cumulative + s.DurationMs,
			DurationMs: s.DurationMs,
		})
		cumulative += s.DurationMs
	}
	return entries
}

// Print writes the timeline in its human readable form.
func Print(w io.Writer, entries []Entry) error {
	if _, err := fmt.Fprintln(w, "\nComposition Plan Sections:"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "  %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

// Locate returns the entry whose span contains the offset.
func Locate(entries []Entry, ms int64) (Entry, bool) {
	for _, e := range entries {
		if ms >= e.StartMs && ms < e.EndMs {
			return e, true
		}
	}
	return Entry{}, false
}

// CSV encodes the timeline with a header row.
func CSV(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := gocsv.MarshalBytes(&entries)
	if err != nil {
		return nil, fmt.Errorf("timeline: couldn't marshal csv: %w", err)
	}
	return b, nil
}

// FromMetadata builds the timeline of a saved metadata document. It returns
// nil when the document has no composition plan.
func FromMetadata(doc []byte) ([]Entry, error) {
	plan, err := elevenlabs.Plan(doc)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	return Build(plan), nil
}
