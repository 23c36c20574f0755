package timeline

import "sort"

// Lanes returns the fixed ordered lane-definition table handed to the
// rendering layer alongside the events.
func Lanes() []LaneDef {
	defs := make([]LaneDef, len(laneDefs))
	copy(defs, laneDefs)
	return defs
}

// Assemble performs the final touch-ups before handoff to rendering:
// stable ascending order, merged source-system badges for aggregated
// groups, and a guaranteed non-empty content/start pair on every record.
// Birth markers keep their empty content; they render as a line, not a
// label.
func Assemble(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)

	for i := range out {
		e := &out[i]
		if e.Count > 1 {
			// Badge merge: single source shows its code, multiple distinct
			// sources show the mixed marker, none known shows no badge.
			e.SourceSystem = e.SourceSystemSummary
		}
		if e.Content == "" && e.Kind != KindBirth {
			e.Content = e.Kind.Label()
		}
	}

	// Secondary sort on id keeps repeated runs byte-stable; order among
	// equal-start events is otherwise unspecified.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}
