package timeline

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Level is the aggregation granularity.
type Level string

const (
	LevelIndividual Level = "individual"
	LevelDaily      Level = "daily"
	LevelWeekly     Level = "weekly"
)

// ParseLevel validates an aggregation-level token at the boundary. The
// empty string defaults to individual; anything else unrecognized is a
// configuration error surfaced to the caller.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return LevelIndividual, nil
	case LevelIndividual, LevelDaily, LevelWeekly:
		return Level(s), nil
	}
	return "", fmt.Errorf("invalid aggregation level %q", s)
}

// tooltipItemCap bounds how many member contents an aggregate tooltip
// lists before the overflow note.
const tooltipItemCap = 10

// bucketKey identifies one aggregation group.
type bucketKey struct {
	Lane   Lane
	Kind   Kind
	Period string
}

// Aggregate collapses same-period same-kind point events into summary
// markers. Ranges and life markers bypass grouping and pass through
// unchanged. Unknown level values degrade to individual rather than
// failing; token validation belongs to the boundary (ParseLevel).
func Aggregate(events []Event, level Level) []Event {
	if level != LevelDaily && level != LevelWeekly {
		return events
	}
	if len(events) == 0 {
		return events
	}

	var keys []bucketKey
	groups := map[bucketKey][]Event{}
	out := make([]Event, 0, len(events))

	for _, e := range events {
		if !e.Aggregable() {
			out = append(out, e)
			continue
		}
		key := bucketKey{Lane: e.Lane, Kind: e.Kind, Period: periodKey(e.Start, level)}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], e)
	}

	for _, key := range keys {
		members := groups[key]
		if len(members) == 1 {
			single := members[0]
			single.Count = 1
			single.OriginalIDs = single.ID
			out = append(out, single)
			continue
		}
		out = append(out, mergeGroup(key, members))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// periodKey returns the daily ISO date or the ISO-year/ISO-week composite
// for the event's start date.
func periodKey(start string, level Level) string {
	if level == LevelDaily {
		return start
	}
	t, err := time.Parse(isoDate, start)
	if err != nil {
		return start
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// mergeGroup synthesizes the representative event for a group of two or
// more members. The first member's start date is used; order among
// equal-date members is otherwise unspecified.
func mergeGroup(key bucketKey, members []Event) Event {
	count := len(members)
	ids := make([]string, count)
	for i, m := range members {
		ids[i] = m.ID
	}

	plural := pluralize(key.Kind.Label())
	summary, badge := sourceSummary(members)

	return Event{
		ID:                  fmt.Sprintf("agg-%s-%s-%s", key.Lane, key.Kind, key.Period),
		Content:             fmt.Sprintf("%d %s", count, plural),
		Start:               members[0].Start,
		Lane:                key.Lane,
		Shape:               ShapePoint,
		StyleClass:          string(key.Kind) + " aggregated",
		Tooltip:             groupTooltip(count, plural, members, summary),
		SourceTable:         members[0].SourceTable,
		Kind:                key.Kind,
		SourceSystem:        badge,
		Count:               count,
		OriginalIDs:         strings.Join(ids, ","),
		SourceSystemSummary: summary,
	}
}

// groupTooltip renders the header line, up to tooltipItemCap bulleted
// items, an overflow note when truncated, and the source-system line when
// relevant.
func groupTooltip(count int, plural string, members []Event, sourceLine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s on %s", count, plural, members[0].Start)
	shown := len(members)
	if shown > tooltipItemCap {
		shown = tooltipItemCap
	}
	for _, m := range members[:shown] {
		content := m.Content
		if content == "" {
			content = m.Kind.Label()
		}
		b.WriteString("\n• " + content)
	}
	if remaining := len(members) - shown; remaining > 0 {
		fmt.Fprintf(&b, "\n...and %d more", remaining)
	}
	if sourceLine != "" {
		b.WriteString("\nSource: " + sourceLine)
	}
	return b.String()
}

// sourceSummary reduces the members' source systems to a single code, a
// "mixed" marker when more than one distinct source is present, or the
// empty string when none are known. The second return is the badge code
// shown on the merged marker.
func sourceSummary(members []Event) (summary, badge string) {
	distinct := map[string]bool{}
	for _, m := range members {
		if m.SourceSystem != "" {
			distinct[m.SourceSystem] = true
		}
	}
	switch len(distinct) {
	case 0:
		return "", ""
	case 1:
		for code := range distinct {
			return code, code
		}
	}
	return "mixed", "mixed"
}

// irregularPlurals lists the irregular forms checked before the default
// "+s" rule. The domain vocabulary is closed, so a lookup table is enough.
var irregularPlurals = map[string]string{
	"diagnosis": "diagnoses",
}

// pluralize applies the irregular table first (handling the -sis to -ses
// case), then appends "s" unless the word already ends in one.
func pluralize(word string) string {
	lower := strings.ToLower(word)
	if plural, ok := irregularPlurals[lower]; ok {
		return matchCase(word, plural)
	}
	if strings.HasSuffix(lower, "sis") {
		return word[:len(word)-3] + "ses"
	}
	if strings.HasSuffix(lower, "s") {
		return word
	}
	return word + "s"
}

// matchCase copies the leading capitalization of the original word onto
// the plural form.
func matchCase(original, plural string) string {
	if original == "" || plural == "" {
		return plural
	}
	if original[0] >= 'A' && original[0] <= 'Z' {
		return strings.ToUpper(plural[:1]) + plural[1:]
	}
	return plural
}
