package timeline

import (
	"fmt"
	"regexp"
	"strings"
)

// SemanticTargetMedications is the combined target spanning prescribing
// and dispensing, used by the external semantic-filter collaborator for
// medication queries.
const SemanticTargetMedications = "medications"

// SemanticMatch is the result set supplied by the external semantic-filter
// collaborator: a target kind plus the exact allow-list of matching record
// keys. For the combined medications target the keys are supplied per
// sub-kind instead.
type SemanticMatch struct {
	Target string              `json:"target"`
	IDs    []string            `json:"ids,omitempty"`
	SubIDs map[string][]string `json:"sub_ids,omitempty"`
}

// Criteria is the full layered filter configuration. Every field is
// optional; an absent criterion makes its stage an identity.
type Criteria struct {
	Semantic    *SemanticMatch `json:"semantic,omitempty"`
	Lanes       []Lane         `json:"lanes,omitempty"`
	StartDate   string         `json:"start_date,omitempty"`
	EndDate     string         `json:"end_date,omitempty"`
	CodePattern string         `json:"code_pattern,omitempty"`
	Text        string         `json:"text,omitempty"`
	Sources     []string       `json:"sources,omitempty"`
}

// Validate rejects boundary-level configuration errors before the pipeline
// runs. Currently that is only a malformed code pattern.
func (c *Criteria) Validate() error {
	if c.CodePattern != "" {
		if _, err := likeToRegexp(c.CodePattern); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFilters runs the filter stages in their fixed order, each consuming
// the previous stage's output. The only possible error is a malformed code
// pattern, which is a boundary validation failure.
func ApplyFilters(events []Event, crit Criteria) ([]Event, error) {
	events = filterSemantic(events, crit.Semantic)
	events = filterLanes(events, crit.Lanes)
	events = filterDateRange(events, crit.StartDate, crit.EndDate)
	events, err := filterCodePattern(events, crit.CodePattern)
	if err != nil {
		return nil, err
	}
	events = filterText(events, crit.Text)
	events = filterSources(events, crit.Sources)
	return events, nil
}

// filterSemantic applies the externally-supplied allow-list. While active
// it is an exclusive restriction: only events of the target kind(s) whose
// source key is in the matching set survive; every other kind is dropped.
// An unrecognized target kind matches nothing rather than failing.
func filterSemantic(events []Event, match *SemanticMatch) []Event {
	if match == nil {
		return events
	}

	allowed := map[Kind]map[string]bool{}
	if match.Target == SemanticTargetMedications {
		allowed[KindPrescribing] = toSet(match.SubIDs[string(KindPrescribing)])
		allowed[KindDispensing] = toSet(match.SubIDs[string(KindDispensing)])
	} else if kind := Kind(match.Target); kind.Valid() {
		allowed[kind] = toSet(match.IDs)
	}

	out := events[:0:0]
	for _, e := range events {
		keys, ok := allowed[e.Kind]
		if ok && keys[e.SourceKey] {
			out = append(out, e)
		}
	}
	return out
}

// filterLanes retains events whose kind maps to a selected lane. Death and
// birth markers always pass regardless of selection.
func filterLanes(events []Event, lanes []Lane) []Event {
	if len(lanes) == 0 {
		return events
	}
	selected := map[Lane]bool{}
	for _, l := range lanes {
		selected[l] = true
	}
	out := events[:0:0]
	for _, e := range events {
		if e.LifeMarker() || selected[e.Kind.Lane()] {
			out = append(out, e)
		}
	}
	return out
}

// filterDateRange retains events whose start falls within [start, end].
// Either bound may be open. Start dates are ISO strings, so the comparison
// is lexicographic.
func filterDateRange(events []Event, start, end string) []Event {
	if start == "" && end == "" {
		return events
	}
	out := events[:0:0]
	for _, e := range events {
		if start != "" && e.Start < start {
			continue
		}
		if end != "" && e.Start > end {
			continue
		}
		out = append(out, e)
	}
	return out
}

// filterCodePattern applies a SQL-LIKE-style pattern to diagnosis and
// procedure codes. Other kinds pass unaffected.
func filterCodePattern(events []Event, pattern string) ([]Event, error) {
	if pattern == "" {
		return events, nil
	}
	re, err := likeToRegexp(pattern)
	if err != nil {
		return nil, err
	}
	out := events[:0:0]
	for _, e := range events {
		if e.Kind == KindDiagnosis || e.Kind == KindProcedure {
			if !re.MatchString(e.Code) {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// filterText applies a case-insensitive substring match to lab names and
// medication names (prescribing and dispensing checked independently).
// Other kinds pass unaffected.
func filterText(events []Event, text string) []Event {
	if text == "" {
		return events
	}
	needle := strings.ToLower(text)
	out := events[:0:0]
	for _, e := range events {
		switch e.Kind {
		case KindLab, KindPrescribing, KindDispensing:
			if !strings.Contains(strings.ToLower(e.Content), needle) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// filterSources retains events whose source system is in the selected set,
// plus life markers and events with no known source system.
func filterSources(events []Event, sources []string) []Event {
	if len(sources) == 0 {
		return events
	}
	selected := toSet(sources)
	out := events[:0:0]
	for _, e := range events {
		if e.LifeMarker() || e.SourceSystem == "" || selected[e.SourceSystem] {
			out = append(out, e)
		}
	}
	return out
}

// likeToRegexp translates a SQL-LIKE pattern into an anchored,
// case-insensitive regexp. "%" matches any run of characters, "_" any
// single character; a backslash escapes the next character. A trailing
// bare backslash is malformed.
func likeToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		case '\\':
			if i == len(runes)-1 {
				return nil, fmt.Errorf("malformed pattern %q: trailing escape", pattern)
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("malformed pattern %q: %w", pattern, err)
	}
	return re, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
