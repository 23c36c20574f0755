package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the clinical category of the originating record. The set is
// closed: every kind carries its own normalization rule (see normalize.go)
// and maps to at most one display lane.
type Kind string

const (
	KindEncounter   Kind = "encounter"
	KindDiagnosis   Kind = "diagnosis"
	KindProcedure   Kind = "procedure"
	KindLab         Kind = "lab"
	KindPrescribing Kind = "prescribing"
	KindDispensing  Kind = "dispensing"
	KindVital       Kind = "vital"
	KindCondition   Kind = "condition"
	KindDeath       Kind = "death"
	KindBirth       Kind = "birth"
)

// Kinds lists every record kind in normalization order.
var Kinds = []Kind{
	KindEncounter,
	KindDiagnosis,
	KindProcedure,
	KindLab,
	KindPrescribing,
	KindDispensing,
	KindVital,
	KindCondition,
	KindDeath,
	KindBirth,
}

// Valid reports whether k is one of the recognized record kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEncounter, KindDiagnosis, KindProcedure, KindLab, KindPrescribing,
		KindDispensing, KindVital, KindCondition, KindDeath, KindBirth:
		return true
	}
	return false
}

// Lane returns the display lane for events of this kind. Birth and death
// markers span all lanes and have no lane of their own.
func (k Kind) Lane() Lane {
	switch k {
	case KindEncounter:
		return LaneEncounters
	case KindDiagnosis:
		return LaneDiagnoses
	case KindProcedure:
		return LaneProcedures
	case KindLab:
		return LaneLabs
	case KindPrescribing:
		return LanePrescribing
	case KindDispensing:
		return LaneDispensing
	case KindVital:
		return LaneVitals
	case KindCondition:
		return LaneConditions
	}
	return ""
}

// Label returns the singular human-readable name for the kind.
func (k Kind) Label() string {
	switch k {
	case KindEncounter:
		return "Encounter"
	case KindDiagnosis:
		return "Diagnosis"
	case KindProcedure:
		return "Procedure"
	case KindLab:
		return "Lab"
	case KindPrescribing:
		return "Prescription"
	case KindDispensing:
		return "Dispensing"
	case KindVital:
		return "Vital"
	case KindCondition:
		return "Condition"
	case KindDeath:
		return "Death"
	case KindBirth:
		return "Birth"
	}
	return string(k)
}

// Shape describes how an event renders on the timeline.
type Shape string

const (
	ShapePoint      Shape = "point"
	ShapeRange      Shape = "range"
	ShapeLifeMarker Shape = "life-marker"
)

// Lane is the display track a point-in-time event is drawn on.
type Lane string

const (
	LaneEncounters  Lane = "encounters"
	LaneDiagnoses   Lane = "diagnoses"
	LaneProcedures  Lane = "procedures"
	LaneLabs        Lane = "labs"
	LanePrescribing Lane = "prescribing"
	LaneDispensing  Lane = "dispensing"
	LaneVitals      Lane = "vitals"
	LaneConditions  Lane = "conditions"
)

// LaneDef is one entry in the fixed lane-definition table handed to the
// rendering layer.
type LaneDef struct {
	ID    Lane   `json:"id"`
	Label string `json:"label"`
}

// laneDefs is the fixed ordered list of display lanes.
var laneDefs = []LaneDef{
	{ID: LaneEncounters, Label: "Encounters"},
	{ID: LaneDiagnoses, Label: "Diagnoses"},
	{ID: LaneProcedures, Label: "Procedures"},
	{ID: LaneLabs, Label: "Labs"},
	{ID: LanePrescribing, Label: "Prescribing"},
	{ID: LaneDispensing, Label: "Dispensing"},
	{ID: LaneVitals, Label: "Vitals"},
	{ID: LaneConditions, Label: "Conditions"},
}

// Event is the canonical display record produced by the pipeline. It is
// immutable once produced; aggregation synthesizes new events rather than
// mutating members.
type Event struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	Start        string `json:"start"`
	End          string `json:"end,omitempty"`
	Lane         Lane   `json:"lane,omitempty"`
	Shape        Shape  `json:"shape"`
	StyleClass   string `json:"style_class"`
	Tooltip      string `json:"tooltip,omitempty"`
	Code         string `json:"code,omitempty"`
	SourceTable  string `json:"source_table,omitempty"`
	SourceKey    string `json:"source_key,omitempty"`
	Kind         Kind   `json:"kind"`
	SourceSystem string `json:"source_system,omitempty"`

	// Aggregation fields, set only on AggregationEngine output. Count is 1
	// for events that passed through grouping alone; 0 marks an event that
	// bypassed aggregation entirely (ranges, life markers, individual level).
	Count               int    `json:"count,omitempty"`
	OriginalIDs         string `json:"original_ids,omitempty"`
	SourceSystemSummary string `json:"source_system_summary,omitempty"`
}

// LifeMarker reports whether the event is a birth or death marker.
func (e *Event) LifeMarker() bool {
	return e.Kind == KindDeath || e.Kind == KindBirth
}

// Aggregable reports whether the event is eligible for daily/weekly
// grouping. Ranges and life markers always pass through unchanged.
func (e *Event) Aggregable() bool {
	return e.Shape == ShapePoint && !e.LifeMarker()
}

// Record is one untyped row from a source clinical table, keyed by the
// source system's native column names. The pipeline never fetches or
// shapes these itself.
type Record map[string]any

// Str returns the named column as a trimmed string, or "" when the column
// is absent or nil.
func (r Record) Str(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// Float returns the named column as a float64 when it holds a numeric
// value or a parseable numeric string.
func (r Record) Float(col string) (float64, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
