package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// labNameWidth is the fixed display width lab names are truncated to.
const labNameWidth = 30

// Source table metadata per kind: the table the records came from and the
// column holding the record's primary key.
var sourceTables = map[Kind]struct {
	Table string
	Key   string
}{
	KindEncounter:   {"ENCOUNTER", "ENCOUNTERID"},
	KindDiagnosis:   {"DIAGNOSIS", "DIAGNOSISID"},
	KindProcedure:   {"PROCEDURES", "PROCEDURESID"},
	KindLab:         {"LAB_RESULT_CM", "LAB_RESULT_CM_ID"},
	KindPrescribing: {"PRESCRIBING", "PRESCRIBINGID"},
	KindDispensing:  {"DISPENSING", "DISPENSINGID"},
	KindVital:       {"VITAL", "VITALID"},
	KindCondition:   {"CONDITION", "CONDITIONID"},
	KindDeath:       {"DEATH", "PATID"},
	KindBirth:       {"DEMOGRAPHIC", "PATID"},
}

// normalizeFn converts one raw record into a canonical event. ok=false
// means the record is excluded (typically no resolvable date). That is a
// data-quality outcome, not an error: the caller surfaces it as a count
// delta.
type normalizeFn func(Record) (Event, bool)

// normalizer returns the conversion rule for the kind. The switch is the
// single dispatch point over the closed kind set.
func (k Kind) normalizer() normalizeFn {
	switch k {
	case KindEncounter:
		return normalizeEncounter
	case KindDiagnosis:
		return normalizeDiagnosis
	case KindProcedure:
		return normalizeProcedure
	case KindLab:
		return normalizeLab
	case KindPrescribing:
		return normalizePrescribing
	case KindDispensing:
		return normalizeDispensing
	case KindVital:
		return normalizeVital
	case KindCondition:
		return normalizeCondition
	case KindDeath:
		return normalizeDeath
	case KindBirth:
		return normalizeBirth
	}
	return nil
}

// Normalize converts raw records of one kind into canonical events.
// Records whose required date cannot be resolved are excluded entirely;
// the second return is the number of records dropped.
func Normalize(records []Record, kind Kind) ([]Event, int) {
	fn := kind.normalizer()
	if fn == nil {
		return nil, len(records)
	}
	events := make([]Event, 0, len(records))
	dropped := 0
	for _, r := range records {
		evt, ok := fn(r)
		if !ok {
			dropped++
			continue
		}
		events = append(events, evt)
	}
	return events, dropped
}

// NormalizeAll runs Normalize for every kind present in the record set and
// returns the combined events plus the total dropped count.
func NormalizeAll(records map[Kind][]Record) ([]Event, int) {
	var events []Event
	dropped := 0
	for _, kind := range Kinds {
		evts, d := Normalize(records[kind], kind)
		events = append(events, evts...)
		dropped += d
	}
	return events, dropped
}

// baseEvent fills the fields every kind shares.
func baseEvent(kind Kind, r Record) Event {
	meta := sourceTables[kind]
	key := r.Str(meta.Key)
	return Event{
		ID:           string(kind) + "-" + key,
		Lane:         kind.Lane(),
		Shape:        ShapePoint,
		StyleClass:   string(kind),
		SourceTable:  meta.Table,
		SourceKey:    key,
		Kind:         kind,
		SourceSystem: r.Str("DATA_SOURCE"),
	}
}

func normalizeEncounter(r Record) (Event, bool) {
	start, ok := ResolveDate(r["ADMIT_DATE"])
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindEncounter, r)
	evt.Start = start.Format(isoDate)
	evt.Content = r.Str("ENC_TYPE")
	if evt.Content == "" {
		evt.Content = "Encounter"
	}
	evt.Code = r.Str("ENC_TYPE")
	// Range only when the discharge date actually resolves.
	if end, ok := ResolveDate(r["DISCHARGE_DATE"]); ok {
		evt.End = end.Format(isoDate)
		evt.Shape = ShapeRange
		evt.Tooltip = fmt.Sprintf("Encounter (%s): %s to %s", evt.Content, evt.Start, evt.End)
	} else {
		evt.Tooltip = fmt.Sprintf("Encounter (%s): %s", evt.Content, evt.Start)
	}
	return evt, true
}

func normalizeDiagnosis(r Record) (Event, bool) {
	start, ok := resolveFirst(r, "DX_DATE", "ADMIT_DATE")
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindDiagnosis, r)
	evt.Start = start.Format(isoDate)
	evt.Code = r.Str("DX")
	evt.Content = codeOrDescription(r.Str("DX_DESCRIPTION"), evt.Code)
	evt.Tooltip = fmt.Sprintf("Diagnosis: %s (%s)", evt.Content, evt.Start)
	return evt, true
}

func normalizeProcedure(r Record) (Event, bool) {
	start, ok := resolveFirst(r, "PX_DATE", "ADMIT_DATE")
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindProcedure, r)
	evt.Start = start.Format(isoDate)
	evt.Code = r.Str("PX")
	evt.Content = codeOrDescription(r.Str("PX_DESCRIPTION"), evt.Code)
	evt.Tooltip = fmt.Sprintf("Procedure: %s (%s)", evt.Content, evt.Start)
	return evt, true
}

func normalizeLab(r Record) (Event, bool) {
	start, ok := ResolveDate(r["RESULT_DATE"])
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindLab, r)
	evt.Start = start.Format(isoDate)
	evt.Code = r.Str("LAB_LOINC")
	name := r.Str("RAW_LAB_NAME")
	if name == "" {
		name = evt.Code
	}
	if name == "" {
		name = "Lab"
	}
	evt.Content = truncate(name, labNameWidth)
	result, abnormal := formatLabResult(r)
	if result != "" {
		evt.Tooltip = fmt.Sprintf("%s: %s (%s)", name, result, evt.Start)
	} else {
		evt.Tooltip = fmt.Sprintf("%s (%s)", name, evt.Start)
	}
	if abnormal {
		evt.StyleClass += " abnormal"
	}
	return evt, true
}

func normalizePrescribing(r Record) (Event, bool) {
	start, ok := resolveFirst(r, "RX_START_DATE", "RX_ORDER_DATE")
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindPrescribing, r)
	evt.Start = start.Format(isoDate)
	evt.Content = r.Str("RAW_RX_MED_NAME")
	if evt.Content == "" {
		evt.Content = r.Str("RXNORM_CUI")
	}
	if evt.Content == "" {
		evt.Content = "Medication"
	}
	evt.Code = r.Str("RXNORM_CUI")

	if end, ok := ResolveDate(r["RX_END_DATE"]); ok {
		evt.End = end.Format(isoDate)
		evt.Shape = ShapeRange
	} else if supply, ok := r.Float("RX_DAYS_SUPPLY"); ok && supply > 0 {
		evt.End = start.AddDate(0, 0, int(supply)).Format(isoDate)
		evt.Shape = ShapeRange
	}
	if evt.End != "" {
		evt.Tooltip = fmt.Sprintf("Prescription: %s, %s to %s", evt.Content, evt.Start, evt.End)
	} else {
		evt.Tooltip = fmt.Sprintf("Prescription: %s (%s)", evt.Content, evt.Start)
	}
	return evt, true
}

func normalizeDispensing(r Record) (Event, bool) {
	start, ok := ResolveDate(r["DISPENSE_DATE"])
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindDispensing, r)
	evt.Start = start.Format(isoDate)
	evt.Code = r.Str("NDC")
	evt.Content = codeOrDescription(r.Str("RAW_DISP_MED_NAME"), evt.Code)
	if evt.Content == "" {
		evt.Content = "Dispensing"
	}
	evt.Tooltip = fmt.Sprintf("Dispensed: %s (%s)", evt.Content, evt.Start)
	return evt, true
}

func normalizeVital(r Record) (Event, bool) {
	start, ok := ResolveDate(r["MEASURE_DATE"])
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindVital, r)
	evt.Start = start.Format(isoDate)
	evt.Content = vitalContent(r)
	evt.Tooltip = fmt.Sprintf("Vitals: %s (%s)", evt.Content, evt.Start)
	return evt, true
}

func normalizeCondition(r Record) (Event, bool) {
	start, ok := resolveFirst(r, "ONSET_DATE", "REPORT_DATE")
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindCondition, r)
	evt.Start = start.Format(isoDate)
	evt.Code = r.Str("CONDITION")
	evt.Content = codeOrDescription(r.Str("CONDITION_DESCRIPTION"), evt.Code)
	evt.Tooltip = fmt.Sprintf("Condition: %s (%s)", evt.Content, evt.Start)
	return evt, true
}

func normalizeDeath(r Record) (Event, bool) {
	start, ok := ResolveDate(r["DEATH_DATE"])
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindDeath, r)
	evt.Start = start.Format(isoDate)
	evt.Shape = ShapeLifeMarker
	evt.Content = "Death"
	evt.Tooltip = fmt.Sprintf("Death: %s", evt.Start)
	return evt, true
}

func normalizeBirth(r Record) (Event, bool) {
	start, ok := ResolveDate(r["BIRTH_DATE"])
	if !ok {
		return Event{}, false
	}
	evt := baseEvent(KindBirth, r)
	evt.Start = start.Format(isoDate)
	evt.Shape = ShapeLifeMarker
	// Birth renders as a visual marker only.
	evt.Content = ""
	evt.Tooltip = fmt.Sprintf("Birth: %s", evt.Start)
	return evt, true
}

// codeOrDescription prefers the human-readable description, falling back
// to the raw code.
func codeOrDescription(description, code string) string {
	if description != "" {
		return description
	}
	return code
}

// resultModifiers maps the result-modifier code to its display prefix.
var resultModifiers = map[string]string{
	"LT": "<",
	"LE": "<=",
	"GT": ">",
	"GE": ">=",
}

// abnormalIndicators maps the abnormal-indicator code to its severity
// label. "NI" (no information) is deliberately absent: it neither renders
// a suffix nor flags the event abnormal.
var abnormalIndicators = map[string]string{
	"AB": "Abnormal",
	"AH": "High",
	"AL": "Low",
	"CH": "Crit High",
	"CL": "Crit Low",
	"CR": "Critical",
}

// formatLabResult composes the modifier prefix, the numeric or qualitative
// result with its unit, and the bracketed severity suffix. The bool
// reports whether the event should carry the abnormal style modifier.
func formatLabResult(r Record) (string, bool) {
	var b strings.Builder
	if prefix, ok := resultModifiers[strings.ToUpper(r.Str("RESULT_MODIFIER"))]; ok {
		b.WriteString(prefix)
	}
	if num, ok := r.Float("RESULT_NUM"); ok {
		b.WriteString(strconv.FormatFloat(num, 'f', -1, 64))
		b.WriteString(r.Str("RESULT_UNIT"))
	} else if qual := r.Str("RESULT_QUAL"); qual != "" {
		b.WriteString(qual)
	}

	abn := strings.ToUpper(r.Str("ABN_IND"))
	severity, flagged := abnormalIndicators[abn]
	if flagged {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("[" + severity + "]")
	}
	abnormal := abn != "" && abn != "NI"
	return b.String(), abnormal
}

// vitalContent composes whichever vital measurements are present,
// space-joined. BMI is rounded to one decimal.
func vitalContent(r Record) string {
	var parts []string
	sys, sysOK := r.Float("SYSTOLIC")
	dia, diaOK := r.Float("DIASTOLIC")
	if sysOK && diaOK {
		parts = append(parts, fmt.Sprintf("BP %s/%s",
			strconv.FormatFloat(sys, 'f', -1, 64),
			strconv.FormatFloat(dia, 'f', -1, 64)))
	}
	if ht, ok := r.Float("HT"); ok {
		parts = append(parts, "HT "+strconv.FormatFloat(ht, 'f', -1, 64))
	}
	if wt, ok := r.Float("WT"); ok {
		parts = append(parts, "WT "+strconv.FormatFloat(wt, 'f', -1, 64))
	}
	if bmi, ok := r.Float("ORIGINAL_BMI"); ok {
		parts = append(parts, fmt.Sprintf("BMI %.1f", bmi))
	}
	if len(parts) == 0 {
		return "Vitals"
	}
	return strings.Join(parts, " ")
}

// truncate cuts s to at most width runes.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}
