package timeline

import (
	"reflect"
	"testing"
)

func testEvent(kind Kind, key, start string) Event {
	return Event{
		ID:        string(kind) + "-" + key,
		Content:   key,
		Start:     start,
		Lane:      kind.Lane(),
		Shape:     ShapePoint,
		SourceKey: key,
		Kind:      kind,
	}
}

func TestApplyFiltersEmptyCriteriaIsIdentity(t *testing.T) {
	events := []Event{
		testEvent(KindDiagnosis, "D1", "2020-01-01"),
		testEvent(KindLab, "L1", "2020-02-01"),
		testEvent(KindDeath, "P1", "2022-01-01"),
	}
	got, err := ApplyFilters(events, Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, events) {
		t.Errorf("expected identity, got %+v", got)
	}
}

func TestApplyFiltersEmptyInput(t *testing.T) {
	got, err := ApplyFilters(nil, Criteria{
		Lanes:       []Lane{LaneLabs},
		StartDate:   "2020-01-01",
		CodePattern: "E11%",
		Text:        "metformin",
		Sources:     []string{"EPIC"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d", len(got))
	}
}

func TestFilterSemanticMedicationsTarget(t *testing.T) {
	events := []Event{
		testEvent(KindPrescribing, "RX_1", "2021-01-01"),
		testEvent(KindPrescribing, "RX_2", "2021-01-02"),
		testEvent(KindDispensing, "DISP_4", "2021-01-03"),
		testEvent(KindDispensing, "DISP_5", "2021-01-04"),
		testEvent(KindDiagnosis, "D1", "2021-01-05"),
		testEvent(KindDiagnosis, "D2", "2021-01-06"),
	}
	got := filterSemantic(events, &SemanticMatch{
		Target: SemanticTargetMedications,
		SubIDs: map[string][]string{
			"prescribing": {"RX_1"},
			"dispensing":  {"DISP_4"},
		},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	// Exclusive restriction: diagnosis events drop even though no
	// diagnosis filter was requested.
	if got[0].SourceKey != "RX_1" || got[1].SourceKey != "DISP_4" {
		t.Errorf("expected RX_1 and DISP_4, got %s and %s", got[0].SourceKey, got[1].SourceKey)
	}
}

func TestFilterSemanticSingleKind(t *testing.T) {
	events := []Event{
		testEvent(KindDiagnosis, "D1", "2020-01-01"),
		testEvent(KindDiagnosis, "D2", "2020-01-02"),
		testEvent(KindLab, "L1", "2020-01-03"),
	}
	got := filterSemantic(events, &SemanticMatch{Target: "diagnosis", IDs: []string{"D2"}})
	if len(got) != 1 || got[0].SourceKey != "D2" {
		t.Fatalf("expected only D2, got %+v", got)
	}
}

func TestFilterSemanticUnknownTargetMatchesNothing(t *testing.T) {
	events := []Event{testEvent(KindDiagnosis, "D1", "2020-01-01")}
	got := filterSemantic(events, &SemanticMatch{Target: "allergies", IDs: []string{"D1"}})
	if len(got) != 0 {
		t.Errorf("expected empty result for unknown target, got %d", len(got))
	}
}

func TestFilterLanesKeepsLifeMarkers(t *testing.T) {
	death := testEvent(KindDeath, "P1", "2022-01-01")
	death.Lane = ""
	birth := testEvent(KindBirth, "P1", "1950-01-01")
	birth.Lane = ""
	events := []Event{
		testEvent(KindDiagnosis, "D1", "2020-01-01"),
		testEvent(KindLab, "L1", "2020-01-02"),
		death,
		birth,
	}
	got := filterLanes(events, []Lane{LaneLabs})
	if len(got) != 3 {
		t.Fatalf("expected lab plus both life markers, got %d", len(got))
	}
	for _, e := range got {
		if e.Kind == KindDiagnosis {
			t.Errorf("diagnosis should have been dropped")
		}
	}
}

func TestFilterDateRangeBounds(t *testing.T) {
	events := []Event{
		testEvent(KindLab, "L1", "2020-01-01"),
		testEvent(KindLab, "L2", "2020-06-01"),
		testEvent(KindLab, "L3", "2020-12-31"),
	}

	got := filterDateRange(events, "2020-02-01", "2020-11-30")
	if len(got) != 1 || got[0].SourceKey != "L2" {
		t.Fatalf("expected only L2, got %+v", got)
	}

	// Open lower bound.
	got = filterDateRange(events, "", "2020-06-01")
	if len(got) != 2 {
		t.Errorf("expected 2 events with open start, got %d", len(got))
	}

	// Open upper bound.
	got = filterDateRange(events, "2020-06-01", "")
	if len(got) != 2 {
		t.Errorf("expected 2 events with open end, got %d", len(got))
	}
}

func TestFilterCodePattern(t *testing.T) {
	d1 := testEvent(KindDiagnosis, "D1", "2020-01-01")
	d1.Code = "E11.9"
	d2 := testEvent(KindDiagnosis, "D2", "2020-01-02")
	d2.Code = "I10"
	p1 := testEvent(KindProcedure, "P1", "2020-01-03")
	p1.Code = "E1152"
	lab := testEvent(KindLab, "L1", "2020-01-04")

	got, err := filterCodePattern([]Event{d1, d2, p1, lab}, "E11%")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Non-matching diagnosis/procedure drop; other kinds pass unaffected.
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for _, e := range got {
		if e.SourceKey == "D2" {
			t.Error("I10 should not match E11%")
		}
	}
}

func TestFilterCodePatternUnderscore(t *testing.T) {
	d := testEvent(KindDiagnosis, "D1", "2020-01-01")
	d.Code = "E11.9"
	got, err := filterCodePattern([]Event{d}, "E1_.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected underscore to match a single character")
	}

	got, err = filterCodePattern([]Event{d}, "E_.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected anchored match to reject E11.9 for E_.9")
	}
}

func TestFilterCodePatternMalformed(t *testing.T) {
	if _, err := filterCodePattern([]Event{}, `E11\`); err == nil {
		t.Error("expected error for trailing escape")
	}
	if err := (&Criteria{CodePattern: `E11\`}).Validate(); err == nil {
		t.Error("expected Validate to reject malformed pattern")
	}
}

func TestFilterTextMatchesLabAndMedNames(t *testing.T) {
	lab := testEvent(KindLab, "L1", "2020-01-01")
	lab.Content = "Hemoglobin A1c"
	rx := testEvent(KindPrescribing, "RX_1", "2020-01-02")
	rx.Content = "Metformin 500mg"
	disp := testEvent(KindDispensing, "DISP_1", "2020-01-03")
	disp.Content = "METFORMIN HCL"
	dx := testEvent(KindDiagnosis, "D1", "2020-01-04")
	dx.Content = "metformin intolerance"

	got := filterText([]Event{lab, rx, disp, dx}, "metformin")
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// The diagnosis passes because text match only targets labs and meds.
	kinds := map[Kind]bool{}
	for _, e := range got {
		kinds[e.Kind] = true
	}
	if kinds[KindLab] {
		t.Error("lab without a match should have been dropped")
	}
	if !kinds[KindDiagnosis] {
		t.Error("diagnosis should pass unaffected")
	}
}

func TestFilterSourcesKeepsUnknownAndLifeMarkers(t *testing.T) {
	epic := testEvent(KindLab, "L1", "2020-01-01")
	epic.SourceSystem = "EPIC"
	cerner := testEvent(KindLab, "L2", "2020-01-02")
	cerner.SourceSystem = "CERNER"
	unknown := testEvent(KindLab, "L3", "2020-01-03")
	death := testEvent(KindDeath, "P1", "2022-01-01")
	death.SourceSystem = "CERNER"

	got := filterSources([]Event{epic, cerner, unknown, death}, []string{"EPIC"})
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for _, e := range got {
		if e.SourceKey == "L2" {
			t.Error("CERNER lab should have been dropped")
		}
	}
}

func TestFilterStageIdentityWhenCriterionAbsent(t *testing.T) {
	events := []Event{
		testEvent(KindDiagnosis, "D1", "2020-01-01"),
		testEvent(KindLab, "L1", "2020-02-01"),
	}
	if got := filterSemantic(events, nil); !reflect.DeepEqual(got, events) {
		t.Error("semantic stage should be identity without a match set")
	}
	if got := filterLanes(events, nil); !reflect.DeepEqual(got, events) {
		t.Error("lane stage should be identity without a selection")
	}
	if got := filterDateRange(events, "", ""); !reflect.DeepEqual(got, events) {
		t.Error("date stage should be identity without bounds")
	}
	if got, _ := filterCodePattern(events, ""); !reflect.DeepEqual(got, events) {
		t.Error("code stage should be identity without a pattern")
	}
	if got := filterText(events, ""); !reflect.DeepEqual(got, events) {
		t.Error("text stage should be identity without a needle")
	}
	if got := filterSources(events, nil); !reflect.DeepEqual(got, events) {
		t.Error("source stage should be identity without a selection")
	}
}

func TestLikeToRegexpEscapesMetaCharacters(t *testing.T) {
	re, err := likeToRegexp("E11.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if re.MatchString("E11X9") {
		t.Error("dot must be literal, not a wildcard")
	}
	if !re.MatchString("e11.9") {
		t.Error("match should be case-insensitive")
	}

	re, err = likeToRegexp(`50\%`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !re.MatchString("50%") || re.MatchString("50X") {
		t.Error("escaped percent must be literal")
	}
}
