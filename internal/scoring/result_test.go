package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"millaudit/internal/domain"
)

func twoItemTemplate() domain.ChecklistTemplate {
	return domain.ChecklistTemplate{
		ID:                  "flour-mill-qc",
		Title:               "Flour mill fortification QC",
		Version:             "1.2.0",
		RegulatoryReference: "KS EAS 767:2019",
		Sections: []domain.Section{
			{
				ID:    "dosing",
				Title: "Dosing",
				Items: []domain.ChecklistItem{
					{ID: "item1", Text: "Premix log complete?", Type: domain.ItemYesNo, Criticality: domain.CriticalityCritical, Weight: 10},
				},
			},
			{
				ID:    "lab",
				Title: "Lab",
				Items: []domain.ChecklistItem{
					{
						ID: "item2", Text: "Iron ppm", Type: domain.ItemNumeric, Criticality: domain.CriticalityMajor, Weight: 10,
						NumericConfig: &domain.NumericConfig{Target: 30, TolerancePercent: ptr(5), Min: ptr(20), Max: ptr(40)},
					},
				},
			},
		},
	}
}

func answer(t domain.ChecklistTemplate, id string, a domain.AnswerValue) domain.AuditResponse {
	item, _ := t.Item(id)
	return ScoreItem(item, a)
}

func TestCalculateAuditResult_EndToEnd(t *testing.T) {
	tpl := twoItemTemplate()
	responses := map[string]domain.AuditResponse{
		"item1": answer(tpl, "item1", domain.YesNoAnswer(true)),
		"item2": answer(tpl, "item2", domain.NumericAnswer(32)),
	}

	got := CalculateAuditResult(tpl, responses)

	want := domain.AuditResult{
		TemplateID:      "flour-mill-qc",
		TemplateVersion: "1.2.0",
		OverallPercent:  75,
		Grade:           domain.GradeSatisfactory,
		RedFlags:        0,
		YellowFlags:     1,
		TotalScore:      15,
		TotalMax:        20,
		Answered:        2,
		Flags: []domain.FlaggedItem{
			{ItemID: "item2", SectionID: "lab", Text: "Iron ppm", Criticality: domain.CriticalityMajor, Level: domain.FlagYellow, Value: "32"},
		},
	}
	if diff := cmp.Diff(want, got, cmpIgnoreHash); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, got.CalculationHash)
}

var cmpIgnoreHash = cmp.FilterPath(func(p cmp.Path) bool {
	return p.Last().String() == ".CalculationHash"
}, cmp.Ignore())

func TestCalculateAuditResult_RedFlagOverridesPercent(t *testing.T) {
	tpl := twoItemTemplate()
	tpl.Sections[0].Items[0].Weight = 1
	tpl.Sections[1].Items[0].Weight = 99
	responses := map[string]domain.AuditResponse{
		"item1": answer(tpl, "item1", domain.YesNoAnswer(false)),
		"item2": answer(tpl, "item2", domain.NumericAnswer(30)),
	}
	got := CalculateAuditResult(tpl, responses)
	assert.InDelta(t, 99.0, got.OverallPercent, 1e-9)
	assert.Equal(t, 1, got.RedFlags)
	assert.Equal(t, domain.GradeCriticalFailure, got.Grade)
}

func TestCalculateAuditResult_NAExcludedFromBothSums(t *testing.T) {
	tpl := twoItemTemplate()
	responses := map[string]domain.AuditResponse{
		"item1": answer(tpl, "item1", domain.YesNoAnswer(true)),
		"item2": {ItemID: "item2", IsNA: true, NAJustification: "lab closed"},
	}
	got := CalculateAuditResult(tpl, responses)
	assert.Equal(t, 10.0, got.TotalScore)
	assert.Equal(t, 10.0, got.TotalMax)
	assert.Equal(t, 100.0, got.OverallPercent)
	assert.Equal(t, 1, got.NotApplicable)
	assert.Equal(t, 1, got.Answered)
	assert.Equal(t, domain.GradeExcellent, got.Grade)
}

func TestCalculateAuditResult_UnansweredPolicy(t *testing.T) {
	tpl := twoItemTemplate()
	responses := map[string]domain.AuditResponse{
		"item1": answer(tpl, "item1", domain.YesNoAnswer(true)),
		"item2": {ItemID: "item2"},
	}

	excluded := CalculateAuditResult(tpl, responses)
	assert.Equal(t, 100.0, excluded.OverallPercent)
	assert.Equal(t, 10.0, excluded.TotalMax)
	assert.Equal(t, 1, excluded.Unanswered)

	penalized := New(WithUnansweredPolicy(UnansweredPenalize)).CalculateAuditResult(tpl, responses)
	assert.Equal(t, 50.0, penalized.OverallPercent)
	assert.Equal(t, 20.0, penalized.TotalMax)
	assert.Equal(t, domain.GradeNeedsImprovement, penalized.Grade)
	assert.Equal(t, excluded.CalculationHash, penalized.CalculationHash)
}

func TestCalculateAuditResult_IgnoresUnknownItems(t *testing.T) {
	tpl := twoItemTemplate()
	base := map[string]domain.AuditResponse{
		"item1": answer(tpl, "item1", domain.YesNoAnswer(true)),
	}
	withUnknown := map[string]domain.AuditResponse{
		"item1":  base["item1"],
		"zz-old": {ItemID: "zz-old", Value: domain.YesNoAnswer(false)},
		"aa-old": {ItemID: "aa-old", Value: domain.NumericAnswer(3)},
	}
	a := CalculateAuditResult(tpl, base)
	b := CalculateAuditResult(tpl, withUnknown)
	assert.Equal(t, []string{"aa-old", "zz-old"}, b.IgnoredItemIDs)
	assert.Equal(t, a.OverallPercent, b.OverallPercent)
	assert.Equal(t, a.CalculationHash, b.CalculationHash)
}

func TestCalculateAuditResult_RescoresStoredFields(t *testing.T) {
	tpl := twoItemTemplate()
	forged := map[string]domain.AuditResponse{
		"item1": {ItemID: "item1", Value: domain.YesNoAnswer(false), Score: 10, MaxScore: 10, FlagLevel: domain.FlagNone},
	}
	got := CalculateAuditResult(tpl, forged)
	assert.Equal(t, 0.0, got.TotalScore)
	assert.Equal(t, 1, got.RedFlags)
}

func TestCalculateAuditResult_EmptyTemplate(t *testing.T) {
	got := CalculateAuditResult(domain.ChecklistTemplate{ID: "empty", Version: "0.1.0"}, nil)
	assert.Equal(t, 0.0, got.OverallPercent)
	assert.Equal(t, domain.GradeNonCompliant, got.Grade)
	assert.Zero(t, got.RedFlags)
	assert.Zero(t, got.YellowFlags)
	assert.Empty(t, got.Flags)
}

func TestCalculateAuditResult_FlagsInTemplateOrder(t *testing.T) {
	tpl := domain.ChecklistTemplate{
		ID: "order", Version: "1",
		Sections: []domain.Section{
			{ID: "s1", Items: []domain.ChecklistItem{
				{ID: "z", Type: domain.ItemYesNo, Criticality: domain.CriticalityMajor, Weight: 1},
				{ID: "a", Type: domain.ItemYesNo, Criticality: domain.CriticalityCritical, Weight: 1},
			}},
			{ID: "s2", Items: []domain.ChecklistItem{
				{ID: "m", Type: domain.ItemYesNo, Criticality: domain.CriticalityMajor, Weight: 1},
			}},
		},
	}
	responses := map[string]domain.AuditResponse{}
	for _, id := range []string{"m", "a", "z"} {
		responses[id] = domain.AuditResponse{ItemID: id, Value: domain.YesNoAnswer(false)}
	}
	got := CalculateAuditResult(tpl, responses)
	ids := make([]string, 0, len(got.Flags))
	for _, f := range got.Flags {
		ids = append(ids, f.ItemID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
	assert.Equal(t, 1, got.RedFlags)
	assert.Equal(t, 2, got.YellowFlags)
}

func TestCalculateAuditResult_ZeroWeightStillFlags(t *testing.T) {
	tpl := domain.ChecklistTemplate{
		ID: "zw", Version: "1",
		Sections: []domain.Section{{ID: "s", Items: []domain.ChecklistItem{
			{ID: "info", Type: domain.ItemYesNo, Criticality: domain.CriticalityCritical},
			{ID: "real", Type: domain.ItemYesNo, Criticality: domain.CriticalityMinor, Weight: 5},
		}}},
	}
	got := CalculateAuditResult(tpl, map[string]domain.AuditResponse{
		"info": {ItemID: "info", Value: domain.YesNoAnswer(false)},
		"real": {ItemID: "real", Value: domain.YesNoAnswer(true)},
	})
	assert.Equal(t, 100.0, got.OverallPercent)
	assert.Equal(t, 1, got.RedFlags)
	assert.Equal(t, domain.GradeCriticalFailure, got.Grade)
}

func TestCalculateAuditResult_DoesNotMutateInputs(t *testing.T) {
	tpl := twoItemTemplate()
	responses := map[string]domain.AuditResponse{
		"item1": {ItemID: "item1", Value: domain.YesNoAnswer(false), Score: 99},
	}
	before := cloneResponses(responses)
	_ = CalculateAuditResult(tpl, responses)
	if diff := cmp.Diff(before, responses); diff != "" {
		t.Fatalf("responses mutated (-before +after):\n%s", diff)
	}
}

func TestCalculateAuditResult_CustomBands(t *testing.T) {
	tpl := twoItemTemplate()
	responses := map[string]domain.AuditResponse{
		"item1": {ItemID: "item1", Value: domain.YesNoAnswer(true)},
		"item2": {ItemID: "item2", Value: domain.NumericAnswer(32)},
	}
	e := New(WithGradeBands(GradeBands{Excellent: 95, Satisfactory: 80, NeedsImprovement: 60}))
	got := e.CalculateAuditResult(tpl, responses)
	require.Equal(t, 75.0, got.OverallPercent)
	assert.Equal(t, domain.GradeNeedsImprovement, got.Grade)
}

func TestRescore(t *testing.T) {
	tpl := twoItemTemplate()
	ev := []domain.Evidence{{ID: "ev-1", Kind: domain.EvidencePhoto, URI: "s3://bucket/a.jpg"}}
	in := map[string]domain.AuditResponse{
		"item2":   {ItemID: "item2", Value: domain.NumericAnswer(45), Evidence: ev},
		"item1":   {ItemID: "item1", IsNA: true, NAJustification: "no premix run"},
		"unknown": {ItemID: "unknown", Value: domain.YesNoAnswer(true)},
	}
	out := New().Rescore(tpl, in)
	assert.Equal(t, domain.FlagRed, out["item2"].FlagLevel)
	assert.Equal(t, ev, out["item2"].Evidence)
	assert.True(t, out["item1"].IsNA)
	assert.Equal(t, "no premix run", out["item1"].NAJustification)
	assert.Equal(t, in["unknown"], out["unknown"])
	assert.Equal(t, 0.0, in["item2"].Score)
}

func cloneResponses(in map[string]domain.AuditResponse) map[string]domain.AuditResponse {
	out := make(map[string]domain.AuditResponse, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
