package scoring

import (
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"millaudit/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(f float64) *float64 { return &f }

func numericItem(weight float64) domain.ChecklistItem {
	return domain.ChecklistItem{
		ID:          "premix-dosage",
		Text:        "Premix dosage (g/MT)",
		Type:        domain.ItemNumeric,
		Criticality: domain.CriticalityMajor,
		Weight:      weight,
		NumericConfig: &domain.NumericConfig{
			Target:           100,
			TolerancePercent: ptr(10),
			Min:              ptr(50),
			Max:              ptr(150),
		},
	}
}

func yesNoItem(c domain.Criticality) domain.ChecklistItem {
	return domain.ChecklistItem{
		ID:          "doser-calibrated",
		Text:        "Doser calibrated this shift?",
		Type:        domain.ItemYesNo,
		Criticality: c,
		Weight:      10,
	}
}

func TestScoreItem_NumericToleranceBand(t *testing.T) {
	item := numericItem(10)
	cases := []struct {
		name          string
		value         float64
		score         float64
		flag          domain.FlagLevel
		nonCompliant  bool
		wantDeviation float64
	}{
		{"inside tolerance", 105, 10, domain.FlagNone, false, 5},
		{"lower tolerance edge", 90, 10, domain.FlagNone, false, -10},
		{"outside tolerance inside range", 120, 5, domain.FlagYellow, true, 20},
		{"range edge", 150, 5, domain.FlagYellow, true, 50},
		{"outside range", 200, 0, domain.FlagRed, true, 100},
		{"below range", 10, 0, domain.FlagRed, true, -90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreItem(item, domain.NumericAnswer(tc.value))
			assert.Equal(t, tc.score, got.Score)
			assert.Equal(t, tc.flag, got.FlagLevel)
			assert.Equal(t, tc.nonCompliant, got.IsNonCompliant)
			assert.Equal(t, 10.0, got.MaxScore)
			require.NotNil(t, got.DeviationPercent)
			assert.InDelta(t, tc.wantDeviation, *got.DeviationPercent, 1e-9)
		})
	}
}

func TestScoreItem_NumericZeroTarget(t *testing.T) {
	item := domain.ChecklistItem{
		ID: "moisture-delta", Type: domain.ItemNumeric, Criticality: domain.CriticalityMinor, Weight: 4,
		NumericConfig: &domain.NumericConfig{Target: 0, TolerancePercent: ptr(10), Min: ptr(-2), Max: ptr(2)},
	}

	exact := ScoreItem(item, domain.NumericAnswer(0))
	assert.Equal(t, 4.0, exact.Score)
	assert.Equal(t, domain.FlagNone, exact.FlagLevel)
	require.NotNil(t, exact.DeviationPercent)
	assert.Equal(t, 0.0, *exact.DeviationPercent)

	off := ScoreItem(item, domain.NumericAnswer(1))
	assert.Equal(t, 2.0, off.Score)
	assert.Equal(t, domain.FlagYellow, off.FlagLevel)
	require.NotNil(t, off.DeviationPercent)
	assert.Equal(t, 0.0, *off.DeviationPercent)
	assert.False(t, math.IsNaN(off.Score))
}

func TestScoreItem_NumericMissingConfig(t *testing.T) {
	item := domain.ChecklistItem{ID: "n", Type: domain.ItemNumeric, Criticality: domain.CriticalityCritical, Weight: 6}

	zero := ScoreItem(item, domain.NumericAnswer(0))
	assert.Equal(t, 6.0, zero.Score)

	other := ScoreItem(item, domain.NumericAnswer(12.5))
	assert.Equal(t, 3.0, other.Score)
	assert.Equal(t, domain.FlagYellow, other.FlagLevel)
	assert.True(t, other.IsNonCompliant)
}

func TestScoreItem_NumericNonNumberAnswer(t *testing.T) {
	got := ScoreItem(numericItem(10), domain.ChoiceAnswer("about right"))
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, domain.FlagRed, got.FlagLevel)
	assert.True(t, got.IsNonCompliant)

	inf := ScoreItem(numericItem(10), domain.NumericAnswer(math.Inf(1)))
	assert.Equal(t, domain.FlagRed, inf.FlagLevel)
}

func TestScoreItem_NegativeTarget(t *testing.T) {
	item := domain.ChecklistItem{
		ID: "temp", Type: domain.ItemNumeric, Weight: 2,
		NumericConfig: &domain.NumericConfig{Target: -18, TolerancePercent: ptr(10)},
	}
	got := ScoreItem(item, domain.NumericAnswer(-17))
	assert.Equal(t, 2.0, got.Score)
	assert.Equal(t, domain.FlagNone, got.FlagLevel)
}

func TestScoreItem_ChoiceFailureSignal(t *testing.T) {
	critical := ScoreItem(yesNoItem(domain.CriticalityCritical), domain.YesNoAnswer(false))
	assert.Equal(t, 0.0, critical.Score)
	assert.Equal(t, domain.FlagRed, critical.FlagLevel)
	assert.True(t, critical.IsNonCompliant)

	major := ScoreItem(yesNoItem(domain.CriticalityMajor), domain.ChoiceAnswer("No"))
	assert.Equal(t, domain.FlagYellow, major.FlagLevel)

	minor := ScoreItem(yesNoItem(domain.CriticalityMinor), domain.YesNoAnswer(false))
	assert.Equal(t, 0.0, minor.Score)
	assert.Equal(t, domain.FlagNone, minor.FlagLevel)
	assert.True(t, minor.IsNonCompliant)

	pass := ScoreItem(yesNoItem(domain.CriticalityCritical), domain.YesNoAnswer(true))
	assert.Equal(t, 10.0, pass.Score)
	assert.Equal(t, domain.FlagNone, pass.FlagLevel)
	assert.False(t, pass.IsNonCompliant)
	assert.Nil(t, pass.DeviationPercent)
}

func TestScoreItem_LegacyMarkers(t *testing.T) {
	item := domain.ChecklistItem{
		ID: "iodine-spot", Type: domain.ItemMultipleChoice, Criticality: domain.CriticalityCritical, Weight: 5,
		Options: []domain.Option{{Label: "Result: Positive"}, {Label: "Result: Negative"}, {Label: "Poor colour"}},
	}
	assert.Equal(t, domain.FlagRed, ScoreItem(item, domain.ChoiceAnswer("Result: Negative")).FlagLevel)
	assert.Equal(t, domain.FlagRed, ScoreItem(item, domain.ChoiceAnswer("Poor colour")).FlagLevel)
	assert.Equal(t, 5.0, ScoreItem(item, domain.ChoiceAnswer("Result: Positive")).Score)
	// case-sensitive
	assert.Equal(t, 5.0, ScoreItem(item, domain.ChoiceAnswer("result: negative")).Score)

	quiet := New(WithLegacyFailureMarkers())
	assert.Equal(t, 5.0, quiet.ScoreItem(item, domain.ChoiceAnswer("Result: Negative")).Score)
}

func TestScoreItem_ExplicitFailureOptions(t *testing.T) {
	item := domain.ChecklistItem{
		ID: "premix-storage", Type: domain.ItemMultipleChoice, Criticality: domain.CriticalityMajor, Weight: 3,
		Options: []domain.Option{
			{Label: "Sealed, dry"},
			{Label: "Open bags", IsFailure: true},
			{Label: "Negative pressure room"},
		},
	}
	assert.Equal(t, domain.FlagYellow, ScoreItem(item, domain.ChoiceAnswer("Open bags")).FlagLevel)
	// explicit flags switch the substring heuristic off
	assert.Equal(t, 3.0, ScoreItem(item, domain.ChoiceAnswer("Negative pressure room")).Score)
	assert.Equal(t, 3.0, ScoreItem(item, domain.ChoiceAnswer("Sealed, dry")).Score)
	assert.Equal(t, 0.0, ScoreItem(item, domain.ChoiceAnswer("No")).Score)
}

func TestScoreItem_NotApplicableExemption(t *testing.T) {
	items := []domain.ChecklistItem{
		numericItem(10),
		yesNoItem(domain.CriticalityCritical),
		yesNoItem(domain.CriticalityMajor),
		yesNoItem(domain.CriticalityMinor),
		{ID: "photo", Type: domain.ItemPhoto, Criticality: domain.CriticalityCritical, Weight: 8},
	}
	for _, item := range items {
		got := ScoreItem(item, domain.NotApplicable())
		assert.True(t, got.IsNA, item.ID)
		assert.Equal(t, 0.0, got.Score, item.ID)
		assert.Equal(t, domain.FlagNone, got.FlagLevel, item.ID)
		assert.False(t, got.IsNonCompliant, item.ID)
		assert.Equal(t, item.Weight, got.MaxScore, item.ID)
	}
}

func TestScoreItem_ScoreBounds(t *testing.T) {
	weights := []float64{0, 1, 7.5, 100, -3, math.NaN()}
	answers := []domain.AnswerValue{
		domain.NumericAnswer(-1e9), domain.NumericAnswer(0), domain.NumericAnswer(99),
		domain.NumericAnswer(130), domain.NumericAnswer(1e9),
		domain.YesNoAnswer(true), domain.YesNoAnswer(false),
		domain.ChoiceAnswer("Poor"), domain.ChoiceAnswer("Fine"), domain.NotApplicable(),
	}
	types := []domain.ItemType{domain.ItemNumeric, domain.ItemYesNo, domain.ItemMultipleChoice, domain.ItemPhoto}
	for _, w := range weights {
		for _, typ := range types {
			item := numericItem(w)
			item.Type = typ
			for _, a := range answers {
				got := ScoreItem(item, a)
				assert.GreaterOrEqual(t, got.Score, 0.0)
				assert.LessOrEqual(t, got.Score, item.MaxScore())
				assert.False(t, math.IsNaN(got.Score))
			}
		}
	}
}

func TestScoreItem_PartialCreditRatioClamped(t *testing.T) {
	e := New(WithPartialCreditRatio(3))
	got := e.ScoreItem(numericItem(10), domain.NumericAnswer(120))
	assert.Equal(t, 10.0, got.Score)
	assert.Equal(t, 1.0, e.Policy().PartialCreditRatio)
}

func TestGradeBands(t *testing.T) {
	b := DefaultGradeBands()
	cases := []struct {
		percent float64
		red     int
		want    domain.Grade
	}{
		{92, 0, domain.GradeExcellent},
		{92, 1, domain.GradeCriticalFailure},
		{90, 0, domain.GradeExcellent},
		{89.99, 0, domain.GradeSatisfactory},
		{75, 0, domain.GradeSatisfactory},
		{50, 0, domain.GradeNeedsImprovement},
		{49.9, 0, domain.GradeNonCompliant},
		{0, 0, domain.GradeNonCompliant},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, b.Grade(c.percent, c.red), "percent=%v red=%d", c.percent, c.red)
	}

	strict := GradeBands{Excellent: 95, Satisfactory: 85, NeedsImprovement: 70}
	assert.Equal(t, domain.GradeSatisfactory, strict.Grade(92, 0))
}

func TestParseUnansweredPolicy(t *testing.T) {
	p, err := ParseUnansweredPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnansweredExclude, p)

	p, err = ParseUnansweredPolicy(" Penalize ")
	require.NoError(t, err)
	assert.Equal(t, UnansweredPenalize, p)

	_, err = ParseUnansweredPolicy("ignore")
	assert.Error(t, err)
}

func TestScoreItem_ConcurrentCallers(t *testing.T) {
	item := numericItem(10)
	want := ScoreItem(item, domain.NumericAnswer(120))

	var wg sync.WaitGroup
	results := make([]domain.AuditResponse, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ScoreItem(item, domain.NumericAnswer(120))
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("concurrent score mismatch (-want +got):\n%s", diff)
		}
	}
}
