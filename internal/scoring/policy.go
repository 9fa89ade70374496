package scoring

import (
	"fmt"
	"strings"

	"millaudit/internal/domain"
)

// UnansweredPolicy decides what an item without a response does to the
// denominator of the overall percentage.
type UnansweredPolicy string

const (
	// UnansweredExclude leaves unanswered items out of both sums.
	UnansweredExclude UnansweredPolicy = "exclude"
	// UnansweredPenalize counts their weight in the denominator only.
	UnansweredPenalize UnansweredPolicy = "penalize"
)

func ParseUnansweredPolicy(s string) (UnansweredPolicy, error) {
	switch p := UnansweredPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return UnansweredExclude, nil
	case UnansweredExclude, UnansweredPenalize:
		return p, nil
	}
	return "", fmt.Errorf("unknown unanswered policy %q", s)
}

// GradeBands are the lower bounds, in percent, of each grade. A red flag
// overrides every band.
type GradeBands struct {
	Excellent        float64 `json:"excellent"`
	Satisfactory     float64 `json:"satisfactory"`
	NeedsImprovement float64 `json:"needsImprovement"`
}

func DefaultGradeBands() GradeBands {
	return GradeBands{Excellent: 90, Satisfactory: 75, NeedsImprovement: 50}
}

// Grade applies the bands in order; the first match wins.
func (b GradeBands) Grade(overallPercent float64, redFlags int) domain.Grade {
	switch {
	case redFlags > 0:
		return domain.GradeCriticalFailure
	case overallPercent >= b.Excellent:
		return domain.GradeExcellent
	case overallPercent >= b.Satisfactory:
		return domain.GradeSatisfactory
	case overallPercent >= b.NeedsImprovement:
		return domain.GradeNeedsImprovement
	default:
		return domain.GradeNonCompliant
	}
}

// Policy holds every tunable of the engine.
type Policy struct {
	Bands      GradeBands
	Unanswered UnansweredPolicy
	// PartialCreditRatio is the share of an item's weight awarded to a
	// numeric reading outside tolerance but inside the operating range.
	PartialCreditRatio float64
	// LegacyFailureMarkers are case-sensitive substrings that mark a choice
	// as failed when the item declares no failure options of its own.
	LegacyFailureMarkers []string
}

func DefaultPolicy() Policy {
	return Policy{
		Bands:                DefaultGradeBands(),
		Unanswered:           UnansweredExclude,
		PartialCreditRatio:   0.5,
		LegacyFailureMarkers: []string{"Negative", "Poor"},
	}
}

type Option func(*Policy)

func WithGradeBands(b GradeBands) Option { return func(p *Policy) { p.Bands = b } }

func WithUnansweredPolicy(u UnansweredPolicy) Option {
	return func(p *Policy) { p.Unanswered = u }
}

func WithPartialCreditRatio(r float64) Option {
	return func(p *Policy) { p.PartialCreditRatio = r }
}

func WithLegacyFailureMarkers(markers ...string) Option {
	return func(p *Policy) { p.LegacyFailureMarkers = markers }
}

// Snapshot records the policy in the form stored alongside a submission.
func (p Policy) Snapshot() domain.GradingPolicy {
	return domain.GradingPolicy{
		Excellent:            p.Bands.Excellent,
		Satisfactory:         p.Bands.Satisfactory,
		NeedsImprovement:     p.Bands.NeedsImprovement,
		Unanswered:           string(p.Unanswered),
		PartialCreditRatio:   p.PartialCreditRatio,
		LegacyFailureMarkers: append([]string(nil), p.LegacyFailureMarkers...),
	}
}

// FromSnapshot rebuilds the engine a submission was graded with.
func FromSnapshot(g domain.GradingPolicy) Engine {
	return New(
		WithGradeBands(GradeBands{Excellent: g.Excellent, Satisfactory: g.Satisfactory, NeedsImprovement: g.NeedsImprovement}),
		WithUnansweredPolicy(UnansweredPolicy(g.Unanswered)),
		WithPartialCreditRatio(g.PartialCreditRatio),
		WithLegacyFailureMarkers(g.LegacyFailureMarkers...),
	)
}
