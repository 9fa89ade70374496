// Package scoring turns a checklist template and a set of answers into item
// scores, flags, a grade and a calculation hash. Everything here is a pure
// function of its inputs: no I/O, no shared mutable state, inputs are never
// modified.
package scoring

import (
	"math"
	"sort"
	"strings"

	"millaudit/internal/domain"
)

// Engine scores audits under a fixed Policy. The zero value is not usable;
// build one with New. An Engine is safe for concurrent use.
type Engine struct {
	policy Policy
}

func New(opts ...Option) Engine {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	if p.Unanswered != UnansweredPenalize {
		p.Unanswered = UnansweredExclude
	}
	if math.IsNaN(p.PartialCreditRatio) || p.PartialCreditRatio < 0 {
		p.PartialCreditRatio = 0
	}
	if p.PartialCreditRatio > 1 {
		p.PartialCreditRatio = 1
	}
	p.LegacyFailureMarkers = append([]string(nil), p.LegacyFailureMarkers...)
	return Engine{policy: p}
}

// Policy returns a copy of the engine's policy.
func (e Engine) Policy() Policy {
	p := e.policy
	p.LegacyFailureMarkers = append([]string(nil), p.LegacyFailureMarkers...)
	return p
}

var defaultEngine = New()

// ScoreItem scores one answer under the default policy.
func ScoreItem(item domain.ChecklistItem, answer domain.AnswerValue) domain.AuditResponse {
	return defaultEngine.ScoreItem(item, answer)
}

// CalculateAuditResult aggregates a response set under the default policy.
func CalculateAuditResult(t domain.ChecklistTemplate, responses map[string]domain.AuditResponse) domain.AuditResult {
	return defaultEngine.CalculateAuditResult(t, responses)
}

// ScoreItem computes score, flag and compliance for a single answer. The
// returned response carries only the answer and computed fields; callers
// merge justification and evidence themselves.
func (e Engine) ScoreItem(item domain.ChecklistItem, answer domain.AnswerValue) domain.AuditResponse {
	resp := domain.AuditResponse{
		ItemID:    item.ID,
		Value:     answer,
		MaxScore:  item.MaxScore(),
		FlagLevel: domain.FlagNone,
	}
	switch {
	case answer.IsNA():
		resp.IsNA = true
		return resp
	case answer.IsZero():
		return resp
	case item.Type == domain.ItemNumeric:
		return e.scoreNumeric(item, answer, resp)
	default:
		return e.scoreChoice(item, answer, resp)
	}
}

func (e Engine) scoreNumeric(item domain.ChecklistItem, answer domain.AnswerValue, resp domain.AuditResponse) domain.AuditResponse {
	v, ok := answer.Number()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return fail(resp, domain.FlagRed)
	}
	target, tolerancePercent, lo, hi := item.NumericConfig.Bounds()
	tolerance := math.Abs(target * tolerancePercent / 100)

	// A zero target has no relative deviation; report 0 and let the
	// absolute band decide.
	deviation := 0.0
	if target != 0 {
		deviation = (v - target) / target * 100
	}
	if math.IsNaN(deviation) || math.IsInf(deviation, 0) {
		deviation = 0
	}
	resp.DeviationPercent = &deviation

	switch {
	case v >= target-tolerance && v <= target+tolerance:
		resp.Score = resp.MaxScore
	case v >= lo && v <= hi:
		resp.Score = resp.MaxScore * e.policy.PartialCreditRatio
		resp.IsNonCompliant = true
		resp.FlagLevel = domain.FlagYellow
	default:
		return fail(resp, domain.FlagRed)
	}
	return resp
}

func (e Engine) scoreChoice(item domain.ChecklistItem, answer domain.AnswerValue, resp domain.AuditResponse) domain.AuditResponse {
	if !e.isFailure(item, answer) {
		resp.Score = resp.MaxScore
		return resp
	}
	return fail(resp, flagFor(item.Criticality))
}

// isFailure decides whether a choice-like answer is a failure signal: an
// explicit "No", an option the template marks as failing, or, for templates
// without failure options, a legacy marker substring.
func (e Engine) isFailure(item domain.ChecklistItem, answer domain.AnswerValue) bool {
	if yes, ok := answer.YesNo(); ok {
		return !yes
	}
	label, ok := answer.Choice()
	if !ok {
		return false
	}
	if label == "No" {
		return true
	}
	if item.HasFailureOptions() {
		opt, found := item.Option(label)
		return found && opt.IsFailure
	}
	for _, marker := range e.policy.LegacyFailureMarkers {
		if marker != "" && strings.Contains(label, marker) {
			return true
		}
	}
	return false
}

func flagFor(c domain.Criticality) domain.FlagLevel {
	switch c {
	case domain.CriticalityCritical:
		return domain.FlagRed
	case domain.CriticalityMajor:
		return domain.FlagYellow
	default:
		return domain.FlagNone
	}
}

func fail(resp domain.AuditResponse, flag domain.FlagLevel) domain.AuditResponse {
	resp.Score = 0
	resp.IsNonCompliant = true
	resp.FlagLevel = flag
	return resp
}

// CalculateAuditResult walks the template in order and aggregates the
// responses. Stored computed fields are ignored: every answered item is
// re-scored from its value so the result depends only on the answers.
// Responses for ids missing from the template are reported in
// IgnoredItemIDs and otherwise skipped.
func (e Engine) CalculateAuditResult(t domain.ChecklistTemplate, responses map[string]domain.AuditResponse) domain.AuditResult {
	res := domain.AuditResult{
		TemplateID:      t.ID,
		TemplateVersion: t.Version,
		Flags:           []domain.FlaggedItem{},
	}
	seen := make(map[string]struct{}, t.ItemCount())
	for _, sec := range t.Sections {
		for _, item := range sec.Items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}

			r, ok := responses[item.ID]
			if !ok || !r.Answered() {
				res.Unanswered++
				if e.policy.Unanswered == UnansweredPenalize {
					res.TotalMax += item.MaxScore()
				}
				continue
			}
			scored := e.rescore(item, r)
			if scored.IsNA {
				res.NotApplicable++
				continue
			}
			res.Answered++
			res.TotalScore += scored.Score
			res.TotalMax += scored.MaxScore

			switch scored.FlagLevel {
			case domain.FlagRed:
				res.RedFlags++
			case domain.FlagYellow:
				res.YellowFlags++
			default:
				continue
			}
			res.Flags = append(res.Flags, domain.FlaggedItem{
				ItemID:      item.ID,
				SectionID:   sec.ID,
				Text:        item.Text,
				Criticality: item.Criticality,
				Level:       scored.FlagLevel,
				Value:       scored.Value.String(),
			})
		}
	}
	for id := range responses {
		if _, ok := seen[id]; !ok {
			res.IgnoredItemIDs = append(res.IgnoredItemIDs, id)
		}
	}
	sort.Strings(res.IgnoredItemIDs)

	if res.TotalMax > 0 {
		res.OverallPercent = res.TotalScore / res.TotalMax * 100
	}
	res.OverallPercent = math.Max(0, math.Min(100, res.OverallPercent))
	res.Grade = e.policy.Bands.Grade(res.OverallPercent, res.RedFlags)
	res.CalculationHash = CalculationHash(t, responses)
	return res
}

// Rescore recomputes the computed fields of every known response, keeping
// justification and evidence. The input map is not modified.
func (e Engine) Rescore(t domain.ChecklistTemplate, responses map[string]domain.AuditResponse) map[string]domain.AuditResponse {
	out := make(map[string]domain.AuditResponse, len(responses))
	for id, r := range responses {
		item, ok := t.Item(id)
		if !ok || !r.Answered() {
			out[id] = r
			continue
		}
		out[id] = e.rescore(item, r)
	}
	return out
}

func (e Engine) rescore(item domain.ChecklistItem, r domain.AuditResponse) domain.AuditResponse {
	answer := r.Value
	if r.IsNA {
		answer = domain.NotApplicable()
	}
	scored := e.ScoreItem(item, answer)
	scored.NAJustification = r.NAJustification
	scored.Evidence = r.Evidence
	return scored
}
