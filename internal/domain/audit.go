package domain

import "time"

// AuditResponse is one item's answer within an audit session. Score, MaxScore,
// IsNonCompliant, FlagLevel and DeviationPercent are computed by the scoring
// engine; the rest is operator input.
type AuditResponse struct {
	ItemID           string      `json:"itemId" yaml:"itemId"`
	Value            AnswerValue `json:"value" yaml:"value"`
	IsNA             bool        `json:"isNA" yaml:"isNA,omitempty"`
	NAJustification  string      `json:"naJustification,omitempty" yaml:"naJustification,omitempty"`
	Score            float64     `json:"score" yaml:"score,omitempty"`
	MaxScore         float64     `json:"maxScore" yaml:"maxScore,omitempty"`
	IsNonCompliant   bool        `json:"isNonCompliant" yaml:"isNonCompliant,omitempty"`
	FlagLevel        FlagLevel   `json:"flagLevel" yaml:"flagLevel,omitempty"`
	DeviationPercent *float64    `json:"deviationPercent,omitempty" yaml:"deviationPercent,omitempty"`
	Evidence         []Evidence  `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// Answered reports whether the response carries an answer or an N/A mark.
func (r AuditResponse) Answered() bool { return r.IsNA || !r.Value.IsZero() }

// NotApplicable reports whether the response exempts its item from scoring.
func (r AuditResponse) NotApplicable() bool { return r.IsNA || r.Value.IsNA() }

type Grade string

const (
	GradeCriticalFailure  Grade = "Non-Compliant (Critical Failure)"
	GradeExcellent        Grade = "Excellent"
	GradeSatisfactory     Grade = "Satisfactory"
	GradeNeedsImprovement Grade = "Needs Improvement"
	GradeNonCompliant     Grade = "Non-Compliant"
)

// FlaggedItem is a Red or Yellow response, listed in template order.
type FlaggedItem struct {
	ItemID      string      `json:"itemId"`
	SectionID   string      `json:"sectionId"`
	Text        string      `json:"text"`
	Criticality Criticality `json:"criticality"`
	Level       FlagLevel   `json:"level"`
	Value       string      `json:"value"`
}

// AuditResult is derived from a template and a response set. It is never
// persisted by the engine.
type AuditResult struct {
	TemplateID      string        `json:"templateId"`
	TemplateVersion string        `json:"templateVersion"`
	OverallPercent  float64       `json:"overallPercent"`
	Grade           Grade         `json:"grade"`
	RedFlags        int           `json:"redFlags"`
	YellowFlags     int           `json:"yellowFlags"`
	TotalScore      float64       `json:"totalScore"`
	TotalMax        float64       `json:"totalMax"`
	Answered        int           `json:"answered"`
	NotApplicable   int           `json:"notApplicable"`
	Unanswered      int           `json:"unanswered"`
	Flags           []FlaggedItem `json:"flags"`
	IgnoredItemIDs  []string      `json:"ignoredItemIds,omitempty"`
	CalculationHash string        `json:"calculationHash"`
}

type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionSubmitted SessionStatus = "submitted"
)

// Session is the state of one operator working through one template.
type Session struct {
	ID                  string                   `json:"id"`
	Template            ChecklistTemplate        `json:"template"`
	Responses           map[string]AuditResponse `json:"responses"`
	CurrentSectionIndex int                      `json:"currentSectionIndex"`
	Status              SessionStatus            `json:"status"`
	Auditor             string                   `json:"auditor"`
	SiteID              string                   `json:"siteId,omitempty"`
	StartedAt           time.Time                `json:"startedAt"`
	SubmittedAt         *time.Time               `json:"submittedAt,omitempty"`
}

// Clone copies the session deeply enough that callers can mutate responses
// and evidence without touching the original.
func (s Session) Clone() Session {
	out := s
	out.Responses = make(map[string]AuditResponse, len(s.Responses))
	for id, r := range s.Responses {
		r.Evidence = append([]Evidence(nil), r.Evidence...)
		out.Responses[id] = r
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}

// Submission is a frozen audit: the responses as submitted and the result
// computed from them.
type Submission struct {
	ID              string                   `json:"id"`
	SessionID       string                   `json:"sessionId"`
	TemplateID      string                   `json:"templateId"`
	TemplateVersion string                   `json:"templateVersion"`
	Auditor         string                   `json:"auditor"`
	SiteID          string                   `json:"siteId,omitempty"`
	Responses       map[string]AuditResponse `json:"responses"`
	Result          AuditResult              `json:"result"`
	// Policy is the grading policy Result was computed under. Submissions
	// stored before it was recorded have none and verify under the current
	// policy.
	Policy      *GradingPolicy `json:"policy,omitempty"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// GradingPolicy records the tunables a submission was graded with, so a
// later change of grade bands or unanswered handling does not make old
// submissions look altered.
type GradingPolicy struct {
	Excellent            float64  `json:"excellent"`
	Satisfactory         float64  `json:"satisfactory"`
	NeedsImprovement     float64  `json:"needsImprovement"`
	Unanswered           string   `json:"unanswered"`
	PartialCreditRatio   float64  `json:"partialCreditRatio"`
	LegacyFailureMarkers []string `json:"legacyFailureMarkers,omitempty"`
}

// Verification is the outcome of recomputing a submission's hash.
type Verification struct {
	SubmissionID string    `json:"submissionId"`
	StoredHash   string    `json:"storedHash"`
	ComputedHash string    `json:"computedHash"`
	Intact       bool      `json:"intact"`
	VerifiedAt   time.Time `json:"verifiedAt"`
}
