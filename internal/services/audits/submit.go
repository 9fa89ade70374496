package audits

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"millaudit/internal/domain"
)

// Problem is one reason a session cannot be submitted yet.
type Problem struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// IncompleteError lists every problem found at submission.
type IncompleteError struct {
	Problems []Problem
}

func (e *IncompleteError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.ItemID+": "+p.Reason)
	}
	return "audit incomplete: " + strings.Join(parts, "; ")
}

func (e *IncompleteError) Unwrap() error { return domain.ErrIncomplete }

// Submit freezes a session. It checks N/A justifications and required
// evidence, scores and hashes the responses, stores the submission and
// queues it for verification.
func (s *Service) Submit(ctx context.Context, sessionID string) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if sess.Status != domain.SessionOpen {
		return domain.Submission{}, domain.ErrSessionClosed
	}
	if problems := checkSubmittable(sess); len(problems) > 0 {
		return domain.Submission{}, &IncompleteError{Problems: problems}
	}

	responses := s.engine.Rescore(sess.Template, sess.Responses)
	result := s.engine.CalculateAuditResult(sess.Template, responses)
	submittedAt := s.now()
	sub := domain.Submission{
		ID:              s.newID(),
		SessionID:       sess.ID,
		TemplateID:      sess.Template.ID,
		TemplateVersion: sess.Template.Version,
		Auditor:         sess.Auditor,
		SiteID:          sess.SiteID,
		Responses:       responses,
		Result:          result,
		SubmittedAt:     submittedAt,
	}
	policy := s.engine.Policy().Snapshot()
	sub.Policy = &policy
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return domain.Submission{}, fmt.Errorf("store submission: %w", err)
	}

	sess.Status = domain.SessionSubmitted
	sess.SubmittedAt = &submittedAt
	sess.Responses = responses
	if err := s.sessions.PutSession(ctx, sess); err != nil {
		s.log.Warn("submitted session not closed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	if s.queue != nil {
		if _, err := s.queue.Enqueue(ctx, sub.ID); err != nil {
			s.log.Warn("verification not queued", zap.String("submission_id", sub.ID), zap.Error(err))
		}
	}

	s.log.Info("audit submitted",
		zap.String("submission_id", sub.ID),
		zap.String("session_id", sess.ID),
		zap.String("template_id", sub.TemplateID),
		zap.String("version", sub.TemplateVersion),
		zap.Float64("overall_percent", result.OverallPercent),
		zap.String("grade", string(result.Grade)),
		zap.Int("red_flags", result.RedFlags),
		zap.Int("yellow_flags", result.YellowFlags),
		zap.String("hash", result.CalculationHash))
	return sub, nil
}

// checkSubmittable walks the template in order so problems are reported in
// the order the operator sees the items.
func checkSubmittable(sess domain.Session) []Problem {
	var problems []Problem
	for _, sec := range sess.Template.Sections {
		for _, item := range sec.Items {
			resp, ok := sess.Responses[item.ID]
			if !ok || !resp.Answered() {
				continue
			}
			if resp.NotApplicable() {
				if strings.TrimSpace(resp.NAJustification) == "" {
					problems = append(problems, Problem{ItemID: item.ID, Reason: "N/A requires a justification"})
				}
				continue
			}
			for _, kind := range item.RequiredEvidence {
				if !hasEvidence(resp.Evidence, kind) {
					problems = append(problems, Problem{ItemID: item.ID, Reason: fmt.Sprintf("%s evidence is required", kind)})
				}
			}
		}
	}
	return problems
}

func hasEvidence(evs []domain.Evidence, kind domain.EvidenceKind) bool {
	for _, ev := range evs {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func (s *Service) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	return s.submissions.GetSubmission(ctx, id)
}

func (s *Service) ListSubmissions(ctx context.Context, templateID string, limit int) ([]domain.Submission, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.submissions.ListSubmissions(ctx, templateID, limit)
}
