package audits

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"millaudit/internal/domain"
)

type StartRequest struct {
	TemplateID string `json:"templateId"`
	Auditor    string `json:"auditor"`
	SiteID     string `json:"siteId,omitempty"`
}

// Start opens a session on the latest version of a template. The template
// is loaded once and stays fixed for the life of the session.
func (s *Service) Start(ctx context.Context, req StartRequest) (domain.Session, error) {
	if strings.TrimSpace(req.TemplateID) == "" {
		return domain.Session{}, fmt.Errorf("%w: templateId is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Auditor) == "" {
		return domain.Session{}, fmt.Errorf("%w: auditor is required", domain.ErrInvalidInput)
	}
	tpl, err := s.templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		ID:        s.newID(),
		Template:  tpl,
		Responses: make(map[string]domain.AuditResponse, tpl.ItemCount()),
		Status:    domain.SessionOpen,
		Auditor:   req.Auditor,
		SiteID:    req.SiteID,
		StartedAt: s.now(),
	}
	for _, sec := range tpl.Sections {
		for _, it := range sec.Items {
			sess.Responses[it.ID] = domain.AuditResponse{ItemID: it.ID, MaxScore: it.MaxScore(), FlagLevel: domain.FlagNone}
		}
	}
	if err := s.sessions.PutSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	s.log.Info("audit session started",
		zap.String("session_id", sess.ID),
		zap.String("template_id", tpl.ID),
		zap.String("version", tpl.Version),
		zap.String("auditor", req.Auditor))
	return sess, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.sessions.GetSession(ctx, sessionID)
}

// Answer records an answer and re-scores the item. A raw "N/A" marks the
// item not applicable and keeps any justification already entered.
func (s *Service) Answer(ctx context.Context, sessionID, itemID string, raw any) (domain.AuditResponse, error) {
	var out domain.AuditResponse
	_, err := s.update(ctx, sessionID, func(sess *domain.Session) error {
		item, err := itemOf(sess, itemID)
		if err != nil {
			return err
		}
		answer, err := domain.ParseAnswer(item, raw)
		if err != nil {
			return err
		}
		prev := sess.Responses[itemID]
		out = s.engine.ScoreItem(item, answer)
		out.Evidence = prev.Evidence
		if out.IsNA {
			out.NAJustification = prev.NAJustification
		}
		sess.Responses[itemID] = out
		return nil
	})
	return out, err
}

// MarkNA exempts an item from scoring. An empty justification is accepted
// here and rejected at submission.
func (s *Service) MarkNA(ctx context.Context, sessionID, itemID, justification string) (domain.AuditResponse, error) {
	var out domain.AuditResponse
	_, err := s.update(ctx, sessionID, func(sess *domain.Session) error {
		item, err := itemOf(sess, itemID)
		if err != nil {
			return err
		}
		prev := sess.Responses[itemID]
		out = s.engine.ScoreItem(item, domain.NotApplicable())
		out.NAJustification = strings.TrimSpace(justification)
		out.Evidence = prev.Evidence
		sess.Responses[itemID] = out
		return nil
	})
	return out, err
}

// Clear resets an item to unanswered, keeping its evidence.
func (s *Service) Clear(ctx context.Context, sessionID, itemID string) error {
	_, err := s.update(ctx, sessionID, func(sess *domain.Session) error {
		item, err := itemOf(sess, itemID)
		if err != nil {
			return err
		}
		prev := sess.Responses[itemID]
		sess.Responses[itemID] = domain.AuditResponse{ItemID: itemID, MaxScore: item.MaxScore(), FlagLevel: domain.FlagNone, Evidence: prev.Evidence}
		return nil
	})
	return err
}

// AttachEvidence appends an evidence reference to an item. Missing ids and
// capture times are filled in.
func (s *Service) AttachEvidence(ctx context.Context, sessionID, itemID string, ev domain.Evidence) (domain.Evidence, error) {
	if strings.TrimSpace(ev.URI) == "" {
		return domain.Evidence{}, fmt.Errorf("%w: evidence uri is required", domain.ErrInvalidInput)
	}
	switch ev.Kind {
	case domain.EvidencePhoto, domain.EvidenceDocument, domain.EvidenceReading:
	default:
		return domain.Evidence{}, fmt.Errorf("%w: unknown evidence kind %q", domain.ErrInvalidInput, ev.Kind)
	}
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if ev.CapturedAt.IsZero() {
		ev.CapturedAt = s.now()
	}
	_, err := s.update(ctx, sessionID, func(sess *domain.Session) error {
		if _, err := itemOf(sess, itemID); err != nil {
			return err
		}
		resp := sess.Responses[itemID]
		for _, existing := range resp.Evidence {
			if existing.ID == ev.ID {
				return fmt.Errorf("%w: evidence %s already attached", domain.ErrConflict, ev.ID)
			}
		}
		resp.ItemID = itemID
		resp.Evidence = append(resp.Evidence, ev)
		sess.Responses[itemID] = resp
		return nil
	})
	if err != nil {
		return domain.Evidence{}, err
	}
	return ev, nil
}

// RemoveEvidence drops one evidence reference; the rest keep their order.
func (s *Service) RemoveEvidence(ctx context.Context, sessionID, itemID, evidenceID string) error {
	_, err := s.update(ctx, sessionID, func(sess *domain.Session) error {
		if _, err := itemOf(sess, itemID); err != nil {
			return err
		}
		resp := sess.Responses[itemID]
		kept := make([]domain.Evidence, 0, len(resp.Evidence))
		for _, ev := range resp.Evidence {
			if ev.ID != evidenceID {
				kept = append(kept, ev)
			}
		}
		if len(kept) == len(resp.Evidence) {
			return fmt.Errorf("evidence %s on item %s: %w", evidenceID, itemID, domain.ErrNotFound)
		}
		resp.Evidence = kept
		sess.Responses[itemID] = resp
		return nil
	})
	return err
}

// Navigate moves the wizard to a section.
func (s *Service) Navigate(ctx context.Context, sessionID string, sectionIndex int) (domain.Session, error) {
	return s.update(ctx, sessionID, func(sess *domain.Session) error {
		if sectionIndex < 0 || sectionIndex >= len(sess.Template.Sections) {
			return fmt.Errorf("%w: section index %d out of range [0, %d)", domain.ErrInvalidInput, sectionIndex, len(sess.Template.Sections))
		}
		sess.CurrentSectionIndex = sectionIndex
		return nil
	})
}

// Preview computes the live result of a session without freezing it.
func (s *Service) Preview(ctx context.Context, sessionID string) (domain.AuditResult, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.AuditResult{}, err
	}
	return s.engine.CalculateAuditResult(sess.Template, sess.Responses), nil
}

func itemOf(sess *domain.Session, itemID string) (domain.ChecklistItem, error) {
	item, ok := sess.Template.Item(itemID)
	if !ok {
		return domain.ChecklistItem{}, fmt.Errorf("%w: item %s is not part of template %s", domain.ErrInvalidInput, itemID, sess.Template.ID)
	}
	return item, nil
}
