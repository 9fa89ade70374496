package audits

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"millaudit/internal/domain"
)

// ScoreItem scores a single raw answer against the latest template version
// without touching any session.
func (s *Service) ScoreItem(ctx context.Context, templateID, itemID string, raw any) (domain.AuditResponse, error) {
	tpl, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.AuditResponse{}, err
	}
	item, ok := tpl.Item(itemID)
	if !ok {
		return domain.AuditResponse{}, fmt.Errorf("%w: item %s is not part of template %s", domain.ErrInvalidInput, itemID, templateID)
	}
	answer, err := domain.ParseAnswer(item, raw)
	if err != nil {
		return domain.AuditResponse{}, err
	}
	return s.engine.ScoreItem(item, answer), nil
}

// Score grades a full set of raw answers keyed by item id. Answers for ids
// the template does not know are logged and left out of the grade.
func (s *Service) Score(ctx context.Context, templateID string, raw map[string]any) (domain.AuditResult, error) {
	tpl, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.AuditResult{}, err
	}
	responses := make(map[string]domain.AuditResponse, len(raw))
	for id, v := range raw {
		item, ok := tpl.Item(id)
		if !ok {
			s.log.Warn("answer for unknown item ignored",
				zap.String("template_id", tpl.ID),
				zap.String("version", tpl.Version),
				zap.String("item_id", id))
			item = domain.ChecklistItem{ID: id}
		}
		answer, err := domain.ParseAnswer(item, v)
		if err != nil {
			if !ok {
				continue
			}
			return domain.AuditResult{}, err
		}
		responses[id] = domain.AuditResponse{ItemID: id, Value: answer, IsNA: answer.IsNA()}
	}
	return s.engine.CalculateAuditResult(tpl, responses), nil
}
