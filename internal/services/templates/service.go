package templates

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"millaudit/internal/domain"
	"millaudit/internal/ports"
)

type Service struct {
	repo   ports.TemplateRepository
	writer ports.TemplateWriter
	log    *zap.Logger
}

func New(repo ports.TemplateRepository, writer ports.TemplateWriter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, writer: writer, log: log}
}

func (s *Service) Get(ctx context.Context, id string) (domain.ChecklistTemplate, error) {
	return s.repo.GetTemplate(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.ChecklistTemplate, error) {
	return s.repo.ListTemplates(ctx)
}

// Publish validates and stores a template. Warnings are logged; any
// error-level issue rejects the template with a *ValidationError.
func (s *Service) Publish(ctx context.Context, t domain.ChecklistTemplate) error {
	issues := Validate(t)
	if err := rejectOnErrors(t.ID, issues); err != nil {
		return err
	}
	for _, is := range issues {
		s.log.Warn("template warning",
			zap.String("template_id", t.ID),
			zap.String("version", t.Version),
			zap.String("code", string(is.Code)),
			zap.String("item_id", is.ItemID),
			zap.String("message", is.Message))
	}
	if err := s.writer.SaveTemplate(ctx, t); err != nil {
		return fmt.Errorf("save template %s@%s: %w", t.ID, t.Version, err)
	}
	s.log.Info("template published", zap.String("template_id", t.ID), zap.String("version", t.Version))
	return nil
}

// Seed publishes templates loaded from a seed source. Versions that are
// already stored are skipped; invalid templates are logged and skipped.
func (s *Service) Seed(ctx context.Context, ts []domain.ChecklistTemplate) (int, error) {
	published := 0
	for _, t := range ts {
		err := s.Publish(ctx, t)
		switch {
		case err == nil:
			published++
		case errors.Is(err, domain.ErrConflict):
			s.log.Debug("seed template already stored", zap.String("template_id", t.ID), zap.String("version", t.Version))
		case errors.Is(err, domain.ErrInvalidInput):
			s.log.Error("seed template rejected", zap.String("template_id", t.ID), zap.Error(err))
		default:
			return published, err
		}
	}
	return published, nil
}
