package ports

import (
	"context"

	"millaudit/internal/domain"
)

// TemplateRepository loads checklist templates. GetTemplate returns the
// latest published version and domain.ErrNotFound when none exists;
// GetTemplateVersion pins an exact version for re-verifying old audits.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, id string) (domain.ChecklistTemplate, error)
	GetTemplateVersion(ctx context.Context, id, version string) (domain.ChecklistTemplate, error)
	ListTemplates(ctx context.Context) ([]domain.ChecklistTemplate, error)
}

// TemplateWriter publishes templates. Publishing an existing (id, version)
// pair returns domain.ErrConflict.
type TemplateWriter interface {
	SaveTemplate(ctx context.Context, t domain.ChecklistTemplate) error
}

// SubmissionRepository stores frozen audits.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, s domain.Submission) error
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	// ListSubmissions returns newest first. An empty templateID lists all.
	ListSubmissions(ctx context.Context, templateID string, limit int) ([]domain.Submission, error)
}

// SessionStore keeps in-progress audit sessions.
type SessionStore interface {
	PutSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}
