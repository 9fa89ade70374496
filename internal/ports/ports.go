package ports

import (
	"context"

	"millaudit/internal/domain"
)

// Templates serves template lookups and publishing.
type Templates interface {
	Get(ctx context.Context, id string) (domain.ChecklistTemplate, error)
	List(ctx context.Context) ([]domain.ChecklistTemplate, error)
	Publish(ctx context.Context, t domain.ChecklistTemplate) error
}

// Verifier recomputes a submission's calculation hash.
type Verifier interface {
	Verify(ctx context.Context, submissionID string) (domain.Verification, error)
}
