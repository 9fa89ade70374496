package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"millaudit/internal/domain"
)

// TemplateRepository

func (db *DB) GetTemplate(ctx context.Context, id string) (domain.ChecklistTemplate, error) {
	var t domain.ChecklistTemplate
	err := db.Pool.QueryRow(ctx, `
		SELECT body FROM checklist_templates
		WHERE id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, id).Scan(&t)
	return t, mapErr("template "+id, err)
}

func (db *DB) GetTemplateVersion(ctx context.Context, id, version string) (domain.ChecklistTemplate, error) {
	var t domain.ChecklistTemplate
	err := db.Pool.QueryRow(ctx, `
		SELECT body FROM checklist_templates WHERE id = $1 AND version = $2
	`, id, version).Scan(&t)
	return t, mapErr("template "+id+"@"+version, err)
}

func (db *DB) ListTemplates(ctx context.Context) ([]domain.ChecklistTemplate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ON (id) body FROM checklist_templates
		ORDER BY id, seq DESC
	`)
	if err != nil {
		return nil, mapErr("list templates", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[domain.ChecklistTemplate])
	return out, mapErr("list templates", err)
}

// TemplateWriter

func (db *DB) SaveTemplate(ctx context.Context, t domain.ChecklistTemplate) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO checklist_templates (id, version, title, body)
		VALUES ($1, $2, $3, $4)
	`, t.ID, t.Version, t.Title, t)
	return mapErr(fmt.Sprintf("template %s@%s", t.ID, t.Version), err)
}

// SubmissionRepository

func (db *DB) CreateSubmission(ctx context.Context, s domain.Submission) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_submissions (id, session_id, template_id, template_version, grade, calculation_hash, body, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.SessionID, s.TemplateID, s.TemplateVersion, string(s.Result.Grade), s.Result.CalculationHash, s, s.SubmittedAt)
	return mapErr("submission "+s.ID, err)
}

func (db *DB) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	var s domain.Submission
	err := db.Pool.QueryRow(ctx, `SELECT body FROM audit_submissions WHERE id = $1`, id).Scan(&s)
	return s, mapErr("submission "+id, err)
}

func (db *DB) ListSubmissions(ctx context.Context, templateID string, limit int) ([]domain.Submission, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT body FROM audit_submissions
		WHERE $1 = '' OR template_id = $1
		ORDER BY submitted_at DESC, id
		LIMIT $2
	`, templateID, limit)
	if err != nil {
		return nil, mapErr("list submissions", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[domain.Submission])
	return out, mapErr("list submissions", err)
}

// SessionStore

func (db *DB) PutSession(ctx context.Context, s domain.Session) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_sessions (id, template_id, status, body, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, body = EXCLUDED.body, updated_at = now()
	`, s.ID, s.Template.ID, string(s.Status), s)
	return mapErr("session "+s.ID, err)
}

func (db *DB) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := db.Pool.QueryRow(ctx, `SELECT body FROM audit_sessions WHERE id = $1`, id).Scan(&s)
	return s, mapErr("session "+id, err)
}

func (db *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM audit_sessions WHERE id = $1`, id)
	return mapErr("session "+id, err)
}
