// Package httpadapter exposes the audit services as a JSON API over chi.
package httpadapter

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"millaudit/api"
	"millaudit/internal/domain"
	"millaudit/internal/ports"
	"millaudit/internal/services/audits"
)

// Audits is the slice of the audit service the handlers call.
type Audits interface {
	ScoreItem(ctx context.Context, templateID, itemID string, raw any) (domain.AuditResponse, error)
	Score(ctx context.Context, templateID string, raw map[string]any) (domain.AuditResult, error)

	Start(ctx context.Context, req audits.StartRequest) (domain.Session, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	Answer(ctx context.Context, sessionID, itemID string, raw any) (domain.AuditResponse, error)
	MarkNA(ctx context.Context, sessionID, itemID, justification string) (domain.AuditResponse, error)
	Clear(ctx context.Context, sessionID, itemID string) error
	AttachEvidence(ctx context.Context, sessionID, itemID string, ev domain.Evidence) (domain.Evidence, error)
	RemoveEvidence(ctx context.Context, sessionID, itemID, evidenceID string) error
	Navigate(ctx context.Context, sessionID string, sectionIndex int) (domain.Session, error)
	Preview(ctx context.Context, sessionID string) (domain.AuditResult, error)
	Submit(ctx context.Context, sessionID string) (domain.Submission, error)

	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	ListSubmissions(ctx context.Context, templateID string, limit int) ([]domain.Submission, error)
	Verify(ctx context.Context, submissionID string) (domain.Verification, error)
	VerifyBatch(ctx context.Context, submissionIDs []string) ([]domain.Verification, error)
}

type Server struct {
	audits    Audits
	templates ports.Templates
	jobs      ports.VerificationQueue
	log       *zap.Logger
}

func New(auditSvc Audits, templateSvc ports.Templates, jobs ports.VerificationQueue, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{audits: auditSvc, templates: templateSvc, jobs: jobs, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.listTemplates)
			r.Post("/", s.publishTemplate)
			r.Post("/validate", s.validateTemplate)
			r.Get("/{id}", s.getTemplate)
		})

		r.Post("/score", s.score)
		r.Post("/score/item", s.scoreItem)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.startSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Put("/section", s.navigate)
				r.Get("/result", s.preview)
				r.Post("/submit", s.submit)
				r.Route("/responses/{itemId}", func(r chi.Router) {
					r.Put("/", s.answer)
					r.Delete("/", s.clearAnswer)
					r.Post("/na", s.markNA)
					r.Post("/evidence", s.attachEvidence)
					r.Delete("/evidence/{evidenceId}", s.removeEvidence)
				})
			})
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", s.listSubmissions)
			r.Post("/verify", s.verifyBatch)
			r.Get("/{id}", s.getSubmission)
			r.Post("/{id}/verify", s.verify)
		})
	})
	return r
}
