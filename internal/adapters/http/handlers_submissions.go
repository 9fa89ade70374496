package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"millaudit/internal/domain"
	"millaudit/internal/workers/verifier"
)

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	p, err := bindListSubmissions(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var templateID string
	var limit int
	if p.TemplateID != nil {
		templateID = *p.TemplateID
	}
	if p.Limit != nil {
		limit = *p.Limit
	}
	subs, err := s.audits.ListSubmissions(r.Context(), templateID, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	writeSuccess(w, http.StatusOK, subs)
}

func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sub, err := s.audits.GetSubmission(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, sub)
}

const inlineVerifyTimeout = 30 * time.Second

// verify runs the background verification job inline so the outcome is both
// returned and recorded. A tampered submission is a successful check and
// answers 200 with intact=false.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), inlineVerifyTimeout)
	defer cancel()

	var v domain.Verification
	run := verifier.ProcessorFunc(func(ctx context.Context, submissionID string) error {
		var err error
		v, err = s.audits.Verify(ctx, submissionID)
		return err
	})
	if s.jobs != nil {
		// Unknown ids must not leave a job row behind.
		if _, err := s.audits.GetSubmission(ctx, id); err != nil {
			writeDomainError(w, r, err)
			return
		}
		err = verifier.ProcessInline(ctx, s.jobs, run, id)
	} else {
		err = run(ctx, id)
	}
	if err != nil && !errors.Is(err, domain.ErrTampered) {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, v)
}

type verifyBatchRequest struct {
	SubmissionIDs []string `json:"submissionIds"`
}

type verifyBatchResponse struct {
	Verifications []domain.Verification `json:"verifications"`
	Tampered      int                   `json:"tampered"`
}

func (s *Server) verifyBatch(w http.ResponseWriter, r *http.Request) {
	var req verifyBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	vs, err := s.audits.VerifyBatch(r.Context(), req.SubmissionIDs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := verifyBatchResponse{Verifications: vs}
	if out.Verifications == nil {
		out.Verifications = []domain.Verification{}
	}
	for _, v := range vs {
		if !v.Intact {
			out.Tampered++
		}
	}
	writeSuccess(w, http.StatusOK, out)
}
