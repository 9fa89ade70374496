package audits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"millaudit/internal/domain"
	"millaudit/internal/scoring"
)

// Verify recomputes a stored submission against the template version and
// grading policy it was submitted under. A submission whose hash or stored
// grade no longer matches returns its Verification together with
// domain.ErrTampered.
func (s *Service) Verify(ctx context.Context, submissionID string) (domain.Verification, error) {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return domain.Verification{}, err
	}
	tpl, err := s.templates.GetTemplateVersion(ctx, sub.TemplateID, sub.TemplateVersion)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("load template for submission %s: %w", submissionID, err)
	}

	engine := s.engine
	if sub.Policy != nil {
		engine = scoring.FromSnapshot(*sub.Policy)
	}
	recomputed := engine.CalculateAuditResult(tpl, sub.Responses)
	v := domain.Verification{
		SubmissionID: sub.ID,
		StoredHash:   sub.Result.CalculationHash,
		ComputedHash: recomputed.CalculationHash,
		VerifiedAt:   s.now(),
	}
	mismatches := compareResults(sub.Result, recomputed)
	v.Intact = len(mismatches) == 0
	if !v.Intact {
		s.log.Warn("submission failed verification",
			zap.String("submission_id", sub.ID),
			zap.Strings("mismatches", mismatches),
			zap.String("stored_hash", v.StoredHash),
			zap.String("computed_hash", v.ComputedHash),
			zap.String("stored_grade", string(sub.Result.Grade)),
			zap.String("computed_grade", string(recomputed.Grade)))
		return v, fmt.Errorf("submission %s: %s mismatch: %w", sub.ID, strings.Join(mismatches, ", "), domain.ErrTampered)
	}
	return v, nil
}

// compareResults names each stored field that differs from the recompute.
func compareResults(stored, recomputed domain.AuditResult) []string {
	var out []string
	if stored.CalculationHash != recomputed.CalculationHash {
		out = append(out, "hash")
	}
	if stored.Grade != recomputed.Grade {
		out = append(out, "grade")
	}
	if stored.OverallPercent != recomputed.OverallPercent {
		out = append(out, "percent")
	}
	if stored.RedFlags != recomputed.RedFlags {
		out = append(out, "red flags")
	}
	if stored.YellowFlags != recomputed.YellowFlags {
		out = append(out, "yellow flags")
	}
	return out
}

// VerifyBatch verifies many submissions in parallel. Tampered submissions do
// not stop the batch; any other failure does. Results keep the input order.
func (s *Service) VerifyBatch(ctx context.Context, submissionIDs []string) ([]domain.Verification, error) {
	out := make([]domain.Verification, len(submissionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.verifyConcurrency)
	for i, id := range submissionIDs {
		g.Go(func() error {
			v, err := s.Verify(gctx, id)
			if err != nil && !errors.Is(err, domain.ErrTampered) {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
