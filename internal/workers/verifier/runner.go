// Package verifier runs background re-verification of stored submissions.
package verifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"millaudit/internal/domain"
	"millaudit/internal/ports"
)

// ReasonTampered is recorded on jobs whose submission failed verification.
const ReasonTampered = "tampered"

// Processor does the work for one job's submission.
type Processor interface {
	Process(ctx context.Context, submissionID string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, submissionID string) error

func (f ProcessorFunc) Process(ctx context.Context, submissionID string) error {
	return f(ctx, submissionID)
}

// VerifyProcessor recomputes the submission's calculation hash.
type VerifyProcessor struct{ Verifier ports.Verifier }

func (p VerifyProcessor) Process(ctx context.Context, submissionID string) error {
	_, err := p.Verifier.Verify(ctx, submissionID)
	return err
}

// Run claims jobs every pollInterval and hands them to concurrency workers.
// It blocks until ctx is cancelled and every worker has returned.
func Run(ctx context.Context, queue ports.VerificationQueue, processor Processor, concurrency int, pollInterval time.Duration, log *zap.Logger) {
	if concurrency < 1 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	jobsCh := make(chan ports.VerificationJob, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			wlog := log.With(zap.Int("worker", idx))
			for job := range jobsCh {
				process(ctx, queue, processor, job, wlog)
			}
		}(i)
	}

	dispatch(ctx, queue, jobsCh, pollInterval, log)
	close(jobsCh)
	wg.Wait()
}

func dispatch(ctx context.Context, queue ports.VerificationQueue, jobsCh chan<- ports.VerificationJob, pollInterval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for {
			job, found, err := queue.ClaimNext(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("job claim failed", zap.Error(err))
				}
				break
			}
			if !found {
				break
			}
			select {
			case jobsCh <- job:
			case <-ctx.Done():
				// Claimed but never started; left running for an operator to requeue.
				log.Warn("job abandoned on shutdown", zap.String("job_id", job.ID))
				return
			}
		}
	}
}

func process(ctx context.Context, queue ports.VerificationQueue, processor Processor, job ports.VerificationJob, log *zap.Logger) {
	log = log.With(zap.String("job_id", job.ID), zap.String("submission_id", job.SubmissionID))
	if err := processor.Process(ctx, job.SubmissionID); err != nil {
		if ferr := queue.MarkFailed(ctx, job.ID, failureReason(err)); ferr != nil {
			log.Error("mark job failed", zap.Error(ferr))
		}
		log.Warn("verification job failed", zap.Error(err))
		return
	}
	if err := queue.MarkCompleted(ctx, job.ID); err != nil {
		log.Error("mark job completed", zap.Error(err))
		return
	}
	log.Debug("verification job completed")
}

func failureReason(err error) string {
	if errors.Is(err, domain.ErrTampered) {
		return ReasonTampered
	}
	return err.Error()
}

// ProcessInline verifies one submission synchronously using the same
// processor as the background workers, recording the outcome as a job.
func ProcessInline(ctx context.Context, queue ports.VerificationQueue, processor Processor, submissionID string) error {
	jobID, err := queue.StartJobForSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if err := processor.Process(ctx, submissionID); err != nil {
		_ = queue.MarkFailed(ctx, jobID, failureReason(err))
		return err
	}
	return queue.MarkCompleted(ctx, jobID)
}
