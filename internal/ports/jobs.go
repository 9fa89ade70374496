package ports

import "context"

type VerificationJob struct {
	ID           string
	SubmissionID string
}

// VerificationQueue schedules re-verification of stored submissions.
type VerificationQueue interface {
	Enqueue(ctx context.Context, submissionID string) (jobID string, err error)
	ClaimNext(ctx context.Context) (job VerificationJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	StartJobForSubmission(ctx context.Context, submissionID string) (jobID string, err error)
}
