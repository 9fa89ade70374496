package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"millaudit/internal/domain"
	"millaudit/internal/ports"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type job struct {
	id           string
	submissionID string
	status       JobStatus
	attempts     int
	reason       string
}

// DefaultFinishedHistory is how many finished jobs a Queue keeps for Status.
const DefaultFinishedHistory = 1024

// Queue is an in-process VerificationQueue. Jobs are claimed in FIFO order.
// Only queued jobs are scanned when claiming; finished jobs are kept for
// Status up to a fixed history and then forgotten, oldest first.
type Queue struct {
	mu       sync.Mutex
	queued   []string
	finished []string
	history  int
	jobs     map[string]*job
}

type QueueOption func(*Queue)

// WithFinishedHistory sets how many finished jobs stay visible to Status.
func WithFinishedHistory(n int) QueueOption {
	return func(q *Queue) {
		if n >= 0 {
			q.history = n
		}
	}
}

func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{jobs: map[string]*job{}, history: DefaultFinishedHistory}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Enqueue(ctx context.Context, submissionID string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.jobs[id] = &job{id: id, submissionID: submissionID, status: JobQueued}
	q.queued = append(q.queued, id)
	return id, nil
}

func (q *Queue) ClaimNext(ctx context.Context) (ports.VerificationJob, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queued) == 0 {
		return ports.VerificationJob{}, false, nil
	}
	j := q.jobs[q.queued[0]]
	q.queued = slices.Delete(q.queued, 0, 1)
	j.status = JobRunning
	j.attempts++
	return ports.VerificationJob{ID: j.id, SubmissionID: j.submissionID}, true, nil
}

func (q *Queue) MarkCompleted(ctx context.Context, jobID string) error {
	return q.finish(jobID, JobCompleted, "")
}

func (q *Queue) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return q.finish(jobID, JobFailed, reason)
}

func (q *Queue) finish(jobID string, status JobStatus, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	wasFinished := j.status == JobCompleted || j.status == JobFailed
	if j.status == JobQueued {
		q.queued = slices.DeleteFunc(q.queued, func(id string) bool { return id == jobID })
	}
	j.status = status
	j.reason = reason
	if !wasFinished {
		q.finished = append(q.finished, jobID)
		q.forget()
	}
	return nil
}

// forget drops the oldest finished jobs beyond the history limit.
func (q *Queue) forget() {
	excess := len(q.finished) - q.history
	if excess <= 0 {
		return
	}
	for _, id := range q.finished[:excess] {
		delete(q.jobs, id)
	}
	q.finished = slices.Delete(q.finished, 0, excess)
}

// StartJobForSubmission claims the queued job of one submission, creating
// one when the submission has none queued.
func (q *Queue) StartJobForSubmission(ctx context.Context, submissionID string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.queued {
		j := q.jobs[id]
		if j.submissionID == submissionID {
			q.queued = slices.Delete(q.queued, i, i+1)
			j.status = JobRunning
			j.attempts++
			return j.id, nil
		}
	}
	id := uuid.NewString()
	q.jobs[id] = &job{id: id, submissionID: submissionID, status: JobRunning, attempts: 1}
	return id, nil
}

// Status reports a job's state and failure reason.
func (q *Queue) Status(jobID string) (JobStatus, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return "", "", false
	}
	return j.status, j.reason, true
}

// Pending counts jobs not yet claimed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queued)
}
