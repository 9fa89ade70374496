package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"millaudit/internal/ports"
)

func (db *DB) Enqueue(ctx context.Context, submissionID string) (string, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO verification_jobs (submission_id) VALUES ($1) RETURNING id::text
	`, submissionID).Scan(&id)
	return id, mapErr("enqueue verification for "+submissionID, err)
}

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.VerificationJob, found bool, err error) {
	err = db.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id::text, submission_id FROM verification_jobs
			WHERE status = 'queued'
			ORDER BY queued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`).Scan(&job.ID, &job.SubmissionID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE verification_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
		`, job.ID); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return ports.VerificationJob{}, false, err
	}
	return job, found, nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.finish(ctx, jobID, "completed", "")
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.finish(ctx, jobID, "failed", reason)
}

func (db *DB) finish(ctx context.Context, jobID, status, reason string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE verification_jobs SET status=$2, last_error=NULLIF($3, ''), finished_at=now() WHERE id=$1
	`, jobID, status, reason)
	if err != nil {
		return mapErr("job "+jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("job "+jobID, pgx.ErrNoRows)
	}
	return nil
}

// StartJobForSubmission claims the queued job of one submission, creating a
// running job when none is queued, and returns its id.
func (db *DB) StartJobForSubmission(ctx context.Context, submissionID string) (string, error) {
	var jobID string
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id::text FROM verification_jobs
			WHERE submission_id = $1 AND status = 'queued'
			ORDER BY queued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`, submissionID).Scan(&jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			return tx.QueryRow(ctx, `
				INSERT INTO verification_jobs (submission_id, status, started_at, attempts)
				VALUES ($1, 'running', now(), 1)
				RETURNING id::text
			`, submissionID).Scan(&jobID)
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE verification_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
		`, jobID)
		return err
	})
	if err != nil {
		return "", mapErr("start verification for "+submissionID, err)
	}
	return jobID, nil
}
