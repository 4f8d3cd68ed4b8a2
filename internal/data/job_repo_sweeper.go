package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/data/pgxutil"
	"github.com/creatorhub/jobcore/internal/domain/model"
)

// Sweeper steps share advisory lock major key advisoryLockSweeperMajor.
// Each step gets its own minor key so different steps can run concurrently.
const (
	sweepLockRetry  int32 = 1
	sweepLockExpire int32 = 2
	sweepLockStuck  int32 = 3
	sweepLockPurge  int32 = 4
)

const defaultSweepBatch = 500

const (
	expiredMessage = "Job expired before it was claimed"
	timeoutMessage = "Job exceeded the processing timeout; worker presumed lost"
)

func sweepBatch(n int) int {
	if n <= 0 {
		return defaultSweepBatch
	}
	return n
}

// withSweepLock runs fn in a transaction holding the step's advisory lock.
// When another sweeper holds it, fn is skipped and no error is returned.
func (r *JobRepo) withSweepLock(ctx context.Context, minor int32, fn func(tx *sql.Tx) error) error {
	return pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := pgxutil.TryAdvisoryXactLock(ctx, tx, advisoryLockSweeperMajor, minor)
			if err != nil {
				return err
			}
			if !locked {
				r.logger.DebugContext(ctx, "sweep step held by another instance", "step", minor)
				return nil
			}
			return fn(tx)
		},
	})
}

// collectAndPublish scans RETURNING rows and publishes a change for each.
func collectAndPublish(ctx context.Context, tx *sql.Tx, rows *sql.Rows) ([]string, error) {
	var jobs []*model.Job
	for rows.Next() {
		j, err := scanJobFromRow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan swept job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if err := publishJobChange(ctx, tx, j); err != nil {
			return nil, err
		}
		ids = append(ids, j.ID)
	}
	return ids, nil
}

type retryCandidate struct {
	id         string
	retryCount int
}

// RetryFailed moves failed jobs with retries left, past the cooldown and not expired,
// back to pending. scheduled_for grows linearly with the attempt number.
func (r *JobRepo) RetryFailed(ctx context.Context, params core.RetryFailedParams) ([]string, error) {
	var ids []string
	err := r.withSweepLock(ctx, sweepLockRetry, func(tx *sql.Tx) error {
		now := nowUTC(r.timeProvider)
		rows, err := tx.QueryContext(ctx, `
			SELECT id, retry_count FROM jobs
			WHERE status = 'failed'
			  AND retry_count < max_retries
			  AND updated_at < $1
			  AND (expires_at IS NULL OR expires_at > $2)
			ORDER BY updated_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		`, now.Add(-params.Cooldown), now, sweepBatch(params.BatchSize))
		if err != nil {
			return fmt.Errorf("select retryable jobs: %w", err)
		}

		var candidates []retryCandidate
		for rows.Next() {
			var c retryCandidate
			if scanErr := rows.Scan(&c.id, &c.retryCount); scanErr != nil {
				rows.Close()
				return fmt.Errorf("scan retryable job: %w", scanErr)
			}
			candidates = append(candidates, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, c := range candidates {
			scheduledFor := params.Backoff.NextSchedule(now, c.retryCount+1)
			j, scanErr := scanJobFromRow(tx.QueryRowContext(ctx, `
				UPDATE jobs
				SET status = 'pending',
				    retry_count = retry_count + 1,
				    scheduled_for = $2,
				    completed_at = NULL,
				    error_code = NULL,
				    error_message = NULL,
				    error_details = NULL,
				    progress_percent = 0,
				    progress_message = NULL,
				    result = NULL,
				    updated_at = $3
				WHERE id = $1 AND status = 'failed' AND retry_count < max_retries
				RETURNING `+jobColumns,
				c.id, scheduledFor, now,
			))
			if scanErr != nil {
				return fmt.Errorf("retry job %s: %w", c.id, scanErr)
			}
			if err := publishJobChange(ctx, tx, j); err != nil {
				return err
			}
			ids = append(ids, j.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ExpirePending fails pending jobs past expires_at with EXPIRED. retry_count is untouched.
func (r *JobRepo) ExpirePending(ctx context.Context, batchSize int) ([]string, error) {
	var ids []string
	err := r.withSweepLock(ctx, sweepLockExpire, func(tx *sql.Tx) error {
		now := nowUTC(r.timeProvider)
		rows, err := tx.QueryContext(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    error_code = $2,
			    error_message = $3,
			    completed_at = $1,
			    updated_at = $1
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'pending'
				  AND expires_at IS NOT NULL
				  AND expires_at <= $1
				ORDER BY expires_at
				LIMIT $4
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+jobColumns,
			now, model.JobErrorCodeExpired, expiredMessage, sweepBatch(batchSize),
		)
		if err != nil {
			return fmt.Errorf("expire pending jobs: %w", err)
		}
		ids, err = collectAndPublish(ctx, tx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FailStuck fails processing jobs whose current attempt started before now - timeout.
func (r *JobRepo) FailStuck(ctx context.Context, params core.FailStuckParams) ([]string, error) {
	var ids []string
	err := r.withSweepLock(ctx, sweepLockStuck, func(tx *sql.Tx) error {
		now := nowUTC(r.timeProvider)
		rows, err := tx.QueryContext(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    error_code = $3,
			    error_message = $4,
			    completed_at = $1,
			    updated_at = $1
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'processing'
				  AND started_at < $2
				ORDER BY started_at
				LIMIT $5
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+jobColumns,
			now, now.Add(-params.Timeout), model.JobErrorCodeTimeout, timeoutMessage, sweepBatch(params.BatchSize),
		)
		if err != nil {
			return fmt.Errorf("fail stuck jobs: %w", err)
		}
		ids, err = collectAndPublish(ctx, tx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PurgeTerminal deletes completed, cancelled and exhausted failed jobs that finished before
// the retention window. Log entries cascade.
func (r *JobRepo) PurgeTerminal(ctx context.Context, params core.PurgeJobsParams) (int64, error) {
	var deleted int64
	err := r.withSweepLock(ctx, sweepLockPurge, func(tx *sql.Tx) error {
		now := nowUTC(r.timeProvider)
		res, err := tx.ExecContext(ctx, `
			DELETE FROM jobs
			WHERE id IN (
				SELECT id FROM jobs
				WHERE completed_at < $1
				  AND (
				    status IN ('completed', 'cancelled')
				    OR (status = 'failed' AND (
				          retry_count >= max_retries
				          OR (expires_at IS NOT NULL AND expires_at <= $2)))
				  )
				ORDER BY completed_at
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
		`, now.Add(-params.Retention), now, sweepBatch(params.BatchSize))
		if err != nil {
			return fmt.Errorf("purge terminal jobs: %w", err)
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
