package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/jobcore/internal/core"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/testutil"
)

var testRetryParams = core.RetryFailedParams{
	Cooldown: time.Minute,
	Backoff:  domainjob.LinearBackoff{Base: 5 * time.Minute},
}

func failTestJob(t *testing.T, repo *JobRepo, id string) {
	t.Helper()
	claimTestJob(t, repo, id)
	ok, err := repo.Fail(context.Background(), model.FailRequest{JobID: id, Message: "boom"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSweeper_RetryFailedAppliesLinearBackoff(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest().WithMaxRetries(2))
		failTestJob(t, repo, job.ID)

		// Still cooling down.
		ids, err := repo.RetryFailed(ctx, testRetryParams)
		require.NoError(t, err)
		assert.Empty(t, ids)

		tp.Advance(2 * time.Minute)
		ids, err = repo.RetryFailed(ctx, testRetryParams)
		require.NoError(t, err)
		assert.Equal(t, []string{job.ID}, ids)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)
		assert.Equal(t, 1, got.RetryCount)
		assert.Nil(t, got.ErrorCode)
		assert.Nil(t, got.CompletedAt)
		require.NotNil(t, got.ScheduledFor)
		assert.True(t, got.ScheduledFor.Equal(tp.Now().Add(5*time.Minute)))

		// Not claimable until the backoff elapses.
		cands, err := repo.ClaimCandidates(ctx, model.ClaimCandidatesQuery{})
		require.NoError(t, err)
		assert.Empty(t, cands)

		// Second failure waits twice as long.
		tp.Advance(5 * time.Minute)
		failTestJob(t, repo, job.ID)
		tp.Advance(2 * time.Minute)
		_, err = repo.RetryFailed(ctx, testRetryParams)
		require.NoError(t, err)
		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.RetryCount)
		assert.True(t, got.ScheduledFor.Equal(tp.Now().Add(10*time.Minute)))

		// Retries exhausted: the failure is final.
		tp.Advance(10 * time.Minute)
		failTestJob(t, repo, job.ID)
		tp.Advance(2 * time.Minute)
		ids, err = repo.RetryFailed(ctx, testRetryParams)
		require.NoError(t, err)
		assert.Empty(t, ids)
		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, domainjob.IsTerminal(got))
	})
}

func TestSweeper_RetrySkipsExpiredJobs(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest().WithExpiresAt(tp.Now().Add(time.Minute)))
		failTestJob(t, repo, job.ID)

		tp.Advance(2 * time.Minute)
		ids, err := repo.RetryFailed(ctx, testRetryParams)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSweeper_ExpirePending(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		expiring := submitTestJob(t, repo, testutil.NewJobRequest().WithExpiresAt(tp.Now().Add(time.Hour)))
		forever := submitTestJob(t, repo, testutil.NewJobRequest())

		ids, err := repo.ExpirePending(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, ids)

		tp.Advance(time.Hour)
		ids, err = repo.ExpirePending(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{expiring.ID}, ids)

		got, err := repo.GetByID(ctx, expiring.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		require.NotNil(t, got.ErrorCode)
		assert.Equal(t, model.JobErrorCodeExpired, *got.ErrorCode)
		assert.Equal(t, 0, got.RetryCount)
		assert.True(t, domainjob.IsTerminal(got))

		other, err := repo.GetByID(ctx, forever.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, other.Status)

		// Idempotent.
		ids, err = repo.ExpirePending(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSweeper_FailStuck(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()
		params := core.FailStuckParams{Timeout: 30 * time.Minute}

		job := submitTestJob(t, repo, testutil.NewJobRequest())
		claimTestJob(t, repo, job.ID)

		tp.Advance(29 * time.Minute)
		ids, err := repo.FailStuck(ctx, params)
		require.NoError(t, err)
		assert.Empty(t, ids)

		tp.Advance(2 * time.Minute)
		ids, err = repo.FailStuck(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, []string{job.ID}, ids)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		assert.Equal(t, model.JobErrorCodeTimeout, *got.ErrorCode)

		// The lost worker's late completion is rejected.
		ok, err := repo.Complete(ctx, job.ID, json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSweeper_PurgeTerminal(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()
		params := core.PurgeJobsParams{Retention: 7 * 24 * time.Hour}

		done := submitTestJob(t, repo, testutil.NewJobRequest())
		claimTestJob(t, repo, done.ID)
		_, err := repo.Complete(ctx, done.ID, nil)
		require.NoError(t, err)
		_, err = repo.AppendLog(ctx, &model.AppendLogRequest{JobID: done.ID, Message: "done"})
		require.NoError(t, err)

		retryable := submitTestJob(t, repo, testutil.NewJobRequest())
		failTestJob(t, repo, retryable.ID)

		exhausted := submitTestJob(t, repo, testutil.NewJobRequest().WithMaxRetries(0))
		failTestJob(t, repo, exhausted.ID)

		active := submitTestJob(t, repo, testutil.NewJobRequest())

		n, err := repo.PurgeTerminal(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		tp.Advance(8 * 24 * time.Hour)
		n, err = repo.PurgeTerminal(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = repo.GetByID(ctx, done.ID)
		require.ErrorIs(t, err, model.ErrJobNotFound)
		_, err = repo.GetByID(ctx, exhausted.ID)
		require.ErrorIs(t, err, model.ErrJobNotFound)
		_, err = repo.GetByID(ctx, retryable.ID)
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, active.ID)
		require.NoError(t, err)

		var logs int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM job_logs WHERE job_id = $1`, done.ID).Scan(&logs))
		assert.Zero(t, logs)
	})
}

func TestSweeper_BatchSizeBoundsWork(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		for range 3 {
			submitTestJob(t, repo, testutil.NewJobRequest().WithExpiresAt(tp.Now()))
		}
		ids, err := repo.ExpirePending(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		ids, err = repo.ExpirePending(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}
