package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/jobcore/internal/core"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/testutil"
)

func newTestJobRepo(db *sql.DB) (*JobRepo, *ManualClock) {
	tp := NewManualClock(testutil.TestTime())
	return NewJobRepo(db, RepoConfig{TimeProvider: tp}), tp
}

func submitTestJob(t *testing.T, repo *JobRepo, b *testutil.JobRequestBuilder) *model.Job {
	t.Helper()
	job, err := repo.Submit(context.Background(), core.SubmitJobParams{Req: b.Build()})
	require.NoError(t, err)
	return job
}

func claimTestJob(t *testing.T, repo *JobRepo, id string) {
	t.Helper()
	ok, err := repo.Claim(context.Background(), id, "worker-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEncodeJobChange_TruncatesOversizedResult(t *testing.T) {
	msg := "halfway"
	change := model.JobChange{
		Topic:           model.OwnerTopic("owner-1"),
		JobID:           uuid.NewString(),
		OwnerID:         "owner-1",
		Type:            model.JobTypeAIAnalysis,
		Status:          model.JobStatusCompleted,
		ProgressMessage: &msg,
		Result:          json.RawMessage(`{"blob":"` + strings.Repeat("x", 9000) + `"}`),
	}

	payload, err := encodeJobChange(change)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(payload), maxNotifyPayload)

	var decoded model.JobChange
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.True(t, decoded.ResultTruncated)
	assert.Empty(t, decoded.Result)
	require.NotNil(t, decoded.ProgressMessage)
	assert.Equal(t, msg, *decoded.ProgressMessage)
}

func TestEncodeJobChange_DropsFreeTextAsLastResort(t *testing.T) {
	huge := strings.Repeat("e", 9000)
	payload, err := encodeJobChange(model.JobChange{
		JobID:        uuid.NewString(),
		Status:       model.JobStatusFailed,
		ErrorMessage: &huge,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(payload), maxNotifyPayload)
	assert.NotContains(t, string(payload), "eeee")
}

func TestEncodeJobChange_SmallPayloadUntouched(t *testing.T) {
	payload, err := encodeJobChange(model.JobChange{
		JobID:  "abc",
		Status: model.JobStatusCompleted,
		Result: json.RawMessage(`{"ok":true}`),
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"result":{"ok":true}`)
	assert.NotContains(t, string(payload), "result_truncated")
}

func TestBuildJobListQuery(t *testing.T) {
	status := model.JobStatusPending
	jobType := model.JobTypeSEOSubmission

	countQ, pageQ, args := buildJobListQuery(&model.JobListOptions{OwnerID: "o", Status: &status, Type: &jobType})
	assert.Equal(t, "SELECT count(*) FROM jobs WHERE owner_id = $1 AND status = $2 AND type = $3", countQ)
	assert.Contains(t, pageQ, "ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5")
	assert.Equal(t, []any{"o", "pending", "seo_submission"}, args)

	countQ, pageQ, args = buildJobListQuery(&model.JobListOptions{OwnerID: "o"})
	assert.Equal(t, "SELECT count(*) FROM jobs WHERE owner_id = $1", countQ)
	assert.Contains(t, pageQ, "LIMIT $2 OFFSET $3")
	assert.Len(t, args, 1)
}

func TestNormalizeListPage(t *testing.T) {
	tests := []struct {
		limit, offset     int
		wantLim, wantOffs int
	}{
		{0, 0, defaultListLimit, 0},
		{-3, -1, defaultListLimit, 0},
		{5000, 10, maxListLimit, 10},
		{25, 50, 25, 50},
	}
	for _, tt := range tests {
		lim, off := normalizeListPage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLim, lim)
		assert.Equal(t, tt.wantOffs, off)
	}
}

func TestStatusArg(t *testing.T) {
	assert.Equal(t, []string{"pending"}, statusArg(domainjob.EventClaim))
	assert.ElementsMatch(t, []string{"pending", "processing"}, statusArg(domainjob.EventCancel))
	assert.False(t, validJobID("not-a-uuid"))
	assert.True(t, validJobID(uuid.NewString()))
}

func TestJobRepo_SubmitAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest().WithPriority(8))
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, model.JobStatusPending, job.Status)
		assert.Equal(t, 8, job.Priority)
		assert.Equal(t, 3, job.MaxRetries)
		assert.Equal(t, 0, job.RetryCount)
		assert.Nil(t, job.CompletedAt)
		assert.True(t, job.CreatedAt.Equal(tp.Now()))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.JSONEq(t, `{"platform":"youtube"}`, string(got.Parameters))

		_, err = repo.GetByID(ctx, uuid.NewString())
		require.ErrorIs(t, err, model.ErrJobNotFound)
		_, err = repo.GetByID(ctx, "bogus")
		require.ErrorIs(t, err, model.ErrJobNotFound)
	})
}

func TestJobRepo_SubmitValidation(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()

		_, err := repo.Submit(ctx, core.SubmitJobParams{Req: testutil.NewJobRequest().WithPriority(11).Build()})
		require.Error(t, err)

		_, err = repo.Submit(ctx, core.SubmitJobParams{Req: testutil.NewJobRequest().WithParameters(`"scalar"`).Build()})
		require.Error(t, err)

		_, err = repo.Submit(ctx, core.SubmitJobParams{Req: testutil.NewJobRequest().WithType("mining").Build()})
		require.Error(t, err)
	})
}

func TestJobRepo_SubmitQuota(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()
		params := core.SubmitJobParams{Req: testutil.NewJobRequest().WithOwner("quota-owner").Build(), MaxActive: 2}

		for range 2 {
			_, err := repo.Submit(ctx, params)
			require.NoError(t, err)
		}
		_, err := repo.Submit(ctx, params)
		require.ErrorIs(t, err, model.ErrQuotaExceeded)

		// Other owners are unaffected.
		_, err = repo.Submit(ctx, core.SubmitJobParams{Req: testutil.NewJobRequest().WithOwner("other").Build(), MaxActive: 2})
		require.NoError(t, err)
	})
}

func TestJobRepo_SubmitQuotaUnderConcurrency(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()

		var funcs []func() error
		for range 6 {
			funcs = append(funcs, func() error {
				_, err := repo.Submit(ctx, core.SubmitJobParams{
					Req:       testutil.NewJobRequest().WithOwner("racer").Build(),
					MaxActive: 3,
				})
				return err
			})
		}
		errs := testutil.NewConcurrentTestRunner(t).RunConcurrent(funcs...)

		var ok, quota int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, model.ErrQuotaExceeded):
				quota++
			}
		}
		assert.Equal(t, 3, ok)
		assert.Equal(t, 3, quota)
	})
}

func TestJobRepo_FindActiveDuplicate(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest().WithParameters(`{"a":1,"b":[1,2]}`))

		dup, err := repo.FindActiveDuplicate(ctx, model.DuplicateQuery{
			OwnerID:    testutil.DefaultTestOwner,
			Type:       model.JobTypePlatformSync,
			Parameters: json.RawMessage(`{"b":[1,2],  "a":1}`),
			Since:      tp.Now().Add(-5 * time.Minute),
		})
		require.NoError(t, err)
		require.NotNil(t, dup)
		assert.Equal(t, job.ID, dup.ID)

		miss, err := repo.FindActiveDuplicate(ctx, model.DuplicateQuery{
			OwnerID:    testutil.DefaultTestOwner,
			Type:       model.JobTypePlatformSync,
			Parameters: json.RawMessage(`{"a":1,"b":[2,1]}`),
			Since:      tp.Now().Add(-5 * time.Minute),
		})
		require.NoError(t, err)
		assert.Nil(t, miss)

		// Outside the window.
		stale, err := repo.FindActiveDuplicate(ctx, model.DuplicateQuery{
			OwnerID:    testutil.DefaultTestOwner,
			Type:       model.JobTypePlatformSync,
			Parameters: json.RawMessage(`{"a":1,"b":[1,2]}`),
			Since:      tp.Now().Add(time.Second),
		})
		require.NoError(t, err)
		assert.Nil(t, stale)
	})
}

func TestJobRepo_Lifecycle(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest())
		claimTestJob(t, repo, job.ID)

		// A second claim loses.
		ok, err := repo.Claim(ctx, job.ID, "worker-2")
		require.NoError(t, err)
		assert.False(t, ok)

		tp.Advance(time.Second)
		msg := "fetching videos"
		ok, err = repo.ReportProgress(ctx, model.ProgressUpdate{JobID: job.ID, Percent: 40, Message: &msg})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, got.Status)
		assert.Equal(t, 40, got.ProgressPercent)
		require.NotNil(t, got.WorkerID)
		assert.Equal(t, "worker-1", *got.WorkerID)

		// A progress update without a message keeps the previous one.
		ok, err = repo.ReportProgress(ctx, model.ProgressUpdate{JobID: job.ID, Percent: 60})
		require.NoError(t, err)
		assert.True(t, ok)
		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ProgressMessage)
		assert.Equal(t, msg, *got.ProgressMessage)

		ok, err = repo.Complete(ctx, job.ID, json.RawMessage(`{"videos":12}`))
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, got.Status)
		assert.Equal(t, 100, got.ProgressPercent)
		assert.JSONEq(t, `{"videos":12}`, string(got.Result))
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(tp.Now()))

		// Terminal jobs reject further transitions.
		ok, err = repo.ReportProgress(ctx, model.ProgressUpdate{JobID: job.ID, Percent: 10})
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = repo.Fail(ctx, model.FailRequest{JobID: job.ID, Message: "late"})
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = repo.Cancel(ctx, job.ID, testutil.DefaultTestOwner)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestJobRepo_ClaimJobReturnsClaimedRow(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest())
		tp.Advance(2 * time.Second)

		claimed, err := repo.ClaimJob(ctx, job.ID, "worker-7")
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, job.ID, claimed.ID)
		assert.Equal(t, model.JobStatusProcessing, claimed.Status)
		require.NotNil(t, claimed.WorkerID)
		assert.Equal(t, "worker-7", *claimed.WorkerID)
		require.NotNil(t, claimed.StartedAt)
		assert.True(t, claimed.StartedAt.Equal(tp.Now()))

		again, err := repo.ClaimJob(ctx, job.ID, "worker-8")
		require.NoError(t, err)
		assert.Nil(t, again)
	})
}

func TestJobRepo_ProgressRequiresProcessing(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest())
		ok, err := repo.ReportProgress(ctx, model.ProgressUpdate{JobID: job.ID, Percent: 10})
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.ReportProgress(ctx, model.ProgressUpdate{JobID: job.ID, Percent: 101})
		require.Error(t, err)

		ok, err = repo.Complete(ctx, job.ID, nil)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Claim(ctx, uuid.NewString(), "worker-1")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.Claim(ctx, job.ID, "")
		require.Error(t, err)
	})
}

func TestJobRepo_FailDefaultsCode(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest())
		claimTestJob(t, repo, job.ID)

		ok, err := repo.Fail(ctx, model.FailRequest{
			JobID:   job.ID,
			Message: "upstream 500",
			Details: json.RawMessage(`{"status":500}`),
		})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		require.NotNil(t, got.ErrorCode)
		assert.Equal(t, model.JobErrorCodeDefault, *got.ErrorCode)
		assert.JSONEq(t, `{"status":500}`, string(got.ErrorDetails))
		assert.NotNil(t, got.CompletedAt)
	})
}

func TestJobRepo_CancelIsOwnerScoped(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest())
		claimTestJob(t, repo, job.ID)

		ok, err := repo.Cancel(ctx, job.ID, "intruder")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Cancel(ctx, job.ID, testutil.DefaultTestOwner)
		require.NoError(t, err)
		assert.True(t, ok)

		// The worker finds out on its next call.
		ok, err = repo.ReportProgress(ctx, model.ProgressUpdate{JobID: job.ID, Percent: 90})
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = repo.Complete(ctx, job.ID, json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCancelled, got.Status)
	})
}

func TestJobRepo_ClaimCandidatesOrdering(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		low := submitTestJob(t, repo, testutil.NewJobRequest().WithPriority(2))
		tp.Advance(time.Second)
		high := submitTestJob(t, repo, testutil.NewJobRequest().WithPriority(9))
		tp.Advance(time.Second)
		highLater := submitTestJob(t, repo, testutil.NewJobRequest().WithPriority(9))
		submitTestJob(t, repo, testutil.NewJobRequest().WithPriority(10).WithScheduledFor(tp.Now().Add(time.Hour)))
		submitTestJob(t, repo, testutil.NewJobRequest().WithPriority(10).WithExpiresAt(tp.Now()))
		other := submitTestJob(t, repo, testutil.NewJobRequest().WithType(model.JobTypeQuotaReset).WithPriority(1))

		ids, err := repo.ClaimCandidates(ctx, model.ClaimCandidatesQuery{
			Types: []model.JobType{model.JobTypePlatformSync},
			Limit: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{high.ID, highLater.ID, low.ID}, ids)

		all, err := repo.ClaimCandidates(ctx, model.ClaimCandidatesQuery{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{high.ID, highLater.ID, low.ID, other.ID}, all)
	})
}

func TestJobRepo_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		ctx := context.Background()
		job := submitTestJob(t, repo, testutil.NewJobRequest())

		results := make(chan bool, 8)
		var funcs []func() error
		for i := range 8 {
			worker := "worker-" + string(rune('a'+i))
			funcs = append(funcs, func() error {
				ok, err := repo.Claim(ctx, job.ID, worker)
				results <- ok
				return err
			})
		}
		runner := testutil.NewConcurrentTestRunner(t)
		runner.AssertNoErrors(runner.RunConcurrent(funcs...))
		close(results)

		wins := 0
		for ok := range results {
			if ok {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})
}

func TestJobRepo_List(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		var ids []string
		for range 3 {
			ids = append(ids, submitTestJob(t, repo, testutil.NewJobRequest()).ID)
			tp.Advance(time.Second)
		}
		ids = append(ids, submitTestJob(t, repo, testutil.NewJobRequest().WithType(model.JobTypeAIAnalysis)).ID)
		submitTestJob(t, repo, testutil.NewJobRequest().WithOwner("someone-else"))
		claimTestJob(t, repo, ids[0])

		page, err := repo.List(ctx, &model.JobListOptions{OwnerID: testutil.DefaultTestOwner, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		require.Len(t, page.Jobs, 2)
		assert.Equal(t, ids[3], page.Jobs[0].ID)
		assert.Equal(t, ids[2], page.Jobs[1].ID)

		page, err = repo.List(ctx, &model.JobListOptions{OwnerID: testutil.DefaultTestOwner, Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page.Jobs, 2)
		assert.Equal(t, ids[0], page.Jobs[1].ID)

		processing := model.JobStatusProcessing
		page, err = repo.List(ctx, &model.JobListOptions{OwnerID: testutil.DefaultTestOwner, Status: &processing})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)

		ai := model.JobTypeAIAnalysis
		page, err = repo.List(ctx, &model.JobListOptions{OwnerID: testutil.DefaultTestOwner, Type: &ai})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)

		page, err = repo.List(ctx, &model.JobListOptions{OwnerID: "nobody"})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.Empty(t, page.Jobs)
	})
}

func TestJobRepo_FindCachedResult(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()

		job := submitTestJob(t, repo, testutil.NewJobRequest().WithType(model.JobTypeAIAnalysis).WithParameters(`{"video":"v1"}`))
		claimTestJob(t, repo, job.ID)
		ok, err := repo.Complete(ctx, job.ID, json.RawMessage(`{"tags":["cats"]}`))
		require.NoError(t, err)
		require.True(t, ok)

		q := model.CachedResultQuery{
			OwnerID:    testutil.DefaultTestOwner,
			Type:       model.JobTypeAIAnalysis,
			Parameters: json.RawMessage(`{"video":"v1"}`),
			TTL:        time.Hour,
		}

		tp.Advance(30 * time.Minute)
		hit, err := repo.FindCachedResult(ctx, q)
		require.NoError(t, err)
		require.NotNil(t, hit)
		assert.Equal(t, job.ID, hit.ID)
		assert.JSONEq(t, `{"tags":["cats"]}`, string(hit.Result))

		tp.Advance(31 * time.Minute)
		miss, err := repo.FindCachedResult(ctx, q)
		require.NoError(t, err)
		assert.Nil(t, miss)

		q.TTL = 0
		_, err = repo.FindCachedResult(ctx, q)
		require.Error(t, err)
	})
}

func TestJobRepo_Logs(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, tp := newTestJobRepo(db)
		ctx := context.Background()
		job := submitTestJob(t, repo, testutil.NewJobRequest())

		first, err := repo.AppendLog(ctx, &model.AppendLogRequest{JobID: job.ID, Message: "starting"})
		require.NoError(t, err)
		assert.Equal(t, model.JobLogLevelInfo, first.Level)

		tp.Advance(time.Second)
		_, err = repo.AppendLog(ctx, &model.AppendLogRequest{
			JobID:    job.ID,
			Level:    model.JobLogLevelWarning,
			Message:  "rate limited",
			Metadata: json.RawMessage(`{"retry_after":30}`),
		})
		require.NoError(t, err)

		logs, err := repo.ListLogs(ctx, job.ID, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "starting", logs[0].Message)
		assert.JSONEq(t, `{"retry_after":30}`, string(logs[1].Metadata))

		// Logging never changes job state.
		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)

		_, err = repo.AppendLog(ctx, &model.AppendLogRequest{JobID: uuid.NewString(), Message: "orphan"})
		require.ErrorIs(t, err, model.ErrJobNotFound)

		_, err = repo.AppendLog(ctx, &model.AppendLogRequest{JobID: job.ID, Level: "loud", Message: "x"})
		require.Error(t, err)
	})
}

func TestChangeFeed_ReceivesCommittedTransitions(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestJobRepo(db)
		feed := NewChangeFeed(db, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		changes := make(chan model.JobChange, 16)
		done := make(chan error, 1)
		go func() {
			done <- feed.ListenJobChanges(ctx, func(c model.JobChange) { changes <- c })
		}()

		// LISTEN is asynchronous; keep submitting until the first snapshot arrives.
		require.Eventually(t, func() bool {
			if _, err := repo.Submit(ctx, core.SubmitJobParams{
				Req: testutil.NewJobRequest().WithOwner("feed-owner").Build(),
			}); err != nil {
				return false
			}
			select {
			case c := <-changes:
				return c.OwnerID == "feed-owner"
			case <-time.After(200 * time.Millisecond):
				return false
			}
		}, 5*time.Second, 50*time.Millisecond)

		job := submitTestJob(t, repo, testutil.NewJobRequest().WithOwner("feed-owner"))
		claimTestJob(t, repo, job.ID)

		for {
			select {
			case c := <-changes:
				if c.JobID != job.ID || c.Status != model.JobStatusProcessing {
					continue
				}
				assert.Equal(t, model.OwnerTopic("feed-owner"), c.Topic)
				cancel()
				require.NoError(t, <-done)
				return
			case <-ctx.Done():
				t.Fatal("timed out waiting for claim notification")
			}
		}
	})
}
