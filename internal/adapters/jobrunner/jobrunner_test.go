package jobrunner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

type fakeJobs struct {
	mu         sync.Mutex
	queue      []*model.Job
	progressOK bool
	progress   []model.ProgressUpdate
	completed  map[string]json.RawMessage
	failed     map[string]model.FailRequest
	logs       []*model.AppendLogRequest
	recorded   chan string
}

func newFakeJobs(jobs ...*model.Job) *fakeJobs {
	return &fakeJobs{
		queue:      jobs,
		progressOK: true,
		completed:  make(map[string]json.RawMessage),
		failed:     make(map[string]model.FailRequest),
		recorded:   make(chan string, 16),
	}
}

func (f *fakeJobs) enqueue(j *model.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, j)
}

func (f *fakeJobs) ClaimNext(_ context.Context, workerID string, _ []model.JobType) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, model.ErrNoJobsAvailable
	}
	j := f.queue[0]
	f.queue = f.queue[1:]
	j.Status = model.JobStatusProcessing
	j.WorkerID = &workerID
	return j, nil
}

func (f *fakeJobs) ReportProgress(_ context.Context, upd model.ProgressUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, upd)
	return f.progressOK, nil
}

func (f *fakeJobs) Complete(_ context.Context, jobID string, result json.RawMessage) (bool, error) {
	f.mu.Lock()
	f.completed[jobID] = result
	f.mu.Unlock()
	f.recorded <- jobID
	return true, nil
}

func (f *fakeJobs) Fail(_ context.Context, req model.FailRequest) (bool, error) {
	f.mu.Lock()
	f.failed[req.JobID] = req
	f.mu.Unlock()
	f.recorded <- req.JobID
	return true, nil
}

func (f *fakeJobs) AppendLog(_ context.Context, req *model.AppendLogRequest) (*model.JobLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, req)
	return &model.JobLogEntry{JobID: req.JobID, Message: req.Message}, nil
}

type fakeChanges struct{ ch chan model.JobChange }

func newFakeChanges() *fakeChanges { return &fakeChanges{ch: make(chan model.JobChange, 8)} }

func (f *fakeChanges) Subscribe(string) (func(), <-chan model.JobChange) { return func() {}, f.ch }
func (f *fakeChanges) SubscribeAll() (func(), <-chan model.JobChange)    { return func() {}, f.ch }

func testJob(id string) *model.Job {
	return &model.Job{
		ID:         id,
		OwnerID:    "creator-1",
		Type:       model.JobTypeAIAnalysis,
		Parameters: json.RawMessage(`{"video":"v1"}`),
		Status:     model.JobStatusPending,
	}
}

// startRunner runs r in the background and returns a stop func that waits for Run to return.
func startRunner(t *testing.T, r *Runner) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("runner did not stop")
		}
	}
}

func waitRecorded(t *testing.T, jobs *fakeJobs) string {
	t.Helper()
	select {
	case id := <-jobs.recorded:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome recorded")
		return ""
	}
}

func newTestRunner(t *testing.T, jobs *fakeJobs, h Handler, changes *fakeChanges) *Runner {
	t.Helper()
	opts := RunnerOptions{
		Jobs:         jobs,
		Handlers:     map[model.JobType]Handler{model.JobTypeAIAnalysis: h},
		Concurrency:  2,
		PollInterval: 10 * time.Millisecond,
	}
	if changes != nil {
		opts.Changes = changes
		opts.PollInterval = time.Hour
	}
	r, err := NewRunner(opts)
	require.NoError(t, err)
	return r
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Jobs: newFakeJobs()})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{
		Jobs:     newFakeJobs(),
		Handlers: map[model.JobType]Handler{"bogus": HandlerFunc(nil)},
	})
	require.Error(t, err)

	r, err := NewRunner(RunnerOptions{
		Jobs: newFakeJobs(),
		Handlers: map[model.JobType]Handler{
			model.JobTypeTokenRefresh: HandlerFunc(nil),
			model.JobTypePlatformSync: HandlerFunc(nil),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.JobType{model.JobTypePlatformSync, model.JobTypeTokenRefresh}, r.Types())
}

func TestRunner_CompletesJob(t *testing.T) {
	jobs := newFakeJobs(testJob("job-1"))
	r := newTestRunner(t, jobs, HandlerFunc(
		func(ctx context.Context, job *model.Job, progress ProgressReporter) (json.RawMessage, error) {
			require.NoError(t, progress.Report(ctx, 50, "halfway"))
			require.NoError(t, progress.Log(ctx, model.JobLogLevelInfo, "tagging", nil))
			return json.RawMessage(`{"tags":["music"]}`), nil
		}), nil)

	stop := startRunner(t, r)
	assert.Equal(t, "job-1", waitRecorded(t, jobs))
	stop()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.JSONEq(t, `{"tags":["music"]}`, string(jobs.completed["job-1"]))
	require.Len(t, jobs.progress, 1)
	assert.Equal(t, 50, jobs.progress[0].Percent)
	require.Len(t, jobs.logs, 1)
	assert.Equal(t, "tagging", jobs.logs[0].Message)
}

func TestRunner_FailureCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "explicit failure", err: &Failure{Code: "QUOTA_PROVIDER", Message: "provider quota"}, wantCode: "QUOTA_PROVIDER"},
		{name: "plain error", err: errors.New("boom"), wantCode: model.JobErrorCodeDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs(testJob("job-1"))
			r := newTestRunner(t, jobs, HandlerFunc(
				func(context.Context, *model.Job, ProgressReporter) (json.RawMessage, error) {
					return nil, tt.err
				}), nil)

			stop := startRunner(t, r)
			waitRecorded(t, jobs)
			stop()

			jobs.mu.Lock()
			defer jobs.mu.Unlock()
			assert.Equal(t, tt.wantCode, jobs.failed["job-1"].Code)
			assert.Empty(t, jobs.completed)
		})
	}
}

func TestRunner_RecoversHandlerPanic(t *testing.T) {
	jobs := newFakeJobs(testJob("job-1"))
	r := newTestRunner(t, jobs, HandlerFunc(
		func(context.Context, *model.Job, ProgressReporter) (json.RawMessage, error) {
			panic("nil map")
		}), nil)

	stop := startRunner(t, r)
	waitRecorded(t, jobs)
	stop()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.Equal(t, ErrorCodeHandlerPanic, jobs.failed["job-1"].Code)
	assert.Equal(t, "nil map", jobs.failed["job-1"].Message)
}

func TestRunner_ProgressRejectedStopsHandler(t *testing.T) {
	jobs := newFakeJobs(testJob("job-1"))
	jobs.progressOK = false
	returned := make(chan error, 1)

	r := newTestRunner(t, jobs, HandlerFunc(
		func(ctx context.Context, _ *model.Job, progress ProgressReporter) (json.RawMessage, error) {
			err := progress.Report(ctx, 10, "")
			assert.ErrorIs(t, err, ErrJobStopped)
			assert.ErrorIs(t, context.Cause(ctx), ErrJobStopped)
			returned <- err
			return nil, err
		}), nil)

	stop := startRunner(t, r)
	<-returned
	stop()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.Empty(t, jobs.completed)
	assert.Empty(t, jobs.failed)
}

func TestRunner_CancelledChangeStopsHandler(t *testing.T) {
	jobs := newFakeJobs(testJob("job-1"))
	changes := newFakeChanges()
	started := make(chan struct{})
	returned := make(chan struct{})

	r := newTestRunner(t, jobs, HandlerFunc(
		func(ctx context.Context, _ *model.Job, _ ProgressReporter) (json.RawMessage, error) {
			close(started)
			<-ctx.Done()
			close(returned)
			return nil, ctx.Err()
		}), changes)

	stop := startRunner(t, r)
	<-started
	changes.ch <- model.JobChange{JobID: "job-1", Type: model.JobTypeAIAnalysis, Status: model.JobStatusCancelled}
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not stopped")
	}
	stop()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.Empty(t, jobs.completed)
	assert.Empty(t, jobs.failed)
}

func TestRunner_PendingChangeWakesIdleWorker(t *testing.T) {
	jobs := newFakeJobs()
	changes := newFakeChanges()
	r := newTestRunner(t, jobs, HandlerFunc(
		func(context.Context, *model.Job, ProgressReporter) (json.RawMessage, error) {
			return nil, nil
		}), changes)

	stop := startRunner(t, r)
	defer stop()

	// Give workers time to go idle on the hour-long poll.
	time.Sleep(20 * time.Millisecond)
	jobs.enqueue(testJob("job-2"))
	changes.ch <- model.JobChange{JobID: "job-2", Type: model.JobTypeAIAnalysis, Status: model.JobStatusPending}

	assert.Equal(t, "job-2", waitRecorded(t, jobs))
}

func TestFailRequestFor(t *testing.T) {
	req := failRequestFor("job-1", errors.New("boom"))
	assert.Equal(t, model.JobErrorCodeDefault, req.Code)
	assert.Equal(t, "boom", req.Message)
	assert.JSONEq(t, `{"error_class":"errors_errorstring"}`, string(req.Details))

	wrapped := failRequestFor("job-1", errors.Join(errors.New("ctx"), &Failure{Code: "X", Message: "m"}))
	assert.Equal(t, "X", wrapped.Code)
}
