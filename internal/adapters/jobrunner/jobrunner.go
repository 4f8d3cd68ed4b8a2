// Package jobrunner runs in-process workers that claim jobs and drive them through their lifecycle.
package jobrunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	obserrors "github.com/creatorhub/jobcore/internal/observability/errors"
	"github.com/creatorhub/jobcore/internal/observability/metrics"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// Error codes recorded by the runner itself.
const (
	ErrorCodeUnsupportedType = "UNSUPPORTED_JOB_TYPE"
	ErrorCodeHandlerPanic    = "HANDLER_PANIC"
	ErrorCodeWorkerShutdown  = "WORKER_SHUTDOWN"
)

// ErrJobStopped is the cancellation cause when a job left processing while its handler ran,
// e.g. the owner cancelled it or the sweeper timed it out.
var ErrJobStopped = errors.New("job is no longer processing")

const recordTimeout = 30 * time.Second

// JobAPI is the slice of the job lifecycle a worker needs.
type JobAPI interface {
	ClaimNext(ctx context.Context, workerID string, types []model.JobType) (*model.Job, error)
	ReportProgress(ctx context.Context, upd model.ProgressUpdate) (bool, error)
	Complete(ctx context.Context, jobID string, result json.RawMessage) (bool, error)
	Fail(ctx context.Context, req model.FailRequest) (bool, error)
	AppendLog(ctx context.Context, req *model.AppendLogRequest) (*model.JobLogEntry, error)
}

// Handler executes one claimed job and returns its result document.
// Returning a *Failure controls the recorded error code; any other error is recorded as JOB_ERROR.
type Handler interface {
	Handle(ctx context.Context, job *model.Job, progress ProgressReporter) (json.RawMessage, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *model.Job, progress ProgressReporter) (json.RawMessage, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, job *model.Job, progress ProgressReporter) (json.RawMessage, error) {
	return f(ctx, job, progress)
}

// Failure is a handler error carrying an explicit error code and details.
type Failure struct {
	Code    string
	Message string
	Details json.RawMessage
}

func (f *Failure) Error() string {
	if f.Code == "" {
		return f.Message
	}
	return f.Code + ": " + f.Message
}

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	Jobs     JobAPI                     // Required
	Handlers map[model.JobType]Handler  // Required: the runner only claims these types
	Changes  domainjob.ChangeSubscriber // Optional: wakes idle workers and stops cancelled jobs early

	Concurrency  int           // number of worker goroutines; defaults to 1
	PollInterval time.Duration // idle re-check interval; defaults to 5s
	IDPrefix     string        // worker id prefix; defaults to "jobcore"

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner pulls jobs and executes them using registered handlers.
type Runner struct {
	jobs     JobAPI
	handlers map[model.JobType]Handler
	types    []model.JobType
	changes  domainjob.ChangeSubscriber
	workers  int
	poll     time.Duration
	idPrefix string
	logger   *slog.Logger
	metrics  statsd.Sink

	wake chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

// NewRunner constructs a job runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("jobs API is required")
	}
	if len(opts.Handlers) == 0 {
		return nil, errors.New("at least one handler is required")
	}

	types := make([]model.JobType, 0, len(opts.Handlers))
	for _, t := range model.AllJobTypes() {
		if opts.Handlers[t] != nil {
			types = append(types, t)
		}
	}
	if len(types) != len(opts.Handlers) {
		return nil, errors.New("handlers registered for unknown job types")
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}
	prefix := opts.IDPrefix
	if prefix == "" {
		prefix = "jobcore"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		jobs:     opts.Jobs,
		handlers: opts.Handlers,
		types:    types,
		changes:  opts.Changes,
		workers:  workers,
		poll:     poll,
		idPrefix: prefix,
		logger:   logger.With("component", "job_runner"),
		metrics:  opts.Metrics,
		wake:     make(chan struct{}, workers),
		running:  make(map[string]context.CancelCauseFunc),
	}, nil
}

// Types returns the job types this runner claims.
func (r *Runner) Types() []model.JobType { return append([]model.JobType(nil), r.types...) }

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner", "types", r.types, "workers", r.workers, "poll", r.poll)

	g, ctx := errgroup.WithContext(ctx)
	if r.changes != nil {
		g.Go(func() error { return r.watchChanges(ctx) })
	}
	base := r.idPrefix + "-" + uuid.NewString()[:8]
	for i := range r.workers {
		workerID := fmt.Sprintf("%s-%d", base, i)
		g.Go(func() error { return r.workerLoop(ctx, workerID) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchChanges turns pending snapshots into wakeups and stops handlers of jobs that left processing.
func (r *Runner) watchChanges(ctx context.Context) error {
	unsub, ch := r.changes.SubscribeAll()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-ch:
			if !ok {
				return nil
			}
			switch change.Status {
			case model.JobStatusPending:
				if r.handlers[change.Type] != nil {
					r.signalWake()
				}
			case model.JobStatusProcessing:
			default:
				r.stopRunning(change.JobID)
			}
		}
	}
}

func (r *Runner) signalWake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) workerLoop(ctx context.Context, workerID string) error {
	logger := r.logger.With("worker_id", workerID)
	for ctx.Err() == nil {
		job, err := r.jobs.ClaimNext(ctx, workerID, r.types)
		switch {
		case err == nil:
			r.processJob(ctx, logger, job)
		case errors.Is(err, model.ErrNoJobsAvailable):
			r.waitForWork(ctx)
		case ctx.Err() != nil:
			return nil
		default:
			logger.ErrorContext(ctx, "claim next failed", "error", err)
			r.waitForWork(ctx)
		}
	}
	return nil
}

func (r *Runner) waitForWork(ctx context.Context) {
	timer := time.NewTimer(r.poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-r.wake:
	case <-timer.C:
	}
}

func (r *Runner) processJob(ctx context.Context, logger *slog.Logger, job *model.Job) {
	start := time.Now()
	logger = logger.With("job_id", job.ID, "job_type", job.Type)

	h := r.handlers[job.Type]
	if h == nil {
		r.fail(ctx, logger, job, &Failure{
			Code:    ErrorCodeUnsupportedType,
			Message: fmt.Sprintf("no handler for job type %s", job.Type),
		}, start)
		return
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	r.track(job.ID, cancel)
	defer r.untrack(job.ID)
	defer cancel(nil)

	reporter := &progressReporter{jobs: r.jobs, jobID: job.ID, stop: cancel}
	result, err := safeHandle(jobCtx, h, job, reporter)

	// Outcomes are recorded even when the runner is shutting down.
	recordCtx, done := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer done()

	switch {
	case errors.Is(context.Cause(jobCtx), ErrJobStopped):
		logger.InfoContext(ctx, "job stopped while running")
		r.emit(job, domainjob.EventComplete, metrics.ResultNoop, start, nil)
	case err == nil:
		ok, cerr := r.jobs.Complete(recordCtx, job.ID, result)
		if cerr != nil {
			logger.ErrorContext(ctx, "complete job error", "error", cerr)
			r.emit(job, domainjob.EventComplete, metrics.ResultError, start, cerr)
			return
		}
		if !ok {
			logger.WarnContext(ctx, "job left processing before completion was recorded")
		}
		r.emit(job, domainjob.EventComplete, resultFor(ok), start, nil)
	case ctx.Err() != nil:
		// Failing the job lets the sweeper retry it instead of waiting out the stuck timeout.
		r.fail(recordCtx, logger, job, &Failure{
			Code:    ErrorCodeWorkerShutdown,
			Message: "worker stopped before the job finished",
		}, start)
	default:
		r.fail(recordCtx, logger, job, err, start)
	}
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *model.Job, cause error, start time.Time) {
	req := failRequestFor(job.ID, cause)
	ok, err := r.jobs.Fail(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "fail job error", "error", err, "original_error", cause)
		r.emit(job, domainjob.EventFail, metrics.ResultError, start, err)
		return
	}
	logger.WarnContext(ctx, "job failed", "error_code", req.Code, "error", cause, "recorded", ok)
	r.emit(job, domainjob.EventFail, resultFor(ok), start, nil)
}

func (r *Runner) emit(job *model.Job, ev domainjob.Event, result string, start time.Time, err error) {
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		JobType:    string(job.Type),
		Transition: string(ev),
		Result:     result,
		Duration:   time.Since(start),
		Err:        err,
	})
}

func (r *Runner) track(jobID string, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	r.running[jobID] = cancel
	r.mu.Unlock()
}

func (r *Runner) untrack(jobID string) {
	r.mu.Lock()
	delete(r.running, jobID)
	r.mu.Unlock()
}

func (r *Runner) stopRunning(jobID string) {
	r.mu.Lock()
	cancel := r.running[jobID]
	r.mu.Unlock()
	if cancel != nil {
		cancel(ErrJobStopped)
	}
}

func safeHandle(
	ctx context.Context,
	h Handler,
	job *model.Job,
	progress ProgressReporter,
) (result json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Failure{Code: ErrorCodeHandlerPanic, Message: fmt.Sprint(p)}
		}
	}()
	return h.Handle(ctx, job, progress)
}

// failRequestFor maps a handler error onto a FailRequest.
func failRequestFor(jobID string, err error) model.FailRequest {
	var f *Failure
	if errors.As(err, &f) {
		return model.FailRequest{JobID: jobID, Code: f.Code, Message: f.Message, Details: f.Details}
	}
	details, _ := json.Marshal(map[string]string{"error_class": obserrors.Classify(err)})
	return model.FailRequest{JobID: jobID, Code: model.JobErrorCodeDefault, Message: err.Error(), Details: details}
}

func resultFor(ok bool) string {
	if ok {
		return metrics.ResultSuccess
	}
	return metrics.ResultNoop
}
