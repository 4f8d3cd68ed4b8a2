package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creatorhub/jobcore/internal/core"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/observability/metrics"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// claimRounds bounds how many times ClaimNext reselects candidates after losing every race.
const claimRounds = 3

// JobServiceConfig holds submission defaults and limits.
type JobServiceConfig struct {
	MaxActivePerOwner int
	DefaultPriority   int
	DefaultMaxRetries int
	DefaultTTL        time.Duration
	DedupeWindow      time.Duration
	ClaimCandidates   int
	// Now overrides the clock used for expiry and dedupe windows.
	Now func() time.Time
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo    core.JobRepository    // Required: job repository
	Logs    core.JobLogRepository // Required: job log repository
	Config  JobServiceConfig      // Optional: zero values fall back to defaults
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink
}

// JobService implements the job lifecycle on top of conditional repository updates.
//
// Lost races (a claim taken by another worker, progress on a cancelled job) are reported as
// false with a nil error. Errors are reserved for malformed input and infrastructure failures.
type JobService struct {
	repo    core.JobRepository
	logs    core.JobLogRepository
	cfg     JobServiceConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Logs == nil {
		return nil, errors.New("JobLogRepository is required")
	}

	cfg := opts.Config
	if cfg.DefaultPriority < model.MinPriority || cfg.DefaultPriority > model.MaxPriority {
		cfg.DefaultPriority = model.DefaultPriority
	}
	if cfg.DefaultMaxRetries < 0 {
		cfg.DefaultMaxRetries = 0
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = 5 * time.Minute
	}
	if cfg.ClaimCandidates <= 0 {
		cfg.ClaimCandidates = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
		logger.Debug("JobService initialized",
			"max_active_per_owner", cfg.MaxActivePerOwner,
			"default_ttl", cfg.DefaultTTL,
			"dedupe_window", cfg.DedupeWindow,
		)
	}

	return &JobService{
		repo:    opts.Repo,
		logs:    opts.Logs,
		cfg:     cfg,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

func (s *JobService) applyDefaults(req *model.SubmitJobRequest) {
	if req.Priority == 0 {
		req.Priority = s.cfg.DefaultPriority
	}
	if req.MaxRetries == nil {
		n := s.cfg.DefaultMaxRetries
		req.MaxRetries = &n
	}
}

func (s *JobService) defaultExpiry() *time.Time {
	if s.cfg.DefaultTTL <= 0 {
		return nil
	}
	at := s.cfg.Now().UTC().Add(s.cfg.DefaultTTL)
	return &at
}

// Submit enqueues a new pending job after enforcing the per-owner active job cap.
func (s *JobService) Submit(ctx context.Context, req *model.SubmitJobRequest) (*model.SubmitResult, error) {
	if req == nil {
		return nil, apperrors.Validation("job request is required")
	}
	s.applyDefaults(req)
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	job, err := s.repo.Submit(ctx, core.SubmitJobParams{
		Req:       req,
		MaxActive: s.cfg.MaxActivePerOwner,
		ExpiresAt: s.defaultExpiry(),
	})
	if err != nil {
		s.emitTransition(req.Type, "submit", metrics.ResultError, err)
		if errors.Is(err, model.ErrQuotaExceeded) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeQuotaExceeded,
				fmt.Sprintf("owner %s has reached the active job limit", req.OwnerID))
		}
		return nil, fmt.Errorf("submit job for owner %s: %w", req.OwnerID, err)
	}

	s.emitTransition(job.Type, "submit", metrics.ResultSuccess, nil)
	if s.logger != nil {
		s.logger.DebugContext(ctx, "job submitted",
			"id", job.ID,
			"owner_id", job.OwnerID,
			"type", job.Type,
			"priority", job.Priority,
		)
	}
	return &model.SubmitResult{JobID: job.ID, IsNew: true}, nil
}

// SubmitOrReuse returns an active job with equal parameters created within the window
// instead of enqueueing a duplicate. A window <= 0 uses the configured default.
// Two concurrent calls may both miss and both insert.
func (s *JobService) SubmitOrReuse(
	ctx context.Context,
	req *model.SubmitJobRequest,
	window time.Duration,
) (*model.SubmitResult, error) {
	if req == nil {
		return nil, apperrors.Validation("job request is required")
	}
	s.applyDefaults(req)
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	if window <= 0 {
		window = s.cfg.DedupeWindow
	}

	existing, err := s.repo.FindActiveDuplicate(ctx, model.DuplicateQuery{
		OwnerID:    req.OwnerID,
		Type:       req.Type,
		Parameters: req.Parameters,
		Since:      s.cfg.Now().UTC().Add(-window),
	})
	if err != nil {
		return nil, fmt.Errorf("find duplicate job for owner %s: %w", req.OwnerID, err)
	}
	if existing != nil {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "reusing active job", "id", existing.ID, "status", existing.Status)
		}
		s.emitTransition(req.Type, "reuse", metrics.ResultNoop, nil)
		return &model.SubmitResult{JobID: existing.ID, IsNew: false, ExistingStatus: existing.Status}, nil
	}

	return s.Submit(ctx, req)
}

// Claim moves a pending job to processing for workerID. It returns false when the job
// is no longer pending.
func (s *JobService) Claim(ctx context.Context, jobID, workerID string) (bool, error) {
	if strings.TrimSpace(workerID) == "" {
		return false, apperrors.ValidationField("worker_id", "worker id is required")
	}
	ok, err := s.repo.Claim(ctx, jobID, workerID)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", jobID, err)
	}
	s.emitTransition("", string(domainjob.EventClaim), resultFor(ok), nil)
	return ok, nil
}

// ClaimNext claims the highest priority claimable job of the given types (all types when empty).
// Candidates are selected without locks; each is then claimed conditionally and a lost race
// moves on to the next candidate. After claimRounds rounds without a win it returns
// model.ErrNoJobsAvailable.
func (s *JobService) ClaimNext(ctx context.Context, workerID string, types []model.JobType) (*model.Job, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, apperrors.ValidationField("worker_id", "worker id is required")
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, apperrors.ValidationField("types", fmt.Sprintf("invalid job type: %q", t))
		}
	}

	for round := 0; round < claimRounds; round++ {
		ids, err := s.repo.ClaimCandidates(ctx, model.ClaimCandidatesQuery{
			Types: types,
			Limit: s.cfg.ClaimCandidates,
		})
		if err != nil {
			return nil, fmt.Errorf("select claim candidates: %w", err)
		}
		if len(ids) == 0 {
			return nil, model.ErrNoJobsAvailable
		}

		for _, id := range ids {
			job, err := s.repo.ClaimJob(ctx, id, workerID)
			if err != nil {
				return nil, fmt.Errorf("claim job %s: %w", id, err)
			}
			if job == nil {
				continue
			}
			s.emitTransition(job.Type, string(domainjob.EventClaim), metrics.ResultSuccess, nil)
			if s.logger != nil {
				s.logger.DebugContext(ctx, "job claimed",
					"id", job.ID,
					"type", job.Type,
					"worker_id", workerID,
					"round", round+1,
				)
			}
			return job, nil
		}
	}
	return nil, model.ErrNoJobsAvailable
}

// ReportProgress records progress on a processing job.
func (s *JobService) ReportProgress(ctx context.Context, upd model.ProgressUpdate) (bool, error) {
	if err := upd.Validate(); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	ok, err := s.repo.ReportProgress(ctx, upd)
	if err != nil {
		return false, fmt.Errorf("report progress on job %s: %w", upd.JobID, err)
	}
	return ok, nil
}

// Complete marks a processing job completed with an optional result document.
func (s *JobService) Complete(ctx context.Context, jobID string, result json.RawMessage) (bool, error) {
	if err := model.ValidateOptionalDocument(result); err != nil {
		return false, apperrors.ValidationField("result", err.Error())
	}
	ok, err := s.repo.Complete(ctx, jobID, result)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", jobID, err)
	}
	s.emitTransition("", string(domainjob.EventComplete), resultFor(ok), nil)
	return ok, nil
}

// Fail marks a processing job failed. An empty code becomes model.JobErrorCodeDefault.
func (s *JobService) Fail(ctx context.Context, req model.FailRequest) (bool, error) {
	req.Normalize()
	if err := model.ValidateOptionalDocument(req.Details); err != nil {
		return false, apperrors.ValidationField("error_details", err.Error())
	}
	ok, err := s.repo.Fail(ctx, req)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", req.JobID, err)
	}
	s.emitTransition("", string(domainjob.EventFail), resultFor(ok), nil)
	if ok && s.logger != nil {
		s.logger.InfoContext(ctx, "job failed", "id", req.JobID, "error_code", req.Code)
	}
	return ok, nil
}

// Cancel cancels a pending or processing job owned by ownerID.
func (s *JobService) Cancel(ctx context.Context, jobID, ownerID string) (bool, error) {
	ok, err := s.repo.Cancel(ctx, jobID, ownerID)
	if err != nil {
		return false, fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	s.emitTransition("", string(domainjob.EventCancel), resultFor(ok), nil)
	return ok, nil
}

// GetJob returns a single job.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "job not found")
		}
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return job, nil
}

// ListJobs returns a page of the owner's jobs, newest first.
func (s *JobService) ListJobs(ctx context.Context, opts *model.JobListOptions) (*model.JobPage, error) {
	if opts == nil || strings.TrimSpace(opts.OwnerID) == "" {
		return nil, apperrors.Validation("owner is required")
	}
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status: %q", *opts.Status))
	}
	if opts.Type != nil && !opts.Type.Valid() {
		return nil, apperrors.ValidationField("type", fmt.Sprintf("invalid job type: %q", *opts.Type))
	}
	page, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs for owner %s: %w", opts.OwnerID, err)
	}
	return page, nil
}

// AppendLog adds a log entry to a job in any status.
func (s *JobService) AppendLog(ctx context.Context, req *model.AppendLogRequest) (*model.JobLogEntry, error) {
	if req == nil {
		return nil, apperrors.Validation("log entry is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	entry, err := s.logs.AppendLog(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "job not found")
		}
		return nil, fmt.Errorf("append log to job %s: %w", req.JobID, err)
	}
	return entry, nil
}

// ListLogs returns a job's log entries oldest first.
func (s *JobService) ListLogs(ctx context.Context, jobID string, limit int) ([]*model.JobLogEntry, error) {
	entries, err := s.logs.ListLogs(ctx, jobID, limit)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "job not found")
		}
		return nil, fmt.Errorf("list logs for job %s: %w", jobID, err)
	}
	return entries, nil
}

func (s *JobService) emitTransition(jobType model.JobType, transition, result string, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(jobType),
		Transition: transition,
		Result:     result,
		Err:        err,
	})
}

func resultFor(ok bool) string {
	if ok {
		return metrics.ResultSuccess
	}
	return metrics.ResultNoop
}
