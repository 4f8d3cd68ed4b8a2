package core

import (
	"context"
	"encoding/json"
	"time"

	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// SubmitJobParams groups parameters for JobRepository.Submit.
type SubmitJobParams struct {
	Req *model.SubmitJobRequest
	// MaxActive is the per-owner cap on pending plus processing jobs. Zero disables the check.
	MaxActive int
	// ExpiresAt is applied when the request carries no explicit expiry.
	ExpiresAt *time.Time
}

// JobRepository defines the job lifecycle data operations.
// Every transition is a conditional update; a lost race returns (false, nil).
type JobRepository interface {
	Submit(ctx context.Context, params SubmitJobParams) (*model.Job, error)
	FindActiveDuplicate(ctx context.Context, q model.DuplicateQuery) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ClaimCandidates(ctx context.Context, q model.ClaimCandidatesQuery) ([]string, error)
	Claim(ctx context.Context, id, workerID string) (bool, error)
	// ClaimJob is Claim returning the claimed row; (nil, nil) on a lost race.
	ClaimJob(ctx context.Context, id, workerID string) (*model.Job, error)
	ReportProgress(ctx context.Context, upd model.ProgressUpdate) (bool, error)
	Complete(ctx context.Context, id string, result json.RawMessage) (bool, error)
	Fail(ctx context.Context, req model.FailRequest) (bool, error)
	Cancel(ctx context.Context, id, ownerID string) (bool, error)
	List(ctx context.Context, opts *model.JobListOptions) (*model.JobPage, error)
	FindCachedResult(ctx context.Context, q model.CachedResultQuery) (*model.Job, error)
}

// JobLogRepository defines append-only job log operations.
type JobLogRepository interface {
	AppendLog(ctx context.Context, req *model.AppendLogRequest) (*model.JobLogEntry, error)
	ListLogs(ctx context.Context, jobID string, limit int) ([]*model.JobLogEntry, error)
}

// JobChangeListener streams committed job change snapshots.
type JobChangeListener interface {
	ListenJobChanges(ctx context.Context, handle func(model.JobChange)) error
}

// RetryFailedParams groups parameters for SweeperRepository.RetryFailed.
type RetryFailedParams struct {
	Cooldown  time.Duration
	Backoff   domainjob.LinearBackoff
	BatchSize int
}

// FailStuckParams groups parameters for SweeperRepository.FailStuck.
type FailStuckParams struct {
	Timeout   time.Duration
	BatchSize int
}

// PurgeJobsParams groups parameters for SweeperRepository.PurgeTerminal.
type PurgeJobsParams struct {
	Retention time.Duration
	BatchSize int
}

// SweeperRepository defines the periodic maintenance operations over jobs.
// Each call processes at most BatchSize rows and skips when another sweeper holds the step.
type SweeperRepository interface {
	// RetryFailed moves failed jobs with retries left back to pending with a backoff schedule.
	RetryFailed(ctx context.Context, params RetryFailedParams) ([]string, error)

	// ExpirePending fails pending jobs whose expires_at has passed.
	ExpirePending(ctx context.Context, batchSize int) ([]string, error)

	// FailStuck fails processing jobs started longer ago than the timeout.
	FailStuck(ctx context.Context, params FailStuckParams) ([]string, error)

	// PurgeTerminal deletes terminal, non-retryable jobs older than the retention window.
	PurgeTerminal(ctx context.Context, params PurgeJobsParams) (int64, error)
}

// WebhookRepository defines the idempotency ledger data operations.
type WebhookRepository interface {
	LogEvent(ctx context.Context, req *model.LogEventRequest) (*model.LogEventResult, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, externalID string, processErr error) (*model.WebhookEvent, error)
	RetryEligible(ctx context.Context, q model.WebhookRetryQuery) ([]*model.WebhookEvent, error)
	PurgeProcessed(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TTLCacheRepository is the authoritative store behind the generic TTL cache.
type TTLCacheRepository interface {
	Set(ctx context.Context, req *model.CacheSetRequest) error
	Get(ctx context.Context, category model.CacheCategory, key string) (*model.CacheEntry, error)
	DeletePattern(ctx context.Context, category model.CacheCategory, pattern string) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}
