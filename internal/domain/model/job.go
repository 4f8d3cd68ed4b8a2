// Package model defines the core data types shared by the job queue, webhook ledger and TTL cache.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the kind of asynchronous work a job carries.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypePlatformSync pulls content from a connected creator platform.
	JobTypePlatformSync JobType = "platform_sync"
	// JobTypeAIAnalysis tags and analyses ingested content.
	JobTypeAIAnalysis JobType = "ai_analysis"
	// JobTypeSEOSubmission submits public pages to search engines.
	JobTypeSEOSubmission JobType = "seo_submission"
	// JobTypeQuotaReset resets per-plan usage counters.
	JobTypeQuotaReset JobType = "quota_reset"
	// JobTypeTokenRefresh refreshes platform OAuth tokens before they lapse.
	JobTypeTokenRefresh JobType = "token_refresh"

	// JobStatusPending indicates a job is waiting to be claimed.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a worker has claimed the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job has finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job failed; it may still be retried by the sweeper.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the owner cancelled the job.
	JobStatusCancelled JobStatus = "cancelled"
)

// Priority bounds. Higher is more urgent.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// Error codes recorded on failed jobs.
const (
	// JobErrorCodeDefault is used when a worker reports a failure without a code.
	JobErrorCodeDefault = "JOB_ERROR"
	// JobErrorCodeExpired is assigned by the sweeper to pending jobs past expires_at.
	JobErrorCodeExpired = "EXPIRED"
	// JobErrorCodeTimeout is assigned by the sweeper to jobs stuck in processing.
	JobErrorCodeTimeout = "TIMEOUT"
)

var (
	// ErrNoJobsAvailable is returned when no pending job could be claimed.
	ErrNoJobsAvailable = errors.New("no jobs available")
	// ErrJobNotFound is returned when a job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrQuotaExceeded is returned when an owner already has the maximum number of active jobs.
	ErrQuotaExceeded = errors.New("active job quota exceeded")
)

// AllJobTypes returns every known job type.
func AllJobTypes() []JobType {
	return []JobType{
		JobTypePlatformSync,
		JobTypeAIAnalysis,
		JobTypeSEOSubmission,
		JobTypeQuotaReset,
		JobTypeTokenRefresh,
	}
}

// Valid returns true if the JobType is known.
func (t JobType) Valid() bool {
	switch t {
	case JobTypePlatformSync, JobTypeAIAnalysis, JobTypeSEOSubmission, JobTypeQuotaReset, JobTypeTokenRefresh:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env and JSON parsing.
// Hyphenated spellings such as "platform-sync" are accepted.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(strings.ReplaceAll(v, "-", "_"))
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// Valid returns true if the JobStatus is known.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether the status counts against the per-owner quota.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// Finished reports whether completed_at must be set for this status.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents a unit of asynchronous work and its lifecycle state.
type Job struct {
	ID              string          `json:"id"                         db:"id"`
	OwnerID         string          `json:"owner_id"                   db:"owner_id"`
	Type            JobType         `json:"type"                       db:"type"`
	Priority        int             `json:"priority"                   db:"priority"`
	Parameters      json.RawMessage `json:"parameters"                 db:"parameters"`
	Status          JobStatus       `json:"status"                     db:"status"`
	ProgressPercent int             `json:"progress_percent"           db:"progress_percent"`
	ProgressMessage *string         `json:"progress_message,omitempty" db:"progress_message"`
	StartedAt       *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	ScheduledFor    *time.Time      `json:"scheduled_for,omitempty"    db:"scheduled_for"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"       db:"expires_at"`
	WorkerID        *string         `json:"worker_id,omitempty"        db:"worker_id"`
	ErrorCode       *string         `json:"error_code,omitempty"       db:"error_code"`
	ErrorMessage    *string         `json:"error_message,omitempty"    db:"error_message"`
	ErrorDetails    json.RawMessage `json:"error_details,omitempty"    db:"error_details"`
	RetryCount      int             `json:"retry_count"                db:"retry_count"`
	MaxRetries      int             `json:"max_retries"                db:"max_retries"`
	Result          json.RawMessage `json:"result,omitempty"           db:"result"`
	CreatedAt       time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"                 db:"updated_at"`
}

// RetriesRemaining reports whether the sweeper may still move a failed job back to pending.
func (j *Job) RetriesRemaining() bool {
	return j.RetryCount < j.MaxRetries
}

// SubmitJobRequest represents a request to enqueue a new job.
type SubmitJobRequest struct {
	OwnerID      string          `json:"-"`
	Type         JobType         `json:"type"`
	Parameters   json.RawMessage `json:"parameters"`
	Priority     int             `json:"priority,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	MaxRetries   *int            `json:"max_retries,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

// Validate validates the SubmitJobRequest fields. Defaults must be applied beforehand.
func (r *SubmitJobRequest) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return errors.New("owner is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid job type: %q", r.Type)
	}
	if r.Priority < MinPriority || r.Priority > MaxPriority {
		return fmt.Errorf("priority must be between %d and %d", MinPriority, MaxPriority)
	}
	if err := ValidateDocument(r.Parameters); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	return nil
}

// SubmitResult is returned by Submit and SubmitOrReuse.
type SubmitResult struct {
	JobID          string    `json:"job_id"`
	IsNew          bool      `json:"is_new"`
	ExistingStatus JobStatus `json:"existing_status,omitempty"`
}

// ProgressUpdate reports progress on a processing job.
type ProgressUpdate struct {
	JobID   string  `json:"-"`
	Percent int     `json:"percent"`
	Message *string `json:"message,omitempty"`
}

// Validate validates the ProgressUpdate fields.
func (p *ProgressUpdate) Validate() error {
	if strings.TrimSpace(p.JobID) == "" {
		return errors.New("job id is required")
	}
	if p.Percent < 0 || p.Percent > 100 {
		return errors.New("percent must be between 0 and 100")
	}
	return nil
}

// FailRequest records a worker-reported failure.
type FailRequest struct {
	JobID   string          `json:"-"`
	Code    string          `json:"error_code,omitempty"`
	Message string          `json:"error_message"`
	Details json.RawMessage `json:"error_details,omitempty"`
}

// Normalize applies the default error code.
func (f *FailRequest) Normalize() {
	f.Code = strings.TrimSpace(f.Code)
	if f.Code == "" {
		f.Code = JobErrorCodeDefault
	}
}

// ValidateDocument checks that raw is a JSON object or array.
// Parameters and results are opaque but must be structured so jsonb equality is meaningful.
func ValidateDocument(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return errors.New("document is required")
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return errors.New("document must be a JSON object or array")
	}
	if !json.Valid(trimmed) {
		return errors.New("document is not valid JSON")
	}
	return nil
}

// ValidateOptionalDocument is ValidateDocument for nullable documents.
func ValidateOptionalDocument(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if !json.Valid(trimmed) {
		return errors.New("document is not valid JSON")
	}
	return nil
}
