package model

import (
	"encoding/json"
	"time"
)

// JobListOptions groups parameters for listing an owner's jobs with optional filters.
type JobListOptions struct {
	OwnerID string
	Status  *JobStatus // Optional filter by status
	Type    *JobType   // Optional filter by type
	Limit   int        // Pagination limit
	Offset  int        // Pagination offset
}

// JobPage is a page of jobs plus the total matching count for pagination.
type JobPage struct {
	Jobs   []*Job `json:"jobs"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// DuplicateQuery locates an active job with structurally equal parameters.
type DuplicateQuery struct {
	OwnerID    string
	Type       JobType
	Parameters json.RawMessage
	Since      time.Time
}

// CachedResultQuery locates a fresh completed job for the result cache.
type CachedResultQuery struct {
	OwnerID    string          `json:"-"`
	Type       JobType         `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
	TTL        time.Duration   `json:"-"`
}

// CachedResult is a result cache lookup outcome.
type CachedResult struct {
	Hit         bool            `json:"hit"`
	JobID       string          `json:"job_id,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Age         time.Duration   `json:"-"`
	AgeSeconds  float64         `json:"age_seconds,omitempty"`
}

// ClaimCandidatesQuery selects pending jobs a worker may try to claim.
type ClaimCandidatesQuery struct {
	Types []JobType
	Limit int
}
