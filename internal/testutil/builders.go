// Package testutil provides testing utilities and helpers for the jobcore queue.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// DefaultTestOwner is the owner used by builders unless overridden.
const DefaultTestOwner = "creator-test"

// JobRequestBuilder provides a fluent interface for building SubmitJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.SubmitJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.SubmitJobRequest{
			OwnerID:    DefaultTestOwner,
			Type:       model.JobTypePlatformSync,
			Priority:   model.DefaultPriority,
			Parameters: json.RawMessage(`{"platform":"youtube"}`),
		},
	}
}

// WithOwner sets the owner.
func (b *JobRequestBuilder) WithOwner(owner string) *JobRequestBuilder {
	b.req.OwnerID = owner
	return b
}

// WithType sets the job type.
func (b *JobRequestBuilder) WithType(jobType model.JobType) *JobRequestBuilder {
	b.req.Type = jobType
	return b
}

// WithPriority sets the job priority.
func (b *JobRequestBuilder) WithPriority(priority int) *JobRequestBuilder {
	b.req.Priority = priority
	return b
}

// WithParameters sets the job parameters from a string.
func (b *JobRequestBuilder) WithParameters(params string) *JobRequestBuilder {
	b.req.Parameters = json.RawMessage(params)
	return b
}

// WithScheduledFor sets the earliest claim time.
func (b *JobRequestBuilder) WithScheduledFor(at time.Time) *JobRequestBuilder {
	b.req.ScheduledFor = &at
	return b
}

// WithExpiresAt sets the expiry.
func (b *JobRequestBuilder) WithExpiresAt(at time.Time) *JobRequestBuilder {
	b.req.ExpiresAt = &at
	return b
}

// WithMaxRetries sets the maximum number of retries.
func (b *JobRequestBuilder) WithMaxRetries(maxRetries int) *JobRequestBuilder {
	b.req.MaxRetries = &maxRetries
	return b
}

// Build returns the constructed SubmitJobRequest.
func (b *JobRequestBuilder) Build() *model.SubmitJobRequest {
	return b.req
}
