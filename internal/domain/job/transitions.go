// Package job holds the job lifecycle rules shared by the repositories, services and workers.
package job

import (
	"fmt"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// Event is a lifecycle event that may move a job between statuses.
type Event string

const (
	EventClaim    Event = "claim"
	EventProgress Event = "progress"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
	EventCancel   Event = "cancel"
	EventRetry    Event = "retry"
	EventExpire   Event = "expire"
	EventTimeout  Event = "timeout"
)

type transition struct {
	from []model.JobStatus
	to   model.JobStatus
}

var transitions = map[Event]transition{
	EventClaim:    {from: []model.JobStatus{model.JobStatusPending}, to: model.JobStatusProcessing},
	EventProgress: {from: []model.JobStatus{model.JobStatusProcessing}, to: model.JobStatusProcessing},
	EventComplete: {from: []model.JobStatus{model.JobStatusProcessing}, to: model.JobStatusCompleted},
	EventFail:     {from: []model.JobStatus{model.JobStatusProcessing}, to: model.JobStatusFailed},
	EventCancel: {
		from: []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing},
		to:   model.JobStatusCancelled,
	},
	EventRetry:   {from: []model.JobStatus{model.JobStatusFailed}, to: model.JobStatusPending},
	EventExpire:  {from: []model.JobStatus{model.JobStatusPending}, to: model.JobStatusFailed},
	EventTimeout: {from: []model.JobStatus{model.JobStatusProcessing}, to: model.JobStatusFailed},
}

// AllEvents returns every lifecycle event.
func AllEvents() []Event {
	return []Event{EventClaim, EventProgress, EventComplete, EventFail, EventCancel, EventRetry, EventExpire, EventTimeout}
}

// Preconditions returns the statuses a job must be in for the event to apply.
// Repositories use it to build the WHERE clause of the conditional update.
func Preconditions(ev Event) []model.JobStatus {
	t, ok := transitions[ev]
	if !ok {
		return nil
	}
	out := make([]model.JobStatus, len(t.from))
	copy(out, t.from)
	return out
}

// Next returns the status reached by applying ev to a job in status from.
func Next(from model.JobStatus, ev Event) (model.JobStatus, error) {
	t, ok := transitions[ev]
	if !ok {
		return "", fmt.Errorf("unknown job event %q", ev)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("job event %q not allowed from status %q", ev, from)
}

// CanApply reports whether ev is allowed from status from.
func CanApply(from model.JobStatus, ev Event) bool {
	_, err := Next(from, ev)
	return err == nil
}

// IsTerminal reports whether no further transition can occur without owner action.
// A failed job is terminal only once its retries are exhausted.
func IsTerminal(j *model.Job) bool {
	switch j.Status {
	case model.JobStatusCompleted, model.JobStatusCancelled:
		return true
	case model.JobStatusFailed:
		return !j.RetriesRemaining()
	default:
		return false
	}
}
