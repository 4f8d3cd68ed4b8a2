package model

import (
	"encoding/json"
	"time"
)

// OwnerTopicPrefix prefixes every owner-scoped change topic.
const OwnerTopicPrefix = "jobs.owner."

// OwnerTopic returns the change topic observers subscribe to for an owner.
func OwnerTopic(ownerID string) string {
	return OwnerTopicPrefix + ownerID
}

// JobChange is the snapshot published whenever a job's status, progress or result changes.
// It is a convenience for live observers; the jobs table remains the system of record.
type JobChange struct {
	Topic           string          `json:"topic"`
	JobID           string          `json:"job_id"`
	OwnerID         string          `json:"owner_id"`
	Type            JobType         `json:"type"`
	Status          JobStatus       `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	ProgressMessage *string         `json:"progress_message,omitempty"`
	ErrorCode       *string         `json:"error_code,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	ResultTruncated bool            `json:"result_truncated,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ChangeFromJob builds a snapshot from the current job row.
func ChangeFromJob(j *Job) JobChange {
	return JobChange{
		Topic:           OwnerTopic(j.OwnerID),
		JobID:           j.ID,
		OwnerID:         j.OwnerID,
		Type:            j.Type,
		Status:          j.Status,
		ProgressPercent: j.ProgressPercent,
		ProgressMessage: j.ProgressMessage,
		ErrorCode:       j.ErrorCode,
		ErrorMessage:    j.ErrorMessage,
		Result:          j.Result,
		UpdatedAt:       j.UpdatedAt,
	}
}
