package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobLogLevel is the severity of a job log entry.
type JobLogLevel string

const (
	JobLogLevelDebug   JobLogLevel = "debug"
	JobLogLevelInfo    JobLogLevel = "info"
	JobLogLevelWarning JobLogLevel = "warning"
	JobLogLevelError   JobLogLevel = "error"
)

// Valid returns true if the level is known.
func (l JobLogLevel) Valid() bool {
	switch l {
	case JobLogLevelDebug, JobLogLevelInfo, JobLogLevelWarning, JobLogLevelError:
		return true
	default:
		return false
	}
}

// JobLogEntry is an append-only log line attached to a job.
type JobLogEntry struct {
	ID        int64           `json:"id"                 db:"id"`
	JobID     string          `json:"job_id"             db:"job_id"`
	Level     JobLogLevel     `json:"level"              db:"level"`
	Message   string          `json:"message"            db:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"created_at"         db:"created_at"`
}

// AppendLogRequest appends a log entry to a job.
type AppendLogRequest struct {
	JobID    string          `json:"-"`
	Level    JobLogLevel     `json:"level"`
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Validate validates the AppendLogRequest fields.
func (r *AppendLogRequest) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job id is required")
	}
	if r.Level == "" {
		r.Level = JobLogLevelInfo
	}
	if !r.Level.Valid() {
		return fmt.Errorf("invalid log level: %q", r.Level)
	}
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	return ValidateOptionalDocument(r.Metadata)
}
