package data

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job lifecycle management.
type JobRepo struct {
	DB           *sql.DB
	cfg          RepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := defaultTimeProvider(cfg.TimeProvider)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       logger.With("component", "job_repo"),
	}
}

const jobColumns = `
  id,
  owner_id,
  type,
  priority,
  parameters,
  status,
  progress_percent,
  progress_message,
  started_at,
  completed_at,
  scheduled_for,
  expires_at,
  worker_id,
  error_code,
  error_message,
  error_details,
  retry_count,
  max_retries,
  result,
  created_at,
  updated_at
`

// Advisory lock namespaces.
const (
	advisoryLockSubmitMajor  int32 = 2100
	advisoryLockSweeperMajor int32 = 2000
	advisoryLockWebhookMajor int32 = 2200
)

// execQueryer is satisfied by *sql.DB and *sql.Tx.
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// validJobID reports whether id can be compared to the uuid column without a cast error.
func validJobID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}

// statusArg renders the precondition statuses for an event as a text[] argument.
func statusArg(ev domainjob.Event) []string {
	pre := domainjob.Preconditions(ev)
	out := make([]string, len(pre))
	for i, s := range pre {
		out[i] = string(s)
	}
	return out
}
