package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
)

const maxLogPage = 1000

// AppendLog inserts a log entry for a job. It never touches the job row.
func (r *JobRepo) AppendLog(ctx context.Context, req *model.AppendLogRequest) (*model.JobLogEntry, error) {
	if req == nil {
		return nil, errors.New("append log request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !validJobID(req.JobID) {
		return nil, model.ErrJobNotFound
	}

	entry := &model.JobLogEntry{}
	var metadata []byte
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO job_logs (job_id, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING id, job_id, level, message, metadata, created_at
	`, req.JobID, req.Level, req.Message, nullableJSONArg(req.Metadata), nowUTC(r.timeProvider)).Scan(
		&entry.ID, &entry.JobID, &entry.Level, &entry.Message, &metadata, &entry.CreatedAt,
	)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsForeignKey(mapped) {
			return nil, fmt.Errorf("append log: %w", model.ErrJobNotFound)
		}
		return nil, fmt.Errorf("append log: %w", mapped)
	}
	entry.Metadata = cloneNullableJSON(metadata)
	entry.CreatedAt = entry.CreatedAt.UTC()
	return entry, nil
}

// ListLogs returns a job's log entries oldest first.
func (r *JobRepo) ListLogs(ctx context.Context, jobID string, limit int) ([]*model.JobLogEntry, error) {
	if !validJobID(jobID) {
		return nil, model.ErrJobNotFound
	}
	limit, _ = normalizeListPage(limit, 0)
	limit = min(limit, maxLogPage)

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, job_id, level, message, metadata, created_at
		FROM job_logs
		WHERE job_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query job logs: %w", err)
	}
	defer rows.Close()

	out := []*model.JobLogEntry{}
	for rows.Next() {
		e := &model.JobLogEntry{}
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.JobID, &e.Level, &e.Message, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		e.Metadata = cloneNullableJSON(metadata)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
