package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/data/pgxutil"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
)

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	parameters, errorDetails, result             []byte
	progressMessage, workerID, errCode, errMsg   sql.NullString
	startedAt, completedAt, scheduledFor, expiry sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Type,
		&job.Priority,
		&d.parameters,
		&job.Status,
		&job.ProgressPercent,
		&d.progressMessage,
		&d.startedAt,
		&d.completedAt,
		&d.scheduledFor,
		&d.expiry,
		&d.workerID,
		&d.errCode,
		&d.errMsg,
		&d.errorDetails,
		&job.RetryCount,
		&job.MaxRetries,
		&d.result,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.Parameters = cloneJSON(d.parameters)
	job.ErrorDetails = cloneNullableJSON(d.errorDetails)
	job.Result = cloneNullableJSON(d.result)
	job.ProgressMessage = cloneNullableString(d.progressMessage)
	job.WorkerID = cloneNullableString(d.workerID)
	job.ErrorCode = cloneNullableString(d.errCode)
	job.ErrorMessage = cloneNullableString(d.errMsg)
	job.StartedAt = cloneNullableTime(d.startedAt)
	job.CompletedAt = cloneNullableTime(d.completedAt)
	job.ScheduledFor = cloneNullableTime(d.scheduledFor)
	job.ExpiresAt = cloneNullableTime(d.expiry)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}
	return job, rows.Err()
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullableJSONArg(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func nullableTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Submit inserts a pending job after checking the owner's active-job quota.
// A per-owner advisory lock serializes the count and the insert.
func (r *JobRepo) Submit(ctx context.Context, params core.SubmitJobParams) (*model.Job, error) {
	req := params.Req
	if req == nil {
		return nil, errors.New("submit job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxRetries := 3
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	expiresAt := req.ExpiresAt
	if expiresAt == nil {
		expiresAt = params.ExpiresAt
	}

	var job *model.Job
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if params.MaxActive > 0 {
				if err := r.checkQuotaInTx(ctx, tx, req.OwnerID, params.MaxActive); err != nil {
					return err
				}
			}

			now := nowUTC(r.timeProvider)
			row := tx.QueryRowContext(ctx, `
				INSERT INTO jobs (owner_id, type, priority, parameters, status, scheduled_for, expires_at, max_retries, created_at, updated_at)
				VALUES ($1, $2, $3, $4::jsonb, 'pending', $5, $6, $7, $8, $8)
				RETURNING `+jobColumns,
				req.OwnerID, req.Type, req.Priority, string(req.Parameters),
				nullableTimeArg(req.ScheduledFor), nullableTimeArg(expiresAt), maxRetries, now,
			)
			j, err := scanJobFromRow(row)
			if err != nil {
				return fmt.Errorf("insert job: %w", apperrors.MapDBError(err))
			}
			job = j
			return publishJobChange(ctx, tx, j)
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *JobRepo) checkQuotaInTx(ctx context.Context, tx *sql.Tx, ownerID string, maxActive int) error {
	if err := pgxutil.AdvisoryXactLockText(ctx, tx, advisoryLockSubmitMajor, ownerID); err != nil {
		return err
	}

	var active int
	if err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM jobs
		WHERE owner_id = $1 AND status IN ('pending', 'processing')
	`, ownerID).Scan(&active); err != nil {
		return fmt.Errorf("count active jobs: %w", err)
	}
	if active >= maxActive {
		return fmt.Errorf("%w: owner has %d active jobs (limit %d)", model.ErrQuotaExceeded, active, maxActive)
	}
	return nil
}

// FindActiveDuplicate returns the newest pending or processing job with structurally equal
// parameters created after q.Since, or nil when none exists.
func (r *JobRepo) FindActiveDuplicate(ctx context.Context, q model.DuplicateQuery) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE owner_id = $1
		  AND type = $2
		  AND parameters = $3::jsonb
		  AND status IN ('pending', 'processing')
		  AND created_at > $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, q.OwnerID, q.Type, string(q.Parameters), q.Since.UTC())

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate job: %w", err)
	}
	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if !validJobID(id) {
		return nil, model.ErrJobNotFound
	}

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ClaimCandidates selects pending job ids in dequeue order without locking them.
// Callers must still win the conditional Claim; losing one means trying the next id.
func (r *JobRepo) ClaimCandidates(ctx context.Context, q model.ClaimCandidatesQuery) ([]string, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	types := make([]string, 0, len(q.Types))
	for _, t := range q.Types {
		types = append(types, string(t))
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM jobs
		WHERE status = 'pending'
		  AND (scheduled_for IS NULL OR scheduled_for <= $1)
		  AND (expires_at IS NULL OR expires_at > $1)
		  AND (cardinality($2::text[]) = 0 OR type::text = ANY($2::text[]))
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT $3
	`, nowUTC(r.timeProvider), types, limit)
	if err != nil {
		return nil, fmt.Errorf("select claim candidates: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan claim candidate: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// transitionParams describes a single conditional update.
type transitionParams struct {
	Event domainjob.Event
	ID    string
	// Set is the SET clause; $1 is the job id, $2 the precondition statuses, $3 the current time.
	Set   string
	Where string
	Args  []any
}

// transition runs a conditional update and publishes the resulting snapshot in the same
// transaction. It returns false when no row matched the preconditions.
func (r *JobRepo) transition(ctx context.Context, p transitionParams) (*model.Job, bool, error) {
	if !validJobID(p.ID) {
		return nil, false, nil
	}

	query := `
		UPDATE jobs
		SET ` + p.Set + `, updated_at = $3
		WHERE id = $1 AND status = ANY($2::text[]::job_status[])` + p.Where + `
		RETURNING ` + jobColumns
	args := append([]any{p.ID, statusArg(p.Event), nowUTC(r.timeProvider)}, p.Args...)

	var job *model.Job
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			j, err := scanJobFromRow(tx.QueryRowContext(ctx, query, args...))
			if err != nil {
				return err
			}
			job = j
			return publishJobChange(ctx, tx, j)
		},
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s job %s: %w", p.Event, p.ID, apperrors.MapDBError(err))
	}
	return job, true, nil
}

// Claim moves a pending job to processing for workerID.
func (r *JobRepo) Claim(ctx context.Context, id, workerID string) (bool, error) {
	job, err := r.ClaimJob(ctx, id, workerID)
	return job != nil, err
}

// ClaimJob moves a pending job to processing and returns the row as claimed.
// It returns (nil, nil) when the job was not pending.
func (r *JobRepo) ClaimJob(ctx context.Context, id, workerID string) (*model.Job, error) {
	if workerID == "" {
		return nil, errors.New("worker id is required")
	}
	job, _, err := r.transition(ctx, transitionParams{
		Event: domainjob.EventClaim,
		ID:    id,
		Set: `status = 'processing',
		      started_at = $3,
		      worker_id = $4,
		      progress_percent = 0,
		      progress_message = NULL`,
		Args: []any{workerID},
	})
	return job, err
}

// ReportProgress updates progress on a processing job.
func (r *JobRepo) ReportProgress(ctx context.Context, upd model.ProgressUpdate) (bool, error) {
	if err := upd.Validate(); err != nil {
		return false, err
	}
	var msg any
	if upd.Message != nil {
		msg = *upd.Message
	}
	_, ok, err := r.transition(ctx, transitionParams{
		Event: domainjob.EventProgress,
		ID:    upd.JobID,
		Set:   `progress_percent = $4, progress_message = COALESCE($5, progress_message)`,
		Args:  []any{upd.Percent, msg},
	})
	return ok, err
}

// Complete marks a processing job completed and stores its result.
func (r *JobRepo) Complete(ctx context.Context, id string, result json.RawMessage) (bool, error) {
	if err := model.ValidateOptionalDocument(result); err != nil {
		return false, fmt.Errorf("result: %w", err)
	}
	_, ok, err := r.transition(ctx, transitionParams{
		Event: domainjob.EventComplete,
		ID:    id,
		Set: `status = 'completed',
		      progress_percent = 100,
		      completed_at = $3,
		      result = $4::jsonb`,
		Args: []any{nullableJSONArg(result)},
	})
	return ok, err
}

// Fail marks a processing job failed with the reported error.
func (r *JobRepo) Fail(ctx context.Context, req model.FailRequest) (bool, error) {
	req.Normalize()
	if err := model.ValidateOptionalDocument(req.Details); err != nil {
		return false, fmt.Errorf("error details: %w", err)
	}
	_, ok, err := r.transition(ctx, transitionParams{
		Event: domainjob.EventFail,
		ID:    req.JobID,
		Set: `status = 'failed',
		      completed_at = $3,
		      error_code = $4,
		      error_message = $5,
		      error_details = $6::jsonb`,
		Args: []any{req.Code, req.Message, nullableJSONArg(req.Details)},
	})
	return ok, err
}

// Cancel cancels a pending or processing job owned by ownerID.
func (r *JobRepo) Cancel(ctx context.Context, id, ownerID string) (bool, error) {
	_, ok, err := r.transition(ctx, transitionParams{
		Event: domainjob.EventCancel,
		ID:    id,
		Set:   `status = 'cancelled', completed_at = $3`,
		Where: ` AND owner_id = $4`,
		Args:  []any{ownerID},
	})
	return ok, err
}
