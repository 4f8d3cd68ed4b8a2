// Package httpx provides the HTTP API for the job queue, webhook receiver and maintenance endpoints.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	defaultLogLimit  = 200
	maxLogLimit      = 1000
	maxClaimWait     = 30 * time.Second
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc     *service.JobService
	Results *service.ResultCacheService
	// Optional: wakes long-polling claims when jobs become pending.
	Changes domainjob.ChangeSubscriber
	Logger  *slog.Logger
}

func (h *JobHandlers) writeErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	if status, _ := statusForError(err); status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "job request failed", "op", op, "error", err)
	}
	WriteServiceError(w, err)
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.Subject == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return "", false
	}
	return p.Subject, true
}

func requireJobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return "", false
	}
	return jobID, true
}

type submitJobBody struct {
	model.SubmitJobRequest
	Reuse               bool `json:"reuse,omitempty"`
	DedupeWindowSeconds int  `json:"dedupe_window_seconds,omitempty"`
}

// Submit handles HTTP requests to enqueue a job for the calling owner.
// With "reuse": true an equal active job is returned instead of a new one.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	owner, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body submitJobBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	req := body.SubmitJobRequest
	req.OwnerID = owner

	var (
		res *model.SubmitResult
		err error
	)
	if body.Reuse {
		res, err = h.Svc.SubmitOrReuse(r.Context(), &req, time.Duration(body.DedupeWindowSeconds)*time.Second)
	} else {
		res, err = h.Svc.Submit(r.Context(), &req)
	}
	if err != nil {
		h.writeErr(w, r, "submit", err)
		return
	}

	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	WriteJSON(w, status, res)
}

// List handles HTTP requests to page through the caller's jobs.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	pg := pageFromQuery(r, defaultListLimit, maxListLimit)
	opts := &model.JobListOptions{OwnerID: owner, Limit: pg.Limit, Offset: pg.Offset}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		st := model.JobStatus(v)
		opts.Status = &st
	}
	if v := q.Get("type"); v != "" {
		var jt model.JobType
		if err := jt.UnmarshalText([]byte(v)); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: string(apperrors.ErrCodeValidation), Err: err})
			return
		}
		opts.Type = &jt
	}

	page, err := h.Svc.ListJobs(r.Context(), opts)
	if err != nil {
		h.writeErr(w, r, "list", err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// Get handles HTTP requests to read one job. RequireJobOwner has already loaded it.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	if job, ok := jobFromContext(r.Context()); ok {
		WriteJSON(w, http.StatusOK, job)
		return
	}
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	job, err := h.Svc.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeErr(w, r, "get", err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Logs handles HTTP requests to read a job's log entries, oldest first.
func (h *JobHandlers) Logs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	pg := pageFromQuery(r, defaultLogLimit, maxLogLimit)
	entries, err := h.Svc.ListLogs(r.Context(), jobID, pg.Limit)
	if err != nil {
		h.writeErr(w, r, "list_logs", err)
		return
	}
	if entries == nil {
		entries = []*model.JobLogEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

// Cancel handles HTTP requests to cancel one of the caller's jobs.
// ok is false when the job had already reached a terminal status.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	owner, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	success, err := h.Svc.Cancel(r.Context(), jobID, owner)
	if err != nil {
		h.writeErr(w, r, "cancel", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": success})
}

type cachedResultBody struct {
	model.CachedResultQuery
	TTLSeconds int `json:"ttl_seconds"`
}

// CachedResult handles HTTP requests asking whether equal work completed recently.
func (h *JobHandlers) CachedResult(w http.ResponseWriter, r *http.Request) {
	owner, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body cachedResultBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	q := body.CachedResultQuery
	q.OwnerID = owner
	q.TTL = time.Duration(body.TTLSeconds) * time.Second

	res, err := h.Results.GetCachedResult(r.Context(), q)
	if err != nil {
		h.writeErr(w, r, "cached_result", err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type claimNextBody struct {
	WorkerID string          `json:"worker_id"`
	Types    []model.JobType `json:"types,omitempty"`
}

// ClaimNext handles HTTP requests from workers to claim the best pending job.
// With ?wait=N it holds the request up to N seconds for a matching job; 204 means none.
func (h *JobHandlers) ClaimNext(w http.ResponseWriter, r *http.Request) {
	var body claimNextBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	job, err := h.tryClaim(r.Context(), body)
	if err != nil {
		h.writeErr(w, r, "claim_next", err)
		return
	}
	if job != nil {
		WriteJSON(w, http.StatusOK, job)
		return
	}

	wait := querySeconds(r, "wait", maxClaimWait)
	if wait == 0 || h.Changes == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.handleLongPoll(w, r, body, wait)
}

func (h *JobHandlers) tryClaim(ctx context.Context, body claimNextBody) (*model.Job, error) {
	job, err := h.Svc.ClaimNext(ctx, body.WorkerID, body.Types)
	if err != nil && !errors.Is(err, model.ErrNoJobsAvailable) {
		return nil, err
	}
	return job, nil
}

func (h *JobHandlers) handleLongPoll(w http.ResponseWriter, r *http.Request, body claimNextBody, wait time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	unsub, ch := h.Changes.SubscribeAll()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			w.WriteHeader(http.StatusNoContent)
			return
		case change, open := <-ch:
			if !open {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if change.Status != model.JobStatusPending {
				continue
			}
			if len(body.Types) > 0 && !slices.Contains(body.Types, change.Type) {
				continue
			}
			job, err := h.tryClaim(ctx, body)
			if err != nil {
				h.writeErr(w, r, "claim_next", err)
				return
			}
			if job != nil {
				WriteJSON(w, http.StatusOK, job)
				return
			}
			// Lost the race; keep waiting until the deadline.
		}
	}
}

// Claim handles HTTP requests from workers to claim a specific pending job.
func (h *JobHandlers) Claim(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	var body struct {
		WorkerID string `json:"worker_id"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	success, err := h.Svc.Claim(r.Context(), jobID, body.WorkerID)
	if err != nil {
		h.writeErr(w, r, "claim", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": success})
}

// Progress handles HTTP requests from workers reporting progress.
// ok is false when the job is no longer processing; workers should stop.
func (h *JobHandlers) Progress(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	var upd model.ProgressUpdate
	if !DecodeJSON(w, r, &upd) {
		return
	}
	upd.JobID = jobID
	success, err := h.Svc.ReportProgress(r.Context(), upd)
	if err != nil {
		h.writeErr(w, r, "progress", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": success})
}

// Complete handles HTTP requests to mark a job as completed.
func (h *JobHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	var body struct {
		Result json.RawMessage `json:"result,omitempty"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	success, err := h.Svc.Complete(r.Context(), jobID, body.Result)
	if err != nil {
		h.writeErr(w, r, "complete", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": success})
}

// Fail handles HTTP requests to mark a job as failed with an error code and message.
func (h *JobHandlers) Fail(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	var req model.FailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.JobID = jobID
	success, err := h.Svc.Fail(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, "fail", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": success})
}

// AppendLog handles HTTP requests from workers adding a log entry to a job.
func (h *JobHandlers) AppendLog(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}
	var req model.AppendLogRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.JobID = jobID
	entry, err := h.Svc.AppendLog(r.Context(), &req)
	if err != nil {
		h.writeErr(w, r, "append_log", err)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}
