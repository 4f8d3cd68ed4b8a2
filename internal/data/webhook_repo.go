package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/creatorhub/jobcore/internal/data/pgxutil"
	"github.com/creatorhub/jobcore/internal/domain/model"
)

const webhookPurgeLock int32 = 1

const webhookColumns = `
  id,
  external_id,
  event_type,
  payload,
  processed,
  processed_at,
  error_message,
  retry_count,
  attempt_count,
  created_at,
  updated_at
`

// WebhookRepo is the idempotency ledger for externally delivered events.
type WebhookRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewWebhookRepo creates a WebhookRepo.
func NewWebhookRepo(db *sql.DB, cfg RepoConfig) *WebhookRepo {
	tp := defaultTimeProvider(cfg.TimeProvider)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookRepo{DB: db, timeProvider: tp, logger: logger.With("component", "webhook_repo")}
}

func scanWebhookEvent(scanner jobRowScanner) (*model.WebhookEvent, error) {
	ev := &model.WebhookEvent{}
	var payload []byte
	var processedAt sql.NullTime
	var errMsg sql.NullString
	if err := scanner.Scan(
		&ev.ID,
		&ev.ExternalID,
		&ev.EventType,
		&payload,
		&ev.Processed,
		&processedAt,
		&errMsg,
		&ev.RetryCount,
		&ev.AttemptCount,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ev.Payload = cloneJSON(payload)
	ev.ProcessedAt = cloneNullableTime(processedAt)
	ev.ErrorMessage = cloneNullableString(errMsg)
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	return ev, nil
}

// LogEvent records a delivery once per external id. A redelivery returns the original row's id
// and leaves its payload untouched.
func (r *WebhookRepo) LogEvent(ctx context.Context, req *model.LogEventRequest) (*model.LogEventResult, error) {
	if req == nil {
		return nil, errors.New("log event request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &model.LogEventResult{}
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := nowUTC(r.timeProvider)
			err := tx.QueryRow(ctx, `
				INSERT INTO webhook_events (external_id, event_type, payload, created_at, updated_at)
				VALUES ($1, $2, $3::jsonb, $4, $4)
				ON CONFLICT (external_id) DO NOTHING
				RETURNING id
			`, req.ExternalID, req.EventType, string(req.Payload), now).Scan(&res.ID)
			if err == nil {
				res.Created = true
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("insert webhook event: %w", err)
			}

			if err := tx.QueryRow(ctx,
				`SELECT id FROM webhook_events WHERE external_id = $1`, req.ExternalID,
			).Scan(&res.ID); err != nil {
				return fmt.Errorf("load existing webhook event: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByExternalID loads an event by the sender's id.
func (r *WebhookRepo) GetByExternalID(ctx context.Context, externalID string) (*model.WebhookEvent, error) {
	ev, err := scanWebhookEvent(r.DB.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events WHERE external_id = $1`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrWebhookEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return ev, nil
}

// MarkProcessed records one processing attempt. A nil processErr marks the event processed;
// otherwise the error is stored and retry_count grows. A failed attempt on an event that is
// already processed changes nothing and returns the row as stored.
func (r *WebhookRepo) MarkProcessed(
	ctx context.Context,
	externalID string,
	processErr error,
) (*model.WebhookEvent, error) {
	now := nowUTC(r.timeProvider)

	var row *sql.Row
	if processErr == nil {
		row = r.DB.QueryRowContext(ctx, `
			UPDATE webhook_events
			SET processed = TRUE,
			    processed_at = $2,
			    error_message = NULL,
			    attempt_count = attempt_count + 1,
			    updated_at = $2
			WHERE external_id = $1
			RETURNING `+webhookColumns, externalID, now)
	} else {
		row = r.DB.QueryRowContext(ctx, `
			UPDATE webhook_events
			SET error_message = $3,
			    retry_count = retry_count + 1,
			    attempt_count = attempt_count + 1,
			    updated_at = $2
			WHERE external_id = $1 AND processed = FALSE
			RETURNING `+webhookColumns, externalID, now, processErr.Error())
	}

	ev, err := scanWebhookEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		if processErr != nil {
			return r.GetByExternalID(ctx, externalID)
		}
		return nil, model.ErrWebhookEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark webhook event processed: %w", err)
	}
	return ev, nil
}

// RetryEligible returns unprocessed events under the retry cap created within the window, oldest first.
func (r *WebhookRepo) RetryEligible(ctx context.Context, q model.WebhookRetryQuery) ([]*model.WebhookEvent, error) {
	window := q.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+webhookColumns+`
		FROM webhook_events
		WHERE processed = FALSE
		  AND retry_count < $1
		  AND created_at > $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, q.MaxRetries, nowUTC(r.timeProvider).Add(-window), limit)
	if err != nil {
		return nil, fmt.Errorf("query retryable webhook events: %w", err)
	}
	defer rows.Close()

	out := []*model.WebhookEvent{}
	for rows.Next() {
		ev, scanErr := scanWebhookEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan webhook event: %w", scanErr)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PurgeProcessed deletes processed events older than the retention window.
func (r *WebhookRepo) PurgeProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	var deleted int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := pgxutil.TryAdvisoryXactLock(ctx, tx, advisoryLockWebhookMajor, webhookPurgeLock)
			if err != nil || !locked {
				return err
			}
			res, err := tx.ExecContext(ctx, `
				DELETE FROM webhook_events
				WHERE processed = TRUE AND processed_at < $1
			`, nowUTC(r.timeProvider).Add(-olderThan))
			if err != nil {
				return fmt.Errorf("purge webhook events: %w", err)
			}
			deleted, err = res.RowsAffected()
			return err
		},
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
