package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/creatorhub/jobcore/internal/data/pgxutil"
	"github.com/creatorhub/jobcore/internal/domain/model"
)

// JobChangesChannel is the NOTIFY channel carrying JobChange snapshots.
const JobChangesChannel = "jobcore_job_changes"

// Postgres rejects NOTIFY payloads of 8000 bytes or more.
const maxNotifyPayload = 7999

// encodeJobChange marshals a snapshot that fits in a NOTIFY payload.
// Oversized snapshots drop the result first, then free-text fields.
func encodeJobChange(change model.JobChange) ([]byte, error) {
	payload, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshal job change: %w", err)
	}
	if len(payload) <= maxNotifyPayload {
		return payload, nil
	}

	change.Result = nil
	change.ResultTruncated = true
	if payload, err = json.Marshal(change); err != nil {
		return nil, fmt.Errorf("marshal job change: %w", err)
	}
	if len(payload) <= maxNotifyPayload {
		return payload, nil
	}

	change.ProgressMessage = nil
	change.ErrorMessage = nil
	if payload, err = json.Marshal(change); err != nil {
		return nil, fmt.Errorf("marshal job change: %w", err)
	}
	return payload, nil
}

// publishJobChange sends a snapshot of j on the change channel. Called inside the mutating
// transaction so observers only ever see committed changes.
func publishJobChange(ctx context.Context, q execQueryer, j *model.Job) error {
	payload, err := encodeJobChange(model.ChangeFromJob(j))
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, JobChangesChannel, string(payload)); err != nil {
		return fmt.Errorf("send job change notification: %w", err)
	}
	return nil
}

// ChangeFeed listens for job change snapshots on a dedicated connection.
type ChangeFeed struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// NewChangeFeed constructs a ChangeFeed.
func NewChangeFeed(db *sql.DB, logger *slog.Logger) *ChangeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFeed{DB: db, Logger: logger.With("component", "change_feed")}
}

// ListenJobChanges holds a connection in LISTEN mode and calls handle for every decoded
// snapshot until ctx is done or the connection fails.
func (f *ChangeFeed) ListenJobChanges(ctx context.Context, handle func(model.JobChange)) error {
	quoted := pgx.Identifier{JobChangesChannel}.Sanitize()

	return pgxutil.WithPgxConn(ctx, f.DB, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "LISTEN "+quoted); err != nil {
			return fmt.Errorf("listen %s: %w", JobChangesChannel, err)
		}
		defer func() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN "+quoted); err != nil {
				f.Logger.Debug("unlisten failed", "error", err)
			}
		}()

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return fmt.Errorf("wait for job change: %w", err)
			}

			var change model.JobChange
			if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
				f.Logger.WarnContext(ctx, "discarding malformed job change", "error", err)
				continue
			}
			handle(change)
		}
	})
}
