package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/creatorhub/jobcore/internal/data/pgxutil"
	"github.com/creatorhub/jobcore/internal/domain/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// jobFilterQueryBuilder appends optional equality filters with positional args.
type jobFilterQueryBuilder struct {
	where  string
	args   []any
	argIdx int
}

func newJobFilterQueryBuilder(ownerID string) *jobFilterQueryBuilder {
	return &jobFilterQueryBuilder{
		where:  " WHERE owner_id = $1",
		args:   []any{ownerID},
		argIdx: 2,
	}
}

func (b *jobFilterQueryBuilder) addFilter(condition string, value any) {
	if value != nil {
		b.where += fmt.Sprintf(" AND %s = $%d", condition, b.argIdx)
		b.args = append(b.args, value)
		b.argIdx++
	}
}

func normalizeListPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, max(offset, 0)
}

func buildJobListQuery(opts *model.JobListOptions) (countQuery, pageQuery string, args []any) {
	b := newJobFilterQueryBuilder(opts.OwnerID)
	if opts.Status != nil && *opts.Status != "" {
		b.addFilter("status", string(*opts.Status))
	}
	if opts.Type != nil && *opts.Type != "" {
		b.addFilter("type", string(*opts.Type))
	}

	countQuery = `SELECT count(*) FROM jobs` + b.where
	pageQuery = `SELECT ` + jobColumns + ` FROM jobs` + b.where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", b.argIdx, b.argIdx+1)
	return countQuery, pageQuery, b.args
}

// List returns one page of an owner's jobs plus the total matching count.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) (*model.JobPage, error) {
	if opts == nil || opts.OwnerID == "" {
		return nil, errors.New("owner id is required")
	}
	limit, offset := normalizeListPage(opts.Limit, opts.Offset)
	countQuery, pageQuery, args := buildJobListQuery(opts)

	page := &model.JobPage{Jobs: []*model.Job{}, Limit: limit, Offset: offset}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if err := conn.QueryRow(ctx, countQuery, args...).Scan(&page.Total); err != nil {
			return fmt.Errorf("count jobs: %w", err)
		}
		if page.Total == 0 {
			return nil
		}

		rows, err := conn.Query(ctx, pageQuery, append(args, limit, offset)...)
		if err != nil {
			return fmt.Errorf("query jobs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			j, scanErr := scanJobFromRow(rows)
			if scanErr != nil {
				return fmt.Errorf("scan job: %w", scanErr)
			}
			page.Jobs = append(page.Jobs, j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FindCachedResult returns the newest completed job with structurally equal parameters
// that finished within q.TTL of now, or nil on a miss.
func (r *JobRepo) FindCachedResult(ctx context.Context, q model.CachedResultQuery) (*model.Job, error) {
	if q.TTL <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	freshSince := nowUTC(r.timeProvider).Add(-q.TTL)

	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE owner_id = $1
		  AND type = $2
		  AND parameters = $3::jsonb
		  AND status = 'completed'
		  AND completed_at >= $4
		ORDER BY completed_at DESC, id DESC
		LIMIT 1
	`, q.OwnerID, q.Type, string(q.Parameters), freshSince)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cached result: %w", err)
	}
	return job, nil
}
