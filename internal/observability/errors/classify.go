// Package errors buckets arbitrary errors into low-cardinality classes for metric tags and log fields.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{model.ErrJobNotFound, "job_not_found"},
	{model.ErrNoJobsAvailable, "no_jobs"},
	{model.ErrQuotaExceeded, "quota_exceeded"},
	{model.ErrWebhookEventNotFound, "webhook_not_found"},
	{context.DeadlineExceeded, "timeout"},
	{context.Canceled, "canceled"},
}

// Classify returns "" for nil. Otherwise it picks, in order: the AppError code,
// a known sentinel, the Postgres SQLSTATE class, "network" for net errors, and
// finally the innermost concrete type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		return "pg_" + strings.ToLower(pgErr.Code[:2])
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		return "network"
	}
	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
}
