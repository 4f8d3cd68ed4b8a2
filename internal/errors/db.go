package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// Key (owner_id, dedupe_key)=(...) already exists.
	reDetailKey = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// ... is not present in table "jobs".
	reDetailMissing = regexp.MustCompile(`is not present in table "?([^"\s]+)"?`)
	// ... is still referenced from table "job_logs".
	reDetailReferenced = regexp.MustCompile(`is still referenced from table "?([^"\s]+)"?`)
)

var tableNouns = map[string]string{
	"jobs":           "job",
	"job_logs":       "job log",
	"webhook_events": "webhook event",
	"cache_entries":  "cache entry",
}

// MapDBError converts driver, context and Postgres errors into AppErrors. Errors it
// does not recognise are returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "database call timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "database call canceled")
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "resource not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	return mapPgError(pgErr)
}

func mapPgError(pgErr *pgconn.PgError) *AppError {
	switch code := pgErr.Code; {
	case code == pgerrcode.UniqueViolation:
		appErr := Wrap(pgErr, ErrCodeConflict, "value already exists")
		appErr.Field = violatedColumns(pgErr)
		return appErr

	case code == pgerrcode.ForeignKeyViolation:
		return Wrap(pgErr, ErrCodeForeignKey, foreignKeyMessage(pgErr))

	case code == pgerrcode.NotNullViolation:
		appErr := Wrap(pgErr, ErrCodeValidation, "required value is missing")
		appErr.Field = pgErr.ColumnName
		return appErr

	case code == pgerrcode.CheckViolation,
		code == pgerrcode.InvalidTextRepresentation,
		code == pgerrcode.NumericValueOutOfRange:
		appErr := Wrap(pgErr, ErrCodeValidation, "value is not allowed")
		appErr.Field = pgErr.ColumnName
		if appErr.Field == "" {
			appErr.Field = pgErr.ConstraintName
		}
		return appErr

	case code == pgerrcode.SerializationFailure, code == pgerrcode.DeadlockDetected:
		return Wrap(pgErr, ErrCodeConflict, "concurrent update, retry the request")

	case code == pgerrcode.QueryCanceled, code == pgerrcode.LockNotAvailable:
		return Wrap(pgErr, ErrCodeTimeout, "database call timed out")

	case pgerrcode.IsConnectionException(code):
		return Wrap(pgErr, ErrCodeInternal, "database unavailable")

	default:
		return Wrap(pgErr, ErrCodeInternal, "database error")
	}
}

// violatedColumns names the columns of a unique violation, preferring the
// server-reported column and falling back to the Detail key list.
func violatedColumns(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reDetailKey.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return strings.ReplaceAll(m[1], " ", "")
	}
	return ""
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	if m := reDetailMissing.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "referenced " + tableNoun(m[1]) + " does not exist"
	}
	if m := reDetailReferenced.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "still referenced by a " + tableNoun(m[1])
	}
	if pgErr.TableName != "" {
		return "reference from " + tableNoun(pgErr.TableName) + " is invalid"
	}
	return "referenced record does not exist"
}

func tableNoun(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if noun, ok := tableNouns[table]; ok {
		return noun
	}
	return strings.ReplaceAll(table, "_", " ")
}
