package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: apperrors.QuotaExceededf("owner %s", "o1"), want: "quota_exceeded"},
		{
			name: "app code wins over sentinel",
			err:  fmt.Errorf("get: %w", apperrors.Wrap(model.ErrJobNotFound, apperrors.ErrCodeNotFound, "job")),
			want: "not_found",
		},
		{name: "sentinel", err: fmt.Errorf("claim: %w", model.ErrNoJobsAvailable), want: "no_jobs"},
		{name: "deadline", err: fmt.Errorf("claim: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "postgres", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.SerializationFailure}), want: "pg_40"},
		{name: "network", err: fmt.Errorf("dispatch: %w", &net.OpError{Op: "dial", Err: goerrors.New("refused")}), want: "network"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
