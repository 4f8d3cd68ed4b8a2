package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/creatorhub/jobcore/internal/mocks"
	"github.com/creatorhub/jobcore/internal/service"
)

const (
	testWorkerToken = "worker-secret"
	testAdminToken  = "admin-secret"
	testOwner       = "creator-1"
)

type routerFixture struct {
	handler http.Handler
	repo    *mocks.MockJobRepository
	logs    *mocks.MockJobLogRepository
}

// newRouterFixture builds the API router over real services backed by gomock repositories.
// Owners authenticate with the X-Owner-ID header.
func newRouterFixture(t *testing.T, mutate func(*RouterServices)) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	logs := mocks.NewMockJobLogRepository(ctrl)

	jobs := service.MustNewJobService(service.JobServiceOptions{Repo: repo, Logs: logs})
	results, err := service.NewResultCacheService(service.ResultCacheServiceOptions{Repo: repo})
	require.NoError(t, err)

	services := RouterServices{
		Jobs:    jobs,
		Results: results,
		Auth: service.NewAuthService(service.AuthServiceOptions{
			WorkerTokens:     []string{testWorkerToken},
			AdminTokens:      []string{testAdminToken},
			TrustOwnerHeader: true,
		}),
		MaxBodyBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(&services)
	}
	return &routerFixture{handler: NewRouter(services), repo: repo, logs: logs}
}

type reqOpt func(*http.Request)

func asOwner(owner string) reqOpt {
	return func(r *http.Request) { r.Header.Set(HeaderOwnerID, owner) }
}

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (f *routerFixture) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, rdr)
	for _, opt := range opts {
		opt(r)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), "body: %s", w.Body.String())
	return v
}
