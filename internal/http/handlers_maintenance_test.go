package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/jobcore/internal/service"
)

type fakeSweeper struct {
	steps []service.SweepStep
	err   error
}

func (f *fakeSweeper) RunAll(context.Context) ([]service.SweepResult, error) {
	out := make([]service.SweepResult, 0, len(service.AllSweepSteps()))
	for _, s := range service.AllSweepSteps() {
		f.steps = append(f.steps, s)
		out = append(out, service.SweepResult{Step: s})
	}
	return out, f.err
}

func (f *fakeSweeper) RunStep(_ context.Context, step service.SweepStep) (*service.SweepResult, error) {
	f.steps = append(f.steps, step)
	if f.err != nil {
		return nil, f.err
	}
	return &service.SweepResult{Step: step, Affected: 3, JobIDs: []string{"a", "b", "c"}}, nil
}

func TestMaintenance_RunStep(t *testing.T) {
	sweeper := &fakeSweeper{}
	f := newRouterFixture(t, func(s *RouterServices) { s.Sweeper = sweeper })

	w := f.do(t, http.MethodPost, "/api/maintenance/purge-jobs", nil, withBearer(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody[struct {
		Results []service.SweepResult `json:"results"`
	}](t, w)
	require.Len(t, body.Results, 1)
	assert.Equal(t, service.SweepStepPurgeJobs, body.Results[0].Step)
	assert.EqualValues(t, 3, body.Results[0].Affected)
}

func TestMaintenance_RunAll(t *testing.T) {
	sweeper := &fakeSweeper{}
	f := newRouterFixture(t, func(s *RouterServices) { s.Sweeper = sweeper })

	w := f.do(t, http.MethodPost, "/api/maintenance/all", nil, withBearer(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.AllSweepSteps(), sweeper.steps)
}

func TestMaintenance_Errors(t *testing.T) {
	sweeper := &fakeSweeper{}
	f := newRouterFixture(t, func(s *RouterServices) { s.Sweeper = sweeper })

	w := f.do(t, http.MethodPost, "/api/maintenance/defrag", nil, withBearer(testAdminToken))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/maintenance/retry", nil, withBearer(testWorkerToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/maintenance/retry", nil, asOwner(testOwner))
	assert.Equal(t, http.StatusForbidden, w.Code)

	sweeper.err = errors.New("connection reset")
	w = f.do(t, http.MethodPost, "/api/maintenance/retry", nil, withBearer(testAdminToken))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
