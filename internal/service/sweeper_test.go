package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/mocks"
)

// recordingSink captures metric calls for assertions.
type recordingSink struct {
	mu     sync.Mutex
	counts map[string]int64
	gauges map[string]float64
	timing map[string]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		counts: map[string]int64{},
		gauges: map[string]float64{},
		timing: map[string]int{},
	}
}

func (r *recordingSink) Count(name string, value int64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name] += value
}

func (r *recordingSink) Gauge(name string, value float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

func (r *recordingSink) Timing(name string, _ time.Duration, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timing[name]++
}

type stubWebhookPurger struct {
	days  int
	count int64
	err   error
}

func (s *stubWebhookPurger) PurgeOld(_ context.Context, days int) (int64, error) {
	s.days = days
	return s.count, s.err
}

type stubCachePurger struct {
	calls int
	count int64
}

func (s *stubCachePurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return s.count, nil
}

func testSweeperConfig() config.SweeperConfig {
	return config.SweeperConfig{
		Interval:       time.Minute,
		BatchSize:      2,
		RetryCooldown:  time.Minute,
		RetryBaseDelay: 5 * time.Minute,
		StuckTimeout:   30 * time.Minute,
		JobRetention:   7 * 24 * time.Hour,
	}
}

func TestParseSweepStep(t *testing.T) {
	step, err := ParseSweepStep("purge-jobs")
	require.NoError(t, err)
	assert.Equal(t, SweepStepPurgeJobs, step)

	step, err = ParseSweepStep(" RETRY ")
	require.NoError(t, err)
	assert.Equal(t, SweepStepRetry, step)

	_, err = ParseSweepStep("vacuum")
	assert.Error(t, err)
}

func TestNewSweeperServiceRequiresRepo(t *testing.T) {
	_, err := NewSweeperService(SweeperServiceOptions{})
	require.Error(t, err)
}

func TestSweeperService_RunStepDrainsBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSweeperRepository(ctrl)
	sink := newRecordingSink()

	svc, err := NewSweeperService(SweeperServiceOptions{
		Repo:    repo,
		Config:  testSweeperConfig(),
		Metrics: sink,
	})
	require.NoError(t, err)

	gomock.InOrder(
		repo.EXPECT().ExpirePending(gomock.Any(), 2).Return([]string{"a", "b"}, nil),
		repo.EXPECT().ExpirePending(gomock.Any(), 2).Return([]string{"c"}, nil),
	)

	res, err := svc.RunStep(context.Background(), SweepStepExpire)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Affected)
	assert.Equal(t, []string{"a", "b", "c"}, res.JobIDs)
	assert.Equal(t, int64(1), sink.counts["sweeper.step"])
	assert.Equal(t, int64(3), sink.counts["sweeper.rows"])
}

func TestSweeperService_RetryPassesBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSweeperRepository(ctrl)

	svc, err := NewSweeperService(SweeperServiceOptions{Repo: repo, Config: testSweeperConfig()})
	require.NoError(t, err)

	repo.EXPECT().
		RetryFailed(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.RetryFailedParams) ([]string, error) {
			assert.Equal(t, time.Minute, p.Cooldown)
			assert.Equal(t, 5*time.Minute, p.Backoff.Base)
			assert.Equal(t, 10*time.Minute, p.Backoff.Delay(2))
			return nil, nil
		})

	res, err := svc.RunStep(context.Background(), SweepStepRetry)
	require.NoError(t, err)
	assert.Zero(t, res.Affected)
}

func TestSweeperService_RunAllContinuesPastFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSweeperRepository(ctrl)
	webhooks := &stubWebhookPurger{count: 4}
	cache := &stubCachePurger{count: 1}

	svc, err := NewSweeperService(SweeperServiceOptions{
		Repo:                 repo,
		Webhooks:             webhooks,
		Cache:                cache,
		Config:               testSweeperConfig(),
		WebhookRetentionDays: 30,
	})
	require.NoError(t, err)

	repo.EXPECT().ExpirePending(gomock.Any(), gomock.Any()).Return(nil, nil)
	repo.EXPECT().FailStuck(gomock.Any(), gomock.Any()).Return(nil, errors.New("lock timeout"))
	repo.EXPECT().RetryFailed(gomock.Any(), gomock.Any()).Return([]string{"r1"}, nil)
	repo.EXPECT().PurgeTerminal(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	results, err := svc.RunAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck")
	assert.Len(t, results, len(AllSweepSteps()))
	assert.Equal(t, 30, webhooks.days)
	assert.Equal(t, 1, cache.calls)

	byStep := map[SweepStep]int64{}
	for _, r := range results {
		byStep[r.Step] = r.Affected
	}
	assert.Equal(t, int64(1), byStep[SweepStepRetry])
	assert.Equal(t, int64(4), byStep[SweepStepPurgeWebhooks])
}

func TestSweeperService_OptionalPurgersAreNoops(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSweeperRepository(ctrl)
	svc, err := NewSweeperService(SweeperServiceOptions{Repo: repo, Config: testSweeperConfig()})
	require.NoError(t, err)

	res, err := svc.RunStep(context.Background(), SweepStepPurgeWebhooks)
	require.NoError(t, err)
	assert.Zero(t, res.Affected)

	_, err = svc.RunStep(context.Background(), SweepStep("bogus"))
	assert.Error(t, err)
}

func TestSweeperService_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSweeperRepository(ctrl)
	repo.EXPECT().ExpirePending(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().FailStuck(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().RetryFailed(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().PurgeTerminal(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	cfg := testSweeperConfig()
	cfg.Interval = 10 * time.Second
	svc, err := NewSweeperService(SweeperServiceOptions{Repo: repo, Config: cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
