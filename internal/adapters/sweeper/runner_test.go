package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/mocks"
	"github.com/creatorhub/jobcore/internal/service"
)

type countPurger struct{ n int64 }

func (p countPurger) PurgeOld(context.Context, int) (int64, error) { return p.n, nil }
func (p countPurger) PurgeExpired(context.Context) (int64, error)  { return p.n, nil }

func newTestRunner(t *testing.T) (*Runner, *mocks.MockSweeperRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSweeperRepository(ctrl)
	r, err := NewRunner(RunnerOptions{
		Repo:     repo,
		Webhooks: countPurger{n: 3},
		Cache:    countPurger{n: 4},
		Config: config.SweeperConfig{
			Interval:     time.Minute,
			BatchSize:    10,
			StuckTimeout: time.Hour,
			JobRetention: 24 * time.Hour,
		},
	})
	require.NoError(t, err)
	return r, repo
}

func TestNewRunner_RequiresStore(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RunOnceSingleStep(t *testing.T) {
	r, repo := newTestRunner(t)
	repo.EXPECT().ExpirePending(gomock.Any(), 10).Return([]string{"j1", "j2"}, nil)

	res, err := r.RunOnce(context.Background(), "expire")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, service.SweepStepExpire, res[0].Step)
	assert.Equal(t, int64(2), res[0].Affected)
}

func TestRunner_RunOnceKebabCase(t *testing.T) {
	r, _ := newTestRunner(t)

	res, err := r.RunOnce(context.Background(), "purge-webhooks")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(3), res[0].Affected)
}

func TestRunner_RunOnceUnknownStep(t *testing.T) {
	r, _ := newTestRunner(t)
	_, err := r.RunOnce(context.Background(), "vacuum")
	require.Error(t, err)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	r, repo := newTestRunner(t)
	repo.EXPECT().ExpirePending(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().FailStuck(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().RetryFailed(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().PurgeTerminal(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
