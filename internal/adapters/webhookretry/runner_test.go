package webhookretry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLedger struct {
	calls atomic.Int32
	err   error
}

func (c *countingLedger) Redeliver(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestNewRunner_RequiresLedger(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RunsImmediatelyAndOnInterval(t *testing.T) {
	ledger := &countingLedger{err: errors.New("db down")}
	r, err := NewRunner(RunnerOptions{Ledger: ledger, Interval: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return ledger.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done, "pass failures never end the loop")
}
