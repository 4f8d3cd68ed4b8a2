package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubListener struct {
	started chan struct{}
	changes chan model.JobChange
	err     error
	calls   atomic.Int32
}

func newStubListener() *stubListener {
	return &stubListener{
		started: make(chan struct{}, 8),
		changes: make(chan model.JobChange, 8),
	}
}

func (s *stubListener) ListenJobChanges(ctx context.Context, handle func(model.JobChange)) error {
	s.calls.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	if s.err != nil {
		return s.err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-s.changes:
			handle(c)
		}
	}
}

func waitStarted(t *testing.T, l *stubListener) {
	t.Helper()
	select {
	case <-l.started:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected listener to be started")
	}
}

func TestNewChangeHubRequiresListener(t *testing.T) {
	hub, err := NewChangeHub(ChangeHubOptions{})
	require.ErrorIs(t, err, ErrListenerRequired)
	assert.Nil(t, hub)
}

func TestChangeHub_OwnerScopedDelivery(t *testing.T) {
	listener := newStubListener()
	hub, err := NewChangeHub(ChangeHubOptions{Listener: listener})
	require.NoError(t, err)
	defer hub.StopAll()

	unsubA, chA := hub.Subscribe("owner-a")
	defer unsubA()
	unsubB, chB := hub.Subscribe("owner-b")
	defer unsubB()
	waitStarted(t, listener)

	listener.changes <- model.JobChange{JobID: "j1", OwnerID: "owner-a", Status: model.JobStatusProcessing}

	select {
	case c := <-chA:
		assert.Equal(t, "j1", c.JobID)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected change for owner-a")
	}

	select {
	case c := <-chB:
		t.Fatalf("owner-b must not receive owner-a change: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChangeHub_SubscribeAllReceivesEverything(t *testing.T) {
	listener := newStubListener()
	hub, err := NewChangeHub(ChangeHubOptions{Listener: listener})
	require.NoError(t, err)
	defer hub.StopAll()

	unsub, ch := hub.SubscribeAll()
	defer unsub()

	hub.Dispatch(model.JobChange{JobID: "j1", OwnerID: "a"})
	hub.Dispatch(model.JobChange{JobID: "j2", OwnerID: "b"})

	got := []string{(<-ch).JobID, (<-ch).JobID}
	assert.Equal(t, []string{"j1", "j2"}, got)
}

func TestChangeHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	listener := newStubListener()
	hub, err := NewChangeHub(ChangeHubOptions{Listener: listener, Buffer: 1})
	require.NoError(t, err)
	defer hub.StopAll()

	unsub, ch := hub.Subscribe("a")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for range 5 {
			hub.Dispatch(model.JobChange{OwnerID: "a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("dispatch blocked on a full subscriber")
	}
	assert.Len(t, ch, 1)
}

func TestChangeHub_UnsubscribeClosesChannelAndStopsListener(t *testing.T) {
	listener := newStubListener()
	hub, err := NewChangeHub(ChangeHubOptions{Listener: listener})
	require.NoError(t, err)

	unsub, ch := hub.Subscribe("a")
	waitStarted(t, listener)
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}

	hub.mu.Lock()
	assert.Nil(t, hub.cancel)
	hub.mu.Unlock()

	// Safe to call twice.
	unsub()
}

func TestChangeHub_ListenerErrorsAreRetried(t *testing.T) {
	listener := newStubListener()
	listener.err = errors.New("connection reset")
	hub, err := NewChangeHub(ChangeHubOptions{Listener: listener, Backoff: 5 * time.Millisecond})
	require.NoError(t, err)

	unsub, _ := hub.SubscribeAll()
	waitStarted(t, listener)
	waitStarted(t, listener)
	unsub()

	assert.GreaterOrEqual(t, listener.calls.Load(), int32(2))
}

func TestChangeHub_StopAllClosesChannels(t *testing.T) {
	listener := newStubListener()
	hub, err := NewChangeHub(ChangeHubOptions{Listener: listener})
	require.NoError(t, err)

	unsubA, chA := hub.Subscribe("a")
	unsubAll, chAll := hub.SubscribeAll()
	waitStarted(t, listener)

	hub.StopAll()

	for _, ch := range []<-chan model.JobChange{chA, chAll} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channels should be closed after StopAll")
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected channel to close after StopAll")
		}
	}

	// Unsubscribes should remain safe post-stop.
	unsubA()
	unsubAll()
}
