package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// ErrListenerRequired indicates a hub cannot be constructed without a change listener.
var ErrListenerRequired = errors.New("change hub listener is required")

// ChangeListener streams job change snapshots until ctx is done or the underlying connection fails.
type ChangeListener interface {
	ListenJobChanges(ctx context.Context, handle func(model.JobChange)) error
}

// ChangeSubscriber is implemented by anything that fans out job changes.
type ChangeSubscriber interface {
	Subscribe(ownerID string) (func(), <-chan model.JobChange)
	SubscribeAll() (func(), <-chan model.JobChange)
}

// ChangeHubOptions configure the behaviour of the hub.
type ChangeHubOptions struct {
	Listener ChangeListener
	Backoff  time.Duration
	Buffer   int
	Logger   *slog.Logger
}

// ChangeHub runs a single listen loop while it has subscribers and fans snapshots out
// to per-owner and firehose subscribers. Sends never block; slow subscribers miss messages.
type ChangeHub struct {
	listener ChangeListener
	backoff  time.Duration
	buffer   int
	logger   *slog.Logger

	mu     sync.Mutex
	owners map[string]map[chan model.JobChange]struct{}
	all    map[chan model.JobChange]struct{}
	cancel context.CancelFunc
	count  int
}

// NewChangeHub constructs a hub around the given listener.
func NewChangeHub(opts ChangeHubOptions) (*ChangeHub, error) {
	if opts.Listener == nil {
		return nil, ErrListenerRequired
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 16
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ChangeHub{
		listener: opts.Listener,
		backoff:  backoff,
		buffer:   buffer,
		logger:   logger.With("component", "change_hub"),
		owners:   make(map[string]map[chan model.JobChange]struct{}),
		all:      make(map[chan model.JobChange]struct{}),
	}, nil
}

// Subscribe returns a channel receiving changes for a single owner.
func (h *ChangeHub) Subscribe(ownerID string) (func(), <-chan model.JobChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.JobChange, h.buffer)
	if h.owners[ownerID] == nil {
		h.owners[ownerID] = make(map[chan model.JobChange]struct{})
	}
	h.owners[ownerID][ch] = struct{}{}
	h.retainLocked()

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subscribers := h.owners[ownerID]
		if _, ok := subscribers[ch]; !ok {
			return
		}
		delete(subscribers, ch)
		if len(subscribers) == 0 {
			delete(h.owners, ownerID)
		}
		drainAndClose(ch)
		h.releaseLocked()
	}
	return unsub, ch
}

// SubscribeAll returns a channel receiving every change regardless of owner.
func (h *ChangeHub) SubscribeAll() (func(), <-chan model.JobChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.JobChange, h.buffer)
	h.all[ch] = struct{}{}
	h.retainLocked()

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.all[ch]; !ok {
			return
		}
		delete(h.all, ch)
		drainAndClose(ch)
		h.releaseLocked()
	}
	return unsub, ch
}

// Dispatch delivers a change to the matching subscribers.
func (h *ChangeHub) Dispatch(change model.JobChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.owners[change.OwnerID] {
		select {
		case ch <- change:
		default:
		}
	}
	for ch := range h.all {
		select {
		case ch <- change:
		default:
		}
	}
}

// StopAll stops the listen loop and closes every subscriber channel.
func (h *ChangeHub) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	for owner, subscribers := range h.owners {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(h.owners, owner)
	}
	for ch := range h.all {
		drainAndClose(ch)
		delete(h.all, ch)
	}
	h.count = 0
}

func (h *ChangeHub) retainLocked() {
	h.count++
	if h.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.listenLoop(ctx)
}

func (h *ChangeHub) releaseLocked() {
	h.count--
	if h.count > 0 || h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
}

func (h *ChangeHub) listenLoop(ctx context.Context) {
	for ctx.Err() == nil {
		err := h.listener.ListenJobChanges(ctx, h.Dispatch)
		if err == nil || ctx.Err() != nil {
			continue
		}

		h.logger.WarnContext(ctx, "job change listener failed; retrying", "error", err, "backoff", h.backoff)
		timer := time.NewTimer(h.backoff)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// drainAndClose removes any buffered changes before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan model.JobChange) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ ChangeSubscriber = (*ChangeHub)(nil)
