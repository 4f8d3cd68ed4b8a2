package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
)

const defaultStreamHeartbeat = 25 * time.Second

// StreamHandlers pushes the caller's job changes as server-sent events.
type StreamHandlers struct {
	Changes   domainjob.ChangeSubscriber
	Heartbeat time.Duration
	Logger    *slog.Logger
}

// Stream handles GET /api/jobs/stream. Each change is one "job" event carrying the JSON snapshot;
// comment lines keep idle connections open through proxies.
func (h *StreamHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	owner, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	rc := http.NewResponseController(w)

	unsub, ch := h.Changes.Subscribe(owner)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		if h.Logger != nil && !errors.Is(err, http.ErrNotSupported) {
			h.Logger.DebugContext(r.Context(), "stream flush failed", "error", err)
		}
		return
	}

	interval := h.Heartbeat
	if interval <= 0 {
		interval = defaultStreamHeartbeat
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case change, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				if h.Logger != nil {
					h.Logger.WarnContext(r.Context(), "skipping unencodable job change", "job_id", change.JobID, "error", err)
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: job\ndata: %s\n\n", change.JobID, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
