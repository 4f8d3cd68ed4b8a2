package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/service"
)

// WebhookIngester records a delivery and applies it at most once.
type WebhookIngester interface {
	Ingest(ctx context.Context, req *model.LogEventRequest) (*service.IngestResult, error)
}

// WebhookHandlers receives billing provider deliveries. Signature checks run in middleware.
type WebhookHandlers struct {
	Ledger WebhookIngester
	Logger *slog.Logger
}

// Billing handles POST /api/webhooks/billing. The sender gets 200 once the event is logged,
// including for duplicates and for events whose processing failed (they are redelivered later).
func (h *WebhookHandlers) Billing(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return
	}
	req, err := service.DecodeEventEnvelope(body)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	res, err := h.Ledger.Ingest(r.Context(), req)
	if err != nil {
		if status, _ := statusForError(err); status >= http.StatusInternalServerError && h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "webhook ingest failed",
				"external_id", req.ExternalID,
				"event_type", req.EventType,
				"error", err,
			)
		}
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"id":        res.ID,
		"duplicate": res.Duplicate,
	})
}
