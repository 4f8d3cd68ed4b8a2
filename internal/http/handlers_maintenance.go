package httpx

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/service"
)

// Sweeper runs maintenance steps on demand.
type Sweeper interface {
	RunAll(ctx context.Context) ([]service.SweepResult, error)
	RunStep(ctx context.Context, step service.SweepStep) (*service.SweepResult, error)
}

// MaintenanceHandlers exposes the sweeper steps to administrators.
type MaintenanceHandlers struct {
	Sweeper Sweeper
	Logger  *slog.Logger
}

// Run handles POST /api/maintenance/{step}. The step "all" runs every step in order.
func (h *MaintenanceHandlers) Run(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("step")
	if name == "all" {
		results, err := h.Sweeper.RunAll(r.Context())
		if err != nil {
			h.writeErr(w, r, name, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	step, err := service.ParseSweepStep(name)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: string(apperrors.ErrCodeNotFound), Err: err})
		return
	}
	res, err := h.Sweeper.RunStep(r.Context(), step)
	if err != nil {
		h.writeErr(w, r, name, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": []*service.SweepResult{res}})
}

func (h *MaintenanceHandlers) writeErr(w http.ResponseWriter, r *http.Request, step string, err error) {
	if h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "maintenance step failed", "step", step, "error", err)
	}
	WriteServiceError(w, err)
}
