package handlers

import (
	"net/http"
	"time"

	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	pinger  repositories.HealthRepository
	started time.Time
}

// NewHealthHandlers constructs the probe handlers. A nil pinger makes the
// readiness probe succeed unconditionally.
func NewHealthHandlers(pinger repositories.HealthRepository) *HealthHandlers {
	return &HealthHandlers{
		pinger:  pinger,
		started: time.Now().UTC(),
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteData(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Readyz reports whether the backing datastore answers reads.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("not_ready", "datastore unavailable", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"status": "ready"})
}
