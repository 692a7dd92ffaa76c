package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// StatusRepository is the interface that wraps the database liveness query.
type StatusRepository interface {
	// Method SystemTime returns the current time of the database server.
	SystemTime(ctx context.Context) (time.Time, error)
}

// StatusHandler handles liveness probes
type StatusHandler struct {
	BaseHandler
	statusRepo StatusRepository
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(statusRepo StatusRepository, logger *zap.Logger, debug bool) *StatusHandler {
	return &StatusHandler{
		BaseHandler: BaseHandler{Logger: logger, Debug: debug},
		statusRepo:  statusRepo,
	}
}

// RegisterRoutes registers status handler routes
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/heartbeat", h.Heartbeat)
}

// Heartbeat handles GET /heartbeat
// @Summary Liveness probe
// @Description Reads the database clock to confirm the service and its database are reachable
// @Tags status
// @Produce json
// @Success 200 {object} models.Heartbeat "Service is alive"
// @Failure 500 {object} ErrorResponse "Database unreachable"
// @Router /heartbeat [get]
func (h *StatusHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	systemTime, err := h.statusRepo.SystemTime(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.Heartbeat{
		Status:     "ok",
		SystemTime: systemTime.UTC().Format(time.DateTime),
	})
}
