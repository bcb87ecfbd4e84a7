package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/utils"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db     *sql.DB
	queue  Pinger
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. queue may be nil for the
// in-memory backend.
func NewHealthHandler(db *sql.DB, queue Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		queue:  queue,
		logger: log,
	}
}

// Healthz handles liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles readiness probe
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Check database connection
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Database ping failed")
		utils.WriteErrorMessage(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database connection failed")
		return
	}

	status := map[string]string{
		"status":   "ready",
		"database": "connected",
		"queue":    "memory",
	}
	if h.queue != nil {
		if err := h.queue.PingContext(ctx); err != nil {
			h.logger.ErrorWithErr(err, "Queue ping failed")
			utils.WriteErrorMessage(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Queue connection failed")
			return
		}
		status["queue"] = "connected"
	}

	utils.WriteSuccess(w, http.StatusOK, status)
}
