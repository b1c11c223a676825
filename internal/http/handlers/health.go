package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/lead-manager/pkg/logging"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *logging.Logger
}

// NewHealthHandler creates a health handler. A nil db means the service runs
// on in-memory storage.
func NewHealthHandler(db Pinger, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{db: db, timeout: 2 * time.Second, logger: logger}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := map[string]string{
		"status":   "ok",
		"database": "in_memory",
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("health check: database ping failed", "error", err)
			status = http.StatusServiceUnavailable
			response["status"] = "degraded"
			response["database"] = "unavailable"
		} else {
			response["database"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
