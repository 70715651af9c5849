package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/fbos/fieldservice/internal/api/dto"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/utils"
)

// HealthHandler handles liveness and readiness requests
type HealthHandler struct {
	db     *sql.DB
	logger *logger.Logger
	now    func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log,
		now:    time.Now,
	}
}

// Status reports that the service is up, with the server time
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, dto.StatusResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Healthz handles the liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles the readiness probe
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Database ping failed")
		utils.WriteError(w, errors.ServiceUnavailable("Database connection failed"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "connected",
	})
}

// MethodNotAllowed answers requests whose path exists with another method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	utils.WriteError(w, errors.MethodNotAllowed())
}

// NotFound answers requests for unknown paths
func NotFound(w http.ResponseWriter, r *http.Request) {
	utils.WriteError(w, errors.NotFound("Route"))
}
