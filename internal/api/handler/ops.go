// Package handler provides HTTP handlers for the WorkCrew API.
package handler

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/push"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	pool      *pgxpool.Pool
	gateway   push.Gateway
}

// NewOpsHandler creates a new OpsHandler. The pool and gateway are
// optional; nil dependencies are reported as OK.
func NewOpsHandler(version, buildTime string, pool *pgxpool.Pool, gateway push.Gateway) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		pool:      pool,
		gateway:   gateway,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	dbStatus := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			detail := err.Error()
			dbStatus.Status = models.HealthStatusFail
			dbStatus.Detail = &detail
		}
	}
	status.Subsystems = append(status.Subsystems, dbStatus)

	pushStatus := models.SubsystemStatus{Name: "push_gateway", Status: models.HealthStatusOK}
	if h.gateway != nil {
		if err := h.gateway.Ready(r.Context()); err != nil {
			detail := err.Error()
			pushStatus.Status = models.HealthStatusDegraded
			pushStatus.Detail = &detail
		}
	}
	status.Subsystems = append(status.Subsystems, pushStatus)

	for _, sub := range status.Subsystems {
		if sub.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
			break
		}
		if sub.Status == models.HealthStatusDegraded {
			status.Status = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}
