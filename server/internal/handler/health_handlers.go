package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/fareradar/internal/faulttolerance"
)

type HealthHandler struct {
	monitor *faulttolerance.HealthMonitor
}

func NewHealthHandler(monitor *faulttolerance.HealthMonitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// GetHealth answers 503 only when a check is unhealthy; degraded still serves.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	report := h.monitor.Report(time.Now())

	status := http.StatusOK
	if report.Status == faulttolerance.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.String(http.StatusOK, "Live")
}
