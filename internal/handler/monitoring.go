package handler

import (
	"net/http"

	"github.com/jrrjunior25/pdv-fiscal/internal/service"

	"github.com/gin-gonic/gin"
)

type MonitoringHandler struct{ svc service.MonitoringService }

func NewMonitoringHandler(svc service.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{svc: svc}
}

// Metrics returns a point-in-time snapshot of host and dependency health:
// CPU, memory, disk, DB/Redis connectivity, circuit state, and DLQ depths.
func (h *MonitoringHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot(c.Request.Context()))
}
