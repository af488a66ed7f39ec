package handler

import (
	"net/http"

	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/middleware"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// RecordMovement godoc
// @Summary Registra uma movimentação manual de estoque
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.StockMovementRequest true "Movimentação"
// @Success 201 {object} dto.StockMovementResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req dto.StockMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordMovement(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Movements lists the stock ledger filtered by product, type, and period.
func (h *InventoryHandler) Movements(c *gin.Context) {
	from, to := queryTimeRange(c)
	resp, err := h.svc.Movements(c.Request.Context(), queryUUID(c, "product_id"), c.Query("type"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Alerts lists inventory alerts. ?resolved=true|false filters by state.
func (h *InventoryHandler) Alerts(c *gin.Context) {
	var resolved *bool
	switch c.Query("resolved") {
	case "true":
		v := true
		resolved = &v
	case "false":
		v := false
		resolved = &v
	}
	resp, err := h.svc.Alerts(c.Request.Context(), resolved)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResolveAlert marks an open alert as manually resolved.
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStock lists active products at or below their minimum stock level.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	resp, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
