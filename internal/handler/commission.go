package handler

import (
	"net/http"
	"time"

	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"

	"github.com/gin-gonic/gin"
)

type CommissionHandler struct{ svc service.CommissionService }

func NewCommissionHandler(svc service.CommissionService) *CommissionHandler {
	return &CommissionHandler{svc: svc}
}

// Create accrues a commission for a completed sale, optionally overriding
// the seller's configured rate.
func (h *CommissionHandler) Create(c *gin.Context) {
	var req dto.CreateCommissionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List returns commissions filtered by seller, status, and period.
func (h *CommissionHandler) List(c *gin.Context) {
	from, to := queryTimeRange(c)
	resp, err := h.svc.List(c.Request.Context(), queryUUID(c, "seller_id"), c.Query("status"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pay godoc
// @Summary Liquida comissões pendentes, gerando o lançamento de despesa
// @Tags commissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.PayCommissionsRequest true "Comissões a pagar"
// @Success 200 {array} dto.CommissionResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/commissions/pay [post]
func (h *CommissionHandler) Pay(c *gin.Context) {
	var req dto.PayCommissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Pay(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel voids a commission; a paid one generates the reversal entry.
func (h *CommissionHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report aggregates commissions per seller over a period.
// Defaults to the last 30 days when no range is given.
func (h *CommissionHandler) Report(c *gin.Context) {
	from, to := queryTimeRange(c)
	now := time.Now()
	if to == nil {
		to = &now
	}
	if from == nil {
		f := to.AddDate(0, 0, -30)
		from = &f
	}
	resp, err := h.svc.Report(c.Request.Context(), *from, *to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
