package handler

import (
	"net/http"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/middleware"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"

	"github.com/gin-gonic/gin"
)

type ShiftHandler struct{ svc service.ShiftService }

func NewShiftHandler(svc service.ShiftService) *ShiftHandler { return &ShiftHandler{svc: svc} }

// Open godoc
// @Summary Abre um turno de caixa para o operador autenticado
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenShiftRequest true "Fundo de troco"
// @Success 201 {object} dto.ShiftResponse
// @Failure 409 {object} apperr.APIError
// @Router /v1/shifts [post]
func (h *ShiftHandler) Open(c *gin.Context) {
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Fecha o turno com contagem cega do caixa
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do turno"
// @Param body body dto.CloseShiftRequest true "Valor contado"
// @Success 200 {object} dto.ShiftResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movement records a manual cash supply or withdrawal on an open shift.
func (h *ShiftHandler) Movement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordMovement(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Summary returns the running totals of a shift (expected cash, sales by method).
func (h *ShiftHandler) Summary(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Current returns the open shift of the authenticated operator, if any.
func (h *ShiftHandler) Current(c *gin.Context) {
	resp, err := h.svc.Current(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apperr.New("Nenhum turno aberto"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History lists past shifts, optionally filtered by operator and period.
func (h *ShiftHandler) History(c *gin.Context) {
	from, to := queryTimeRange(c)
	resp, err := h.svc.History(c.Request.Context(), queryUUID(c, "user_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
