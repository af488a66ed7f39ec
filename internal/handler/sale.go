package handler

import (
	"net/http"

	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/middleware"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct{ svc service.SaleService }

func NewSaleHandler(svc service.SaleService) *SaleHandler { return &SaleHandler{svc: svc} }

// Create godoc
// @Summary Registra uma venda no turno aberto do operador
// @Tags sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateSaleRequest true "Itens e pagamentos"
// @Success 201 {object} dto.SaleResponse
// @Failure 400 {object} apperr.APIError
// @Failure 422 {object} apperr.APIError
// @Router /v1/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cancel godoc
// @Summary Cancela uma venda, estornando estoque, caixa e comissão
// @Tags sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da venda"
// @Param body body dto.CancelSaleRequest true "Motivo do cancelamento"
// @Success 200 {object} dto.SaleResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/sales/{id}/cancel [post]
func (h *SaleHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List returns sales filtered by shift and period.
func (h *SaleHandler) List(c *gin.Context) {
	from, to := queryTimeRange(c)
	resp, err := h.svc.List(c.Request.Context(), queryUUID(c, "shift_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
