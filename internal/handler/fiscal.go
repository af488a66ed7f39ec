package handler

import (
	"net/http"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"

	"github.com/gin-gonic/gin"
)

type FiscalHandler struct{ svc service.FiscalService }

func NewFiscalHandler(svc service.FiscalService) *FiscalHandler { return &FiscalHandler{svc: svc} }

func (h *FiscalHandler) GetConfig(c *gin.Context) {
	resp, err := h.svc.GetConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveConfig creates or updates the emitter configuration.
func (h *FiscalHandler) SaveConfig(c *gin.Context) {
	var req dto.FiscalConfigRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SaveConfig(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UploadCertificate godoc
// @Summary Carrega o certificado digital A1 (PFX) do emitente
// @Tags fiscal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.UploadCertificateRequest true "PFX em base64 e senha"
// @Success 200 {object} dto.FiscalConfigResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/fiscal/certificate [post]
func (h *FiscalHandler) UploadCertificate(c *gin.Context) {
	var req dto.UploadCertificateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UploadCertificate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Issue godoc
// @Summary Emite a NFC-e de uma venda concluída
// @Tags fiscal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.IssueNFCeRequest true "Venda a documentar"
// @Success 201 {object} dto.FiscalDocumentResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/fiscal/documents [post]
func (h *FiscalHandler) Issue(c *gin.Context) {
	var req dto.IssueNFCeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.IssueNFCe(c.Request.Context(), req.SaleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *FiscalHandler) GetDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FiscalHandler) GetDocumentBySale(c *gin.Context) {
	id, ok := pathID(c, "sale_id")
	if !ok {
		return
	}
	resp, err := h.svc.GetDocumentBySale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListDocuments returns fiscal documents filtered by status and period.
func (h *FiscalHandler) ListDocuments(c *gin.Context) {
	from, to := queryTimeRange(c)
	resp, err := h.svc.ListDocuments(c.Request.Context(), c.Query("status"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Retry forces an immediate resubmission of a pending or errored document.
func (h *FiscalHandler) Retry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.RetryDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary Cancela um documento fiscal (evento 110111 quando autorizado)
// @Tags fiscal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do documento"
// @Param body body dto.CancelSaleRequest true "Justificativa"
// @Success 200 {object} dto.FiscalDocumentResponse
// @Failure 422 {object} apperr.APIError
// @Router /v1/fiscal/documents/{id} [delete]
func (h *FiscalHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CancelDocument(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadPDF streams the DANFE-NFC-e thermal receipt PDF.
func (h *FiscalHandler) DownloadPDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if doc.PDFPath == nil {
		c.JSON(http.StatusNotFound, apperr.New("PDF ainda não gerado para este documento"))
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(*doc.PDFPath)
}

// GeneratePix creates a standalone PIX charge (EMV BR Code).
func (h *FiscalHandler) GeneratePix(c *gin.Context) {
	var req dto.GeneratePixRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GeneratePix(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *FiscalHandler) ListPixBySale(c *gin.Context) {
	id, ok := pathID(c, "sale_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListPixBySale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
