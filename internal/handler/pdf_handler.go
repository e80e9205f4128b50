package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citavers/citavers-api/internal/dto"
	"github.com/citavers/citavers-api/internal/service"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/response"
)

// PDFHandler exposes PDF attachment endpoints.
type PDFHandler struct {
	pdfs *service.PDFService
}

// NewPDFHandler constructs PDFHandler.
func NewPDFHandler(pdfs *service.PDFService) *PDFHandler {
	return &PDFHandler{pdfs: pdfs}
}

// PresignUpload godoc
// @Summary Request a presigned PDF upload URL
// @Tags PDFs
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/pdf/upload [post]
func (h *PDFHandler) PresignUpload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	paperID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	result, err := h.pdfs.PresignUpload(c.Request.Context(), claims.UserID, paperID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ConfirmUpload godoc
// @Summary Confirm a completed PDF upload
// @Tags PDFs
// @Accept json
// @Produce json
// @Param id path int true "Paper ID"
// @Param payload body dto.ConfirmUploadRequest true "Upload confirmation"
// @Success 204
// @Security BearerAuth
// @Router /papers/{id}/pdf/confirm [post]
func (h *PDFHandler) ConfirmUpload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	paperID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	var req dto.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.pdfs.ConfirmUpload(c.Request.Context(), claims.UserID, paperID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PresignDownload godoc
// @Summary Request a presigned PDF download URL
// @Tags PDFs
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/pdf [get]
func (h *PDFHandler) PresignDownload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	paperID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	result, err := h.pdfs.PresignDownload(c.Request.Context(), claims.UserID, paperID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
