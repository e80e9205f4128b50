package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citavers/citavers-api/internal/service"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/response"
)

// CitationHandler exposes citation-graph endpoints.
type CitationHandler struct {
	citations *service.CitationService
}

// NewCitationHandler constructs CitationHandler.
func NewCitationHandler(citations *service.CitationService) *CitationHandler {
	return &CitationHandler{citations: citations}
}

// Create godoc
// @Summary Record a citation between two papers
// @Tags Citations
// @Accept json
// @Produce json
// @Param payload body service.CreateCitationRequest true "Citation payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /citations [post]
func (h *CitationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateCitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	citation, err := h.citations.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, citation)
}

// Delete godoc
// @Summary Delete a citation
// @Tags Citations
// @Produce json
// @Param id path int true "Citation ID"
// @Success 204
// @Security BearerAuth
// @Router /citations/{id} [delete]
func (h *CitationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid citation id"))
		return
	}
	if err := h.citations.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Network godoc
// @Summary Get a paper's citation network
// @Tags Citations
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/citations [get]
func (h *CitationHandler) Network(c *gin.Context) {
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
	network, err := h.citations.Network(c.Request.Context(), claims.UserID, paperID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, network, nil)
}
