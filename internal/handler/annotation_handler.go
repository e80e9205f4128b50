package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citavers/citavers-api/internal/service"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/response"
)

// AnnotationHandler exposes annotation endpoints.
type AnnotationHandler struct {
	annotations *service.AnnotationService
}

// NewAnnotationHandler constructs AnnotationHandler.
func NewAnnotationHandler(annotations *service.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{annotations: annotations}
}

// List godoc
// @Summary List a paper's annotations
// @Tags Annotations
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/annotations [get]
func (h *AnnotationHandler) List(c *gin.Context) {
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
	annotations, err := h.annotations.List(c.Request.Context(), claims.UserID, paperID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annotations, nil)
}

// Create godoc
// @Summary Annotate a paper
// @Tags Annotations
// @Accept json
// @Produce json
// @Param id path int true "Paper ID"
// @Param payload body service.CreateAnnotationRequest true "Annotation payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id}/annotations [post]
func (h *AnnotationHandler) Create(c *gin.Context) {
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
	var req service.CreateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	annotation, err := h.annotations.Create(c.Request.Context(), claims.UserID, paperID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, annotation)
}

// Update godoc
// @Summary Update an annotation
// @Tags Annotations
// @Accept json
// @Produce json
// @Param id path int true "Annotation ID"
// @Param payload body service.UpdateAnnotationRequest true "Annotation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /annotations/{id} [put]
func (h *AnnotationHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid annotation id"))
		return
	}
	var req service.UpdateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	annotation, err := h.annotations.Update(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annotation, nil)
}

// Delete godoc
// @Summary Delete an annotation
// @Tags Annotations
// @Produce json
// @Param id path int true "Annotation ID"
// @Success 204
// @Security BearerAuth
// @Router /annotations/{id} [delete]
func (h *AnnotationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid annotation id"))
		return
	}
	if err := h.annotations.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
