package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citavers/citavers-api/internal/service"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/response"
)

// CollectionHandler exposes collection endpoints.
type CollectionHandler struct {
	collections *service.CollectionService
}

// NewCollectionHandler constructs CollectionHandler.
func NewCollectionHandler(collections *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// List godoc
// @Summary List collections
// @Tags Collections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /collections [get]
func (h *CollectionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	collections, err := h.collections.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collections, nil)
}

// Create godoc
// @Summary Create a collection
// @Tags Collections
// @Accept json
// @Produce json
// @Param payload body service.CollectionRequest true "Collection payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.collections.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, collection)
}

// Update godoc
// @Summary Update a collection
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path int true "Collection ID"
// @Param payload body service.CollectionRequest true "Collection payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /collections/{id} [put]
func (h *CollectionHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid collection id"))
		return
	}
	var req service.CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.collections.Update(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Delete godoc
// @Summary Delete a collection
// @Tags Collections
// @Produce json
// @Param id path int true "Collection ID"
// @Success 204
// @Security BearerAuth
// @Router /collections/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid collection id"))
		return
	}
	if err := h.collections.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPapers godoc
// @Summary List the papers in a collection
// @Tags Collections
// @Produce json
// @Param id path int true "Collection ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /collections/{id}/papers [get]
func (h *CollectionHandler) ListPapers(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid collection id"))
		return
	}
	papers, err := h.collections.ListPapers(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, nil)
}

// AddPaper godoc
// @Summary Add a paper to a collection
// @Tags Collections
// @Produce json
// @Param id path int true "Collection ID"
// @Param paperId path int true "Paper ID"
// @Success 204
// @Security BearerAuth
// @Router /collections/{id}/papers/{paperId} [post]
func (h *CollectionHandler) AddPaper(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid collection id"))
		return
	}
	paperID, ok := paramID(c, "paperId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	if err := h.collections.AddPaper(c.Request.Context(), claims.UserID, id, paperID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemovePaper godoc
// @Summary Remove a paper from a collection
// @Tags Collections
// @Produce json
// @Param id path int true "Collection ID"
// @Param paperId path int true "Paper ID"
// @Success 204
// @Security BearerAuth
// @Router /collections/{id}/papers/{paperId} [delete]
func (h *CollectionHandler) RemovePaper(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid collection id"))
		return
	}
	paperID, ok := paramID(c, "paperId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	if err := h.collections.RemovePaper(c.Request.Context(), claims.UserID, id, paperID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
