package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/citavers/citavers-api/internal/dto"
	"github.com/citavers/citavers-api/internal/models"
	"github.com/citavers/citavers-api/internal/service"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/response"
)

// PaperHandler exposes paper endpoints.
type PaperHandler struct {
	papers *service.PaperService
	export *service.ExportService
}

// NewPaperHandler constructs PaperHandler.
func NewPaperHandler(papers *service.PaperService, export *service.ExportService) *PaperHandler {
	return &PaperHandler{papers: papers, export: export}
}

// List godoc
// @Summary List papers
// @Tags Papers
// @Produce json
// @Param status query string false "Filter by reading status"
// @Param tag query string false "Filter by tag"
// @Param search query string false "Search in title and authors"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers [get]
func (h *PaperHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := paperFilterFromQuery(c)

	papers, pagination, err := h.papers.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, pagination)
}

// Get godoc
// @Summary Get paper detail
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id} [get]
func (h *PaperHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	paper, err := h.papers.Get(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Create godoc
// @Summary Create a paper
// @Tags Papers
// @Accept json
// @Produce json
// @Param payload body service.CreatePaperRequest true "Paper payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /papers [post]
func (h *PaperHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	paper, err := h.papers.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paper)
}

// Update godoc
// @Summary Update a paper
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path int true "Paper ID"
// @Param payload body service.UpdatePaperRequest true "Paper payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/{id} [put]
func (h *PaperHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	var req service.UpdatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	paper, err := h.papers.Update(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Delete godoc
// @Summary Soft-delete a paper
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 204
// @Security BearerAuth
// @Router /papers/{id} [delete]
func (h *PaperHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}
	if err := h.papers.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Batch godoc
// @Summary Execute batch operations
// @Tags Papers
// @Accept json
// @Produce json
// @Param payload body dto.BatchRequest true "Batch operations"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /papers/batch [post]
func (h *PaperHandler) Batch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.papers.Batch(c.Request.Context(), claims.UserID, req.Operations)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Export godoc
// @Summary Export the bibliography
// @Tags Papers
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "Export format: csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /papers/export [get]
func (h *PaperHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	filter := paperFilterFromQuery(c)

	file, err := h.export.Bibliography(c.Request.Context(), claims.UserID, format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func paperFilterFromQuery(c *gin.Context) models.PaperFilter {
	var filter models.PaperFilter
	filter.Status = c.Query("status")
	filter.Tag = c.Query("tag")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
