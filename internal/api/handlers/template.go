package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scaf-dev/scaf/internal/auth"
	"github.com/scaf-dev/scaf/internal/counter"
	"github.com/scaf-dev/scaf/internal/models"
	"github.com/scaf-dev/scaf/internal/pagination"
	"github.com/scaf-dev/scaf/internal/rbac"
	"github.com/scaf-dev/scaf/internal/service"
)

// TemplateHandler exposes the template service over HTTP. It parses
// requests, checks ownership on mutations, and maps service errors to
// status codes; all storage work happens in the service.
type TemplateHandler struct {
	svc       *service.TemplateService
	downloads counter.Counter
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc *service.TemplateService, downloads counter.Counter) *TemplateHandler {
	return &TemplateHandler{svc: svc, downloads: downloads}
}

// CreateTemplateRequest is the POST /template body.
type CreateTemplateRequest struct {
	Name        string            `json:"name" binding:"required"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Language    string            `json:"language"`
	Tags        []string          `json:"tags"`
	Status      string            `json:"status"`
	Args        []models.Argument `json:"args"`
	Steps       []models.Step     `json:"steps"`
}

// UpdateTemplateRequest is the PUT /template/{username}/{id} body.
// Absent fields are left unchanged.
type UpdateTemplateRequest struct {
	Name        *string           `json:"name"`
	Version     *string           `json:"version"`
	Description *string           `json:"description"`
	Language    *string           `json:"language"`
	Tags        []string          `json:"tags"`
	Status      *string           `json:"status"`
	Args        []models.Argument `json:"args"`
	Steps       []models.Step     `json:"steps"`
}

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
		return
	}
	slog.Error("unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

// ListTemplates godoc
// @Summary List templates
// @Tags templates
// @Produce json
// @Param page query string false "Page number (min 1)"
// @Param limit query string false "Page size (1-50, default 10)"
// @Param search query string false "Case-insensitive match on name or description"
// @Param status query string false "Filter by status; omits discarded templates by default"
// @Success 200 {object} pagination.Response[models.Template]
// @Failure 500 {object} ErrorResponse
// @Router /template [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	opts := pagination.Normalize(c.Query("page"), c.Query("limit"), c.Query("search"))
	status := models.TemplateStatus(c.Query("status"))

	result, err := h.svc.List(c.Request.Context(), opts, status)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateTemplate godoc
// @Summary Create a new template
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param template body CreateTemplateRequest true "Template definition"
// @Success 201 {object} models.Template
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /template [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization"})
		return
	}

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	tpl, err := h.svc.Create(c.Request.Context(), service.CreateRequest{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		Language:    req.Language,
		Tags:        req.Tags,
		Status:      req.Status,
		Args:        req.Args,
		Steps:       req.Steps,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := rbac.GrantTemplateOwnership(actor.ID, tpl.ID); err != nil {
		slog.Error("failed to grant template ownership", "template", tpl.ID, "error", err)
	}

	c.JSON(http.StatusCreated, tpl)
}

// GetTemplate godoc
// @Summary Get a template by its composite identity
// @Tags templates
// @Produce json
// @Param username path string true "Owner username"
// @Param id path string true "Template name"
// @Success 200 {object} models.Template
// @Failure 404 {object} ErrorResponse
// @Router /template/{username}/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.svc.Get(c.Request.Context(), templateID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// UpdateTemplate godoc
// @Summary Partially update a template
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param username path string true "Owner username"
// @Param id path string true "Template name"
// @Param template body UpdateTemplateRequest true "Fields to change"
// @Success 200 {object} models.Template
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /template/{username}/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	actor, id, ok := h.requireOwnership(c)
	if !ok {
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	tpl, err := h.svc.Update(c.Request.Context(), id, service.UpdateRequest{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		Language:    req.Language,
		Tags:        req.Tags,
		Status:      req.Status,
		Args:        req.Args,
		Steps:       req.Steps,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate godoc
// @Summary Discard a template
// @Description Soft-delete: the template's status becomes "discarded". It drops out of default listings but stays readable by ID.
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param username path string true "Owner username"
// @Param id path string true "Template name"
// @Success 200 {object} models.Template
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /template/{username}/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	actor, id, ok := h.requireOwnership(c)
	if !ok {
		return
	}

	tpl, err := h.svc.Discard(c.Request.Context(), id, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// StarTemplate godoc
// @Summary Star a template
// @Description Reserved; currently returns an empty object.
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param username path string true "Owner username"
// @Param id path string true "Template name"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Router /template/{username}/{id} [post]
func (h *TemplateHandler) StarTemplate(c *gin.Context) {
	// TODO: starring needs a per-user star table before it can persist anything
	c.JSON(http.StatusOK, gin.H{})
}

// ExportTemplate godoc
// @Summary Export a template as a downloadable JSON document
// @Tags templates
// @Produce json
// @Param username path string true "Owner username"
// @Param id path string true "Template name"
// @Success 200 {object} models.Template
// @Failure 404 {object} ErrorResponse
// @Router /template/{username}/{id}/export [get]
func (h *TemplateHandler) ExportTemplate(c *gin.Context) {
	id := templateID(c)

	tpl, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	n, err := h.downloads.Incr(c.Request.Context(), id)
	if err != nil {
		slog.Warn("failed to count download", "template", id, "error", err)
	} else {
		tpl.Downloads = n
		if err := h.svc.SyncDownloads(c.Request.Context(), id, n); err != nil {
			slog.Warn("failed to sync download count", "template", id, "error", err)
		}
	}

	filename := strings.ReplaceAll(id, "/", "-") + ".json"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, tpl)
}

// requireOwnership resolves the caller and checks write access on the
// addressed template. Writes the error response itself when access is
// denied.
func (h *TemplateHandler) requireOwnership(c *gin.Context) (auth.CurrentUser, string, bool) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization"})
		return auth.CurrentUser{}, "", false
	}

	id := templateID(c)
	allowed, err := rbac.CanEditTemplate(actor.ID, id)
	if err != nil {
		slog.Error("ownership check failed", "template", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return auth.CurrentUser{}, "", false
	}
	if !allowed {
		if admin, err := rbac.IsAdmin(actor.ID); err == nil && admin {
			allowed = true
		}
	}
	if !allowed {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the template owner"})
		return auth.CurrentUser{}, "", false
	}
	return actor, id, true
}

// templateID rebuilds the composite identity from the route params.
func templateID(c *gin.Context) string {
	return models.TemplateID(c.Param("username"), c.Param("id"))
}
