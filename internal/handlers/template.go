package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

const defaultPublicTemplateLimit = 20

type TemplateHandler struct {
	templateService *services.TemplateService
	log             *zap.Logger
}

func NewTemplateHandler(templateService *services.TemplateService, log *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		log:             log,
	}
}

// ListTemplates returns the caller's templates, plus public ones when
// includePublic=true.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	templates, err := h.templateService.ListOwn(userID, c.Query("includePublic") == "true")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": dto.ToTemplateDTOs(templates)})
}

// ListPublicTemplates returns public templates, most used first
func (h *TemplateHandler) ListPublicTemplates(c *gin.Context) {
	limit := defaultPublicTemplateLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			apierrors.InvalidFormat(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	templates, err := h.templateService.ListPublic(limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": dto.ToTemplateDTOs(templates)})
}

func (h *TemplateHandler) SearchTemplates(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	templates, err := h.templateService.Search(userID, c.Query("q"), c.Query("publicOnly") == "true")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": dto.ToTemplateDTOs(templates)})
}

// GetTemplate returns a template with its usage statistics
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	template, err := h.templateService.Get(middleware.GetIDParam(c, "templateId"), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := dto.ToTemplateDTO(template.Template)
	resp.Stats = &template.Stats
	c.JSON(http.StatusOK, resp)
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Name            string   `json:"name" binding:"required,max=100"`
		Description     string   `json:"description" binding:"max=500"`
		Title           string   `json:"title" binding:"required,max=200"`
		TaskDescription string   `json:"taskDescription" binding:"max=2000"`
		Priority        string   `json:"priority"`
		Tags            []string `json:"tags"`
		ChecklistItems  []string `json:"checklistItems"`
		IsPublic        bool     `json:"isPublic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	template, err := h.templateService.Create(userID, services.TemplateInput{
		Name:            req.Name,
		Description:     req.Description,
		Title:           req.Title,
		TaskDescription: req.TaskDescription,
		Priority:        models.TaskPriority(req.Priority),
		Tags:            req.Tags,
		ChecklistItems:  req.ChecklistItems,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTemplateDTO(*template))
}

// UpdateTemplate changes the fields present in the body. Owner only.
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Name            *string   `json:"name" binding:"omitempty,max=100"`
		Description     *string   `json:"description" binding:"omitempty,max=500"`
		Title           *string   `json:"title" binding:"omitempty,max=200"`
		TaskDescription *string   `json:"taskDescription" binding:"omitempty,max=2000"`
		Priority        *string   `json:"priority"`
		Tags            *[]string `json:"tags"`
		ChecklistItems  *[]string `json:"checklistItems"`
		IsPublic        *bool     `json:"isPublic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTemplateInput{
		Name:            req.Name,
		Description:     req.Description,
		Title:           req.Title,
		TaskDescription: req.TaskDescription,
		IsPublic:        req.IsPublic,
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.Tags != nil {
		input.Tags = *req.Tags
		input.SetTags = true
	}
	if req.ChecklistItems != nil {
		input.ChecklistItems = *req.ChecklistItems
		input.SetChecklist = true
	}

	template, err := h.templateService.Update(middleware.GetIDParam(c, "templateId"), userID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTemplateDTO(*template))
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.templateService.Delete(middleware.GetIDParam(c, "templateId"), userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}

// UseTemplate creates a task from a template. Body fields override the
// template defaults.
func (h *TemplateHandler) UseTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Title       string     `json:"title" binding:"max=200"`
		Description string     `json:"description" binding:"max=2000"`
		Priority    string     `json:"priority"`
		Tags        []string   `json:"tags"`
		AssignedTo  *uint64    `json:"assignedTo"`
		DueDate     *time.Time `json:"dueDate"`
	}
	// An empty body uses every default
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	task, template, err := h.templateService.Instantiate(c.Request.Context(), middleware.GetIDParam(c, "templateId"), userID, services.InstantiateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.TaskPriority(req.Priority),
		Tags:        req.Tags,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"task":     dto.ToTaskDTO(*task),
		"template": template,
	})
}

// DuplicateTemplate copies a readable template into the caller's own
// private template.
func (h *TemplateHandler) DuplicateTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	template, err := h.templateService.Duplicate(middleware.GetIDParam(c, "templateId"), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTemplateDTO(*template))
}
