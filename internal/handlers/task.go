package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         *zap.Logger
}

func NewTaskHandler(taskService *services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// ListTasks returns tasks the current user created or is assigned to.
// Supports status, priority and search filters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.taskService.ListTasks(c.Request.Context(), services.ListTasksInput{
		UserID:   userID,
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
		Page:     utils.GetPaginationParams(c),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(list.Tasks, list.Pagination))
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(middleware.GetIDParam(c, "taskId"), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Title       string     `json:"title" binding:"required,max=200"`
		Description string     `json:"description" binding:"max=2000"`
		Priority    string     `json:"priority"`
		Status      string     `json:"status"`
		DueDate     *time.Time `json:"dueDate"`
		Tags        []string   `json:"tags"`
		AssignedTo  *uint64    `json:"assignedTo"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.TaskPriority(req.Priority),
		Status:      models.TaskStatus(req.Status),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates the fields present in the body. An explicit null
// dueDate clears the due date.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := parseTaskUpdate(rawReq)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), middleware.GetIDParam(c, "taskId"), userID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func parseTaskUpdate(rawReq map[string]any) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	for _, field := range []string{"title", "description", "priority", "status"} {
		value, ok := rawReq[field]
		if !ok {
			continue
		}
		str, ok := value.(string)
		if !ok {
			return input, fmt.Errorf("%s must be a string", field)
		}
		switch field {
		case "title":
			input.Title = &str
		case "description":
			input.Description = &str
		case "priority":
			priority := models.TaskPriority(str)
			input.Priority = &priority
		case "status":
			status := models.TaskStatus(str)
			input.Status = &status
		}
	}

	if value, ok := rawReq["dueDate"]; ok {
		// dueDate was provided (might be null)
		if value == nil {
			input.ClearDueDate = true
		} else {
			dueDateStr, ok := value.(string)
			if !ok {
				return input, fmt.Errorf("dueDate must be an RFC 3339 string or null")
			}
			parsedTime, err := time.Parse(time.RFC3339, dueDateStr)
			if err != nil {
				return input, fmt.Errorf("dueDate must be an RFC 3339 string or null")
			}
			input.DueDate = &parsedTime
		}
	}

	if value, ok := rawReq["tags"]; ok {
		input.SetTags = true
		if value != nil {
			items, ok := value.([]any)
			if !ok {
				return input, fmt.Errorf("tags must be a list of strings")
			}
			for _, item := range items {
				tag, ok := item.(string)
				if !ok {
					return input, fmt.Errorf("tags must be a list of strings")
				}
				input.Tags = append(input.Tags, tag)
			}
		}
	}

	if value, ok := rawReq["assignedTo"]; ok {
		// JSON numbers decode as float64
		id, ok := value.(float64)
		if !ok || id < 1 || id != float64(uint64(id)) {
			return input, fmt.Errorf("assignedTo must be a user ID")
		}
		assignee := uint64(id)
		input.AssignedTo = &assignee
	}

	return input, nil
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), middleware.GetIDParam(c, "taskId"), userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// GenerateTasksFromText drafts tasks from free text with the AI service.
// The drafts are returned for review and not saved.
func (h *TaskHandler) GenerateTasksFromText(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text:      req.Text,
		CreatorID: userID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}
