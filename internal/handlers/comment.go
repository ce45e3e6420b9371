package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

type CommentHandler struct {
	commentService *services.CommentService
	log            *zap.Logger
}

func NewCommentHandler(commentService *services.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            log,
	}
}

type commentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// ListComments returns a task's history, oldest first. Activity entries are
// included unless includeActivity=false.
func (h *CommentHandler) ListComments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	includeActivity := true
	if raw := c.Query("includeActivity"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.InvalidFormat(c, "includeActivity must be a boolean")
			return
		}
		includeActivity = parsed
	}

	list, err := h.commentService.ListComments(
		c.Request.Context(),
		middleware.GetIDParam(c, "taskId"),
		userID,
		includeActivity,
		utils.GetPaginationParamsWithDefault(c, constants.DefaultCommentPageSize),
	)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.CommentListResponse{
		Comments:   dto.ToCommentDTOs(list.Comments),
		Pagination: list.Pagination,
	})
}

// ListActivity returns only the activity entries of a task
func (h *CommentHandler) ListActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	entries, err := h.commentService.ListActivity(middleware.GetIDParam(c, "taskId"), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": dto.ToActivityDTOs(entries),
	})
}

// CreateComment adds a user comment to a task
func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), middleware.GetIDParam(c, "taskId"), userID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment.Row()))
}

// UpdateComment edits the content of the caller's own comment
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), middleware.GetIDParam(c, "commentId"), userID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentDTO(*comment.Row()))
}

// DeleteComment removes a comment
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), middleware.GetIDParam(c, "commentId"), userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
