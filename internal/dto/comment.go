package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// CommentDTO represents a comment or activity entry in API responses
type CommentDTO struct {
	ID        uint64             `json:"id"`
	TaskID    uint64             `json:"taskId"`
	UserID    uint64             `json:"userId"`
	Content   string             `json:"content"`
	Type      models.CommentType `json:"type"`
	Edited    bool               `json:"edited"`
	Action    string             `json:"action,omitempty"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	User      *UserSummaryDTO    `json:"user,omitempty"`
}

// CommentListResponse represents a paginated task history
type CommentListResponse struct {
	Comments   []CommentDTO             `json:"comments"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToCommentDTO converts a stored comment row to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		Type:      comment.Type,
		Edited:    comment.Edited,
		Action:    comment.Action,
		Metadata:  comment.Metadata,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
		User:      toUserSummary(comment.User),
	}
}

// ToCommentDTOs converts comment rows
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	items := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		items[i] = ToCommentDTO(comment)
	}
	return items
}

// ToActivityDTOs converts activity entries
func ToActivityDTOs(entries []models.ActivityEntry) []CommentDTO {
	items := make([]CommentDTO, len(entries))
	for i, entry := range entries {
		items[i] = ToCommentDTO(*entry.Row())
	}
	return items
}
