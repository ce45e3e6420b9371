package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// NotificationTaskDTO is the related task summary of a notification
type NotificationTaskDTO struct {
	ID     uint64            `json:"id"`
	Title  string            `json:"title"`
	Status models.TaskStatus `json:"status"`
}

// NotificationDTO represents a notification in API responses
type NotificationDTO struct {
	ID               uint64                  `json:"id"`
	Type             models.NotificationType `json:"type"`
	Title            string                  `json:"title"`
	Message          string                  `json:"message"`
	RelatedTaskID    *uint64                 `json:"relatedTaskId"`
	RelatedCommentID *uint64                 `json:"relatedCommentId"`
	ActionURL        string                  `json:"actionUrl"`
	Read             bool                    `json:"read"`
	ReadAt           *time.Time              `json:"readAt"`
	CreatedAt        time.Time               `json:"createdAt"`
	Task             *NotificationTaskDTO    `json:"task,omitempty"`
}

// NotificationListResponse represents a page of notifications
type NotificationListResponse struct {
	Notifications []NotificationDTO        `json:"notifications"`
	UnreadCount   int64                    `json:"unreadCount"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(notification models.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:               notification.ID,
		Type:             notification.Type,
		Title:            notification.Title,
		Message:          notification.Message,
		RelatedTaskID:    notification.RelatedTaskID,
		RelatedCommentID: notification.RelatedCommentID,
		ActionURL:        notification.ActionURL,
		Read:             notification.Read,
		ReadAt:           notification.ReadAt,
		CreatedAt:        notification.CreatedAt,
	}

	if task := notification.RelatedTask; task != nil && task.ID != 0 {
		dto.Task = &NotificationTaskDTO{
			ID:     task.ID,
			Title:  task.Title,
			Status: task.Status,
		}
	}

	return dto
}

// ToNotificationListResponse converts a notification page
func ToNotificationListResponse(notifications []models.Notification, unread int64, pagination utils.PaginationResponse) NotificationListResponse {
	items := make([]NotificationDTO, len(notifications))
	for i, notification := range notifications {
		items[i] = ToNotificationDTO(notification)
	}

	return NotificationListResponse{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    pagination,
	}
}
