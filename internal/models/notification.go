package models

import "time"

type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "task_assigned"
	NotificationTaskStatusChanged NotificationType = "task_status_changed"
	NotificationNewComment        NotificationType = "new_comment"
	NotificationTaskDueSoon       NotificationType = "task_due_soon"
	NotificationTaskCompleted     NotificationType = "task_completed"
	NotificationMentioned         NotificationType = "mentioned"
)

type Notification struct {
	ID               uint64           `gorm:"primarykey" json:"id"`
	UserID           uint64           `gorm:"not null;index" json:"userId"`
	Type             NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Title            string           `gorm:"type:varchar(255);not null" json:"title"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	RelatedTaskID    *uint64          `gorm:"index" json:"relatedTaskId"`
	RelatedCommentID *uint64          `json:"relatedCommentId"`
	ActionURL        string           `gorm:"type:varchar(500)" json:"actionUrl"`
	Read             bool             `gorm:"column:is_read;not null;default:false;index" json:"read"`
	ReadAt           *time.Time       `json:"readAt"`
	CreatedAt        time.Time        `gorm:"index" json:"createdAt"`

	// Relations
	RelatedTask *Task `gorm:"foreignKey:RelatedTaskID" json:"-"`
}
