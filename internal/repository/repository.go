package repository

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByEmails returns the users whose email is in the list
	FindByEmails(emails []string) ([]models.User, error)

	// Update saves profile fields of a user
	Update(user *models.User) error

	// TouchLastLogin sets the last login timestamp
	TouchLastLogin(id uint64, at time.Time) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// UserID restricts results to tasks the user created or is assigned to
	UserID   uint64
	Status   *models.TaskStatus
	Priority *models.TaskPriority
	Search   string
	Page     utils.PaginationParams
}

// TaskStatusCounts is a per-status count of tasks assigned to a user
type TaskStatusCounts struct {
	Total      int64 `json:"totalTasks"`
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"inProgress"`
	Todo       int64 `json:"todo"`
	Overdue    int64 `json:"overdue"`
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// UpdateFields writes only the given columns of a task. It returns
	// gorm.ErrRecordNotFound when the task no longer exists.
	UpdateFields(id uint64, fields map[string]any) error

	// Delete removes a task with its comments and attachments, detaching
	// notifications and template usage records. It returns the storage paths
	// of the removed attachments.
	Delete(id uint64) ([]string, error)

	// FindDueBetween lists open tasks due in [from, to)
	FindDueBetween(from, to time.Time) ([]models.Task, error)

	// CountByStatusForAssignee aggregates task counts for the assignee
	CountByStatusForAssignee(userID uint64, now time.Time) (TaskStatusCounts, error)

	// ListUpdatedSinceForAssignee lists tasks assigned to the user updated after since
	ListUpdatedSinceForAssignee(userID uint64, since time.Time) ([]models.Task, error)

	// ListCompletedForAssignee lists completed tasks assigned to the user
	ListCompletedForAssignee(userID uint64) ([]models.Task, error)
}

// CommentRepository defines the interface for comment and activity data access
type CommentRepository interface {
	// Create inserts a comment or activity row
	Create(row *models.Comment) error

	// FindByID finds an entry by ID
	FindByID(id uint64) (models.Entry, error)

	// ListByTask lists entries of a task, oldest first
	ListByTask(taskID uint64, includeActivity bool, page utils.PaginationParams) ([]models.Entry, int64, error)

	// ListActivity lists the activity entries of a task, newest first
	ListActivity(taskID uint64) ([]models.ActivityEntry, error)

	// UpdateContent rewrites a user comment and marks it edited
	UpdateContent(comment models.UserComment, content string) error

	// Delete removes a user comment
	Delete(comment models.UserComment) error
}

// NotificationFilter holds filtering options for listing notifications
type NotificationFilter struct {
	UserID     uint64
	UnreadOnly bool
	Page       utils.PaginationParams
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create creates a new notification
	Create(notification *models.Notification) error

	// List retrieves a user's notifications, newest first, with the related task
	List(filter NotificationFilter) ([]models.Notification, int64, error)

	// CountUnread counts unread notifications of a user
	CountUnread(userID uint64) (int64, error)

	// MarkRead flags one notification of the user as read
	MarkRead(id, userID uint64, at time.Time) (*models.Notification, error)

	// MarkAllRead flags every unread notification of the user as read
	MarkAllRead(userID uint64, at time.Time) (int64, error)

	// Delete removes one notification of the user
	Delete(id, userID uint64) error

	// DeleteAll removes every notification of the user
	DeleteAll(userID uint64) (int64, error)

	// DeleteOlderThan removes notifications created before cutoff
	DeleteOlderThan(cutoff time.Time) (int64, error)

	// ExistsSince reports whether the user already has a notification of the
	// given type for the task created at or after since
	ExistsSince(userID, taskID uint64, kind models.NotificationType, since time.Time) (bool, error)
}

// TemplateFilter holds filtering options for listing templates
type TemplateFilter struct {
	UserID        uint64
	IncludePublic bool
	PublicOnly    bool
	Search        string
	Limit         int
}

// TemplateRepository defines the interface for template data access
type TemplateRepository interface {
	// Create creates a new template
	Create(template *models.Template) error

	// FindByID finds a template by ID
	FindByID(id uint64) (*models.Template, error)

	// List retrieves templates matching the filter, most used first
	List(filter TemplateFilter) ([]models.Template, error)

	// Update saves a template
	Update(template *models.Template) error

	// Delete soft deletes a template; usage records are kept
	Delete(id uint64) error

	// CreateTaskFromTemplate inserts the task and its usage record and
	// increments the template's usage counter in one transaction
	CreateTaskFromTemplate(task *models.Task, usage *models.TemplateUsage) error

	// Stats aggregates the usage records of a template
	Stats(templateID uint64) (*models.TemplateStats, error)
}

// AttachmentRepository defines the interface for attachment data access
type AttachmentRepository interface {
	// CreateBatch inserts several attachments in one transaction
	CreateBatch(attachments []models.Attachment) error

	// FindByID finds an attachment by ID
	FindByID(id uint64) (*models.Attachment, error)

	// ListByTask lists attachments of a task, newest first, with uploaders
	ListByTask(taskID uint64) ([]models.Attachment, error)

	// ListRecentByUser lists the latest uploads of a user
	ListRecentByUser(userID uint64, limit int) ([]models.Attachment, error)

	// Delete removes an attachment row
	Delete(id uint64) error
}
