package constants

import "time"

// Session and context keys
const (
	ContextKeyUserID  = "user_id"
	SessionCookieName = "taskflow_session"
)

// Auth
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize            = 1
	DefaultPageSize        = 20
	DefaultCommentPageSize = 50
	MaxPageSize            = 100
)

// Notifications
const (
	PreviewLength       = 50
	DueSoonWindow       = 24 * time.Hour
	NotificationMaxAge  = 30 * 24 * time.Hour
	ProductivityPeriod  = 30 * 24 * time.Hour
	MaxAIGeneratedTasks = 20
)

// Attachments
const (
	MaxFilesPerUpload  = 5
	DefaultMaxFileSize = 10 << 20
	RecentUploadsLimit = 10
)

// Cache
const (
	DefaultCacheTTL = 5 * time.Minute
)
