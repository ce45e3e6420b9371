package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusArchived   TaskStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusArchived:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          uint64                      `gorm:"primarykey" json:"id"`
	Title       string                      `gorm:"type:varchar(255);not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Priority    TaskPriority                `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status      TaskStatus                  `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	DueDate     *time.Time                  `gorm:"index" json:"dueDate"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	CreatedBy   uint64                      `gorm:"not null;index" json:"createdBy"`
	AssignedTo  uint64                      `gorm:"not null;index" json:"assignedTo"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	// Relations
	Creator  User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Assignee User `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
}

// CanAccess reports whether userID is the creator or the assignee.
func (t Task) CanAccess(userID uint64) bool {
	return t.CreatedBy == userID || t.AssignedTo == userID
}
