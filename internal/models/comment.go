package models

import (
	"time"

	"gorm.io/datatypes"
)

type CommentType string

const (
	CommentTypeComment  CommentType = "comment"
	CommentTypeActivity CommentType = "activity"
)

// Comment is the storage row shared by user comments and activity entries.
// Code outside the repository works with Entry instead.
type Comment struct {
	ID        uint64            `gorm:"primarykey" json:"id"`
	TaskID    uint64            `gorm:"not null;index" json:"taskId"`
	UserID    uint64            `gorm:"not null;index" json:"userId"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	Type      CommentType       `gorm:"type:varchar(20);not null;default:'comment'" json:"type"`
	Edited    bool              `gorm:"not null;default:false" json:"edited"`
	Action    string            `gorm:"type:varchar(50)" json:"action,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Entry is one item of a task's history: either a UserComment or an
// ActivityEntry. The interface is sealed.
type Entry interface {
	Row() *Comment
	isEntry()
}

// UserComment is an entry written by a user. Only this variant can be
// edited or deleted.
type UserComment struct {
	*Comment
}

// ActivityEntry is a system-generated, immutable entry.
type ActivityEntry struct {
	*Comment
}

func (c UserComment) Row() *Comment   { return c.Comment }
func (a ActivityEntry) Row() *Comment { return a.Comment }

func (UserComment) isEntry()   {}
func (ActivityEntry) isEntry() {}

// AsEntry wraps a stored row into its variant.
func AsEntry(row *Comment) Entry {
	if row.Type == CommentTypeActivity {
		return ActivityEntry{Comment: row}
	}
	return UserComment{Comment: row}
}
