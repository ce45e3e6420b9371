package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Template struct {
	ID              uint64                      `gorm:"primarykey" json:"id"`
	UserID          uint64                      `gorm:"not null;index" json:"userId"`
	Name            string                      `gorm:"type:varchar(255);not null" json:"name"`
	Description     string                      `gorm:"type:text" json:"description"`
	Title           string                      `gorm:"type:varchar(255);not null" json:"title"`
	TaskDescription string                      `gorm:"type:text" json:"taskDescription"`
	Priority        TaskPriority                `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
	ChecklistItems  datatypes.JSONSlice[string] `json:"checklistItems"`
	IsPublic        bool                        `gorm:"not null;default:false;index" json:"isPublic"`
	UsageCount      int64                       `gorm:"not null;default:0" json:"usageCount"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt              `gorm:"index" json:"-"`

	// Relations
	Owner User `gorm:"foreignKey:UserID" json:"owner,omitempty"`
}

// TemplateUsage is an append-only record of one instantiation.
type TemplateUsage struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	TemplateID uint64    `gorm:"not null;index" json:"templateId"`
	UserID     uint64    `gorm:"not null;index" json:"userId"`
	TaskID     *uint64   `gorm:"index" json:"taskId"`
	UsedAt     time.Time `gorm:"not null" json:"usedAt"`
}

// TemplateStats is aggregated from TemplateUsage rows on read.
type TemplateStats struct {
	TotalUses   int64      `json:"totalUses"`
	UniqueUsers int64      `json:"uniqueUsers"`
	LastUsed    *time.Time `json:"lastUsed"`
}
