package models

import "time"

type Attachment struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	TaskID       uint64    `gorm:"not null;index" json:"taskId"`
	UserID       uint64    `gorm:"not null;index" json:"userId"`
	FileName     string    `gorm:"type:varchar(255);not null" json:"fileName"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"originalName"`
	MimeType     string    `gorm:"type:varchar(100);not null" json:"mimeType"`
	FileSize     int64     `gorm:"not null" json:"fileSize"`
	FilePath     string    `gorm:"type:varchar(500);not null" json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`

	// Relations
	Uploader User `gorm:"foreignKey:UserID" json:"uploader,omitempty"`
}
