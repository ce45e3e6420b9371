package dto

import (
	"fmt"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// AttachmentDTO represents an uploaded file in API responses
type AttachmentDTO struct {
	ID            uint64          `json:"id"`
	TaskID        uint64          `json:"taskId"`
	UserID        uint64          `json:"userId"`
	FileName      string          `json:"fileName"`
	OriginalName  string          `json:"originalName"`
	MimeType      string          `json:"mimeType"`
	FileSize      int64           `json:"fileSize"`
	FormattedSize string          `json:"formattedSize"`
	Icon          string          `json:"icon"`
	DownloadURL   string          `json:"downloadUrl"`
	CreatedAt     time.Time       `json:"createdAt"`
	Uploader      *UserSummaryDTO `json:"uploader,omitempty"`
}

// AttachmentListResponse lists a task's files with their combined size
type AttachmentListResponse struct {
	Attachments        []AttachmentDTO `json:"attachments"`
	Count              int             `json:"count"`
	TotalSize          int64           `json:"totalSize"`
	TotalSizeFormatted string          `json:"totalSizeFormatted"`
}

// ToAttachmentDTO converts an Attachment model to AttachmentDTO
func ToAttachmentDTO(attachment models.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:            attachment.ID,
		TaskID:        attachment.TaskID,
		UserID:        attachment.UserID,
		FileName:      attachment.FileName,
		OriginalName:  attachment.OriginalName,
		MimeType:      attachment.MimeType,
		FileSize:      attachment.FileSize,
		FormattedSize: utils.FormatFileSize(attachment.FileSize),
		Icon:          utils.FileIcon(attachment.MimeType),
		DownloadURL:   fmt.Sprintf("/api/attachments/%d/download", attachment.ID),
		CreatedAt:     attachment.CreatedAt,
		Uploader:      toUserSummary(attachment.Uploader),
	}
}

// ToAttachmentDTOs converts a list of attachments
func ToAttachmentDTOs(attachments []models.Attachment) []AttachmentDTO {
	items := make([]AttachmentDTO, len(attachments))
	for i, attachment := range attachments {
		items[i] = ToAttachmentDTO(attachment)
	}
	return items
}

// ToAttachmentListResponse converts a task's attachments
func ToAttachmentListResponse(attachments []models.Attachment, totalSize int64) AttachmentListResponse {
	return AttachmentListResponse{
		Attachments:        ToAttachmentDTOs(attachments),
		Count:              len(attachments),
		TotalSize:          totalSize,
		TotalSizeFormatted: utils.FormatFileSize(totalSize),
	}
}
