package repository

import (
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormAttachmentRepository is a GORM implementation of AttachmentRepository
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// CreateBatch inserts several attachments in one transaction
func (r *GormAttachmentRepository) CreateBatch(attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Uploader").Create(&attachments).Error
	})
}

// FindByID finds an attachment by ID
func (r *GormAttachmentRepository) FindByID(id uint64) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.Preload("Uploader").First(&attachment, id).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ListByTask lists attachments of a task, newest first
func (r *GormAttachmentRepository) ListByTask(taskID uint64) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := r.db.Preload("Uploader").
		Where("task_id = ?", taskID).
		Order("created_at DESC").Order("id DESC").
		Find(&attachments).Error
	return attachments, err
}

// ListRecentByUser lists the latest uploads of a user
func (r *GormAttachmentRepository) ListRecentByUser(userID uint64, limit int) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&attachments).Error
	return attachments, err
}

// Delete removes an attachment row
func (r *GormAttachmentRepository) Delete(id uint64) error {
	result := r.db.Delete(&models.Attachment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
