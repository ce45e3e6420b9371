package repository

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create creates a new notification
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Omit("RelatedTask").Create(notification).Error
}

// List retrieves a user's notifications, newest first
func (r *GormNotificationRepository) List(filter NotificationFilter) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{}).Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.Preload("RelatedTask").Order("created_at DESC").Order("id DESC").
		Scopes(database.Paginate(filter.Page)).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// CountUnread counts unread notifications of a user
func (r *GormNotificationRepository) CountUnread(userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification of the user as read
func (r *GormNotificationRepository) MarkRead(id, userID uint64, at time.Time) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&notification).Updates(map[string]any{"is_read": true, "read_at": at}).Error; err != nil {
		return nil, err
	}

	notification.Read = true
	notification.ReadAt = &at
	return &notification, nil
}

// MarkAllRead flags every unread notification of the user as read
func (r *GormNotificationRepository) MarkAllRead(userID uint64, at time.Time) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

// Delete removes one notification of the user
func (r *GormNotificationRepository) Delete(id, userID uint64) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAll removes every notification of the user
func (r *GormNotificationRepository) DeleteAll(userID uint64) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan removes notifications created before cutoff
func (r *GormNotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// ExistsSince reports whether a matching notification was already created
func (r *GormNotificationRepository) ExistsSince(userID, taskID uint64, kind models.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND related_task_id = ? AND type = ? AND created_at >= ?", userID, taskID, kind, since).
		Count(&count).Error
	return count > 0, err
}
