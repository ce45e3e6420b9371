package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// NotificationService exposes a user's notification inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	now           func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		now:           time.Now,
	}
}

// NotificationList is one page of notifications plus the unread total.
type NotificationList struct {
	Notifications []models.Notification    `json:"notifications"`
	UnreadCount   int64                    `json:"unreadCount"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(userID uint64, unreadOnly bool, page utils.PaginationParams) (*NotificationList, error) {
	notifications, total, err := s.notifications.List(repository.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.notifications.CountUnread(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &NotificationList{
		Notifications: notifications,
		UnreadCount:   unread,
		Pagination:    page.Response(total),
	}, nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *NotificationService) UnreadCount(userID uint64) (int64, error) {
	count, err := s.notifications.CountUnread(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(id, userID uint64) (*models.Notification, error) {
	notification, err := s.notifications.MarkRead(id, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return notification, nil
}

// MarkAllRead flags all of the user's notifications as read and returns how
// many changed.
func (s *NotificationService) MarkAllRead(userID uint64) (int64, error) {
	count, err := s.notifications.MarkAllRead(userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return count, nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(id, userID uint64) error {
	if err := s.notifications.Delete(id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// DeleteAll clears the user's inbox.
func (s *NotificationService) DeleteAll(userID uint64) (int64, error) {
	count, err := s.notifications.DeleteAll(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return count, nil
}

// PurgeOlderThan removes notifications older than maxAge.
func (s *NotificationService) PurgeOlderThan(maxAge time.Duration) (int64, error) {
	count, err := s.notifications.DeleteOlderThan(s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return count, nil
}
