package services

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/realtime"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

const dueDateLayout = "Jan 2, 2006"

// Dispatcher creates notifications for the supported triggers and pushes
// each one to the recipient's live sessions.
type Dispatcher struct {
	notifications repository.NotificationRepository
	pusher        realtime.Pusher
	log           *zap.Logger
}

func NewDispatcher(notifications repository.NotificationRepository, pusher realtime.Pusher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		pusher:        pusher,
		log:           log,
	}
}

// TaskAssigned notifies the assignee unless they assigned themselves.
func (d *Dispatcher) TaskAssigned(task *models.Task, assigneeID uint64, assigner *models.User) error {
	return d.deliver(Recipients([]uint64{assigneeID}, assigner.ID), func() *models.Notification {
		return &models.Notification{
			Type:          models.NotificationTaskAssigned,
			Title:         "New Task Assignment",
			Message:       fmt.Sprintf("%s assigned you to %q", assigner.FullName(), task.Title),
			RelatedTaskID: ptr(task.ID),
			ActionURL:     taskURL(task.ID),
		}
	})
}

// TaskStatusChanged notifies creator and assignee, except the actor.
func (d *Dispatcher) TaskStatusChanged(task *models.Task, actor *models.User) error {
	return d.deliver(Recipients([]uint64{task.CreatedBy, task.AssignedTo}, actor.ID), func() *models.Notification {
		return &models.Notification{
			Type:          models.NotificationTaskStatusChanged,
			Title:         "Task Status Updated",
			Message:       fmt.Sprintf("%s changed %q status to %s", actor.FullName(), task.Title, task.Status),
			RelatedTaskID: ptr(task.ID),
			ActionURL:     taskURL(task.ID),
		}
	})
}

// TaskCompleted notifies the creator unless they completed the task.
func (d *Dispatcher) TaskCompleted(task *models.Task, completer *models.User) error {
	return d.deliver(Recipients([]uint64{task.CreatedBy}, completer.ID), func() *models.Notification {
		return &models.Notification{
			Type:          models.NotificationTaskCompleted,
			Title:         "Task Completed",
			Message:       fmt.Sprintf("%s completed %q", completer.FullName(), task.Title),
			RelatedTaskID: ptr(task.ID),
			ActionURL:     taskURL(task.ID),
		}
	})
}

// NewComment notifies creator and assignee, except the commenter.
func (d *Dispatcher) NewComment(task *models.Task, comment *models.Comment, commenter *models.User) error {
	return d.deliver(Recipients([]uint64{task.CreatedBy, task.AssignedTo}, commenter.ID), func() *models.Notification {
		return &models.Notification{
			Type:             models.NotificationNewComment,
			Title:            "New Comment",
			Message:          fmt.Sprintf("%s commented on %q: %s", commenter.FullName(), task.Title, Preview(comment.Content)),
			RelatedTaskID:    ptr(task.ID),
			RelatedCommentID: ptr(comment.ID),
			ActionURL:        commentsURL(task.ID),
		}
	})
}

// Mentioned notifies a mentioned user unless they wrote the comment.
func (d *Dispatcher) Mentioned(task *models.Task, comment *models.Comment, mentionedID uint64, commenter *models.User) error {
	return d.deliver(Recipients([]uint64{mentionedID}, commenter.ID), func() *models.Notification {
		return &models.Notification{
			Type:             models.NotificationMentioned,
			Title:            "You Were Mentioned",
			Message:          fmt.Sprintf("%s mentioned you in %q: %s", commenter.FullName(), task.Title, Preview(comment.Content)),
			RelatedTaskID:    ptr(task.ID),
			RelatedCommentID: ptr(comment.ID),
			ActionURL:        commentsURL(task.ID),
		}
	})
}

// TaskDueSoon notifies the assignee. There is no actor to suppress.
func (d *Dispatcher) TaskDueSoon(task *models.Task) error {
	if task.DueDate == nil {
		return nil
	}
	return d.deliver(Recipients([]uint64{task.AssignedTo}, 0), func() *models.Notification {
		return &models.Notification{
			Type:          models.NotificationTaskDueSoon,
			Title:         "Task Due Soon",
			Message:       fmt.Sprintf("%q is due on %s", task.Title, task.DueDate.Format(dueDateLayout)),
			RelatedTaskID: ptr(task.ID),
			ActionURL:     taskURL(task.ID),
		}
	})
}

// deliver persists one notification per recipient and pushes it. A failure
// for one recipient does not stop the others.
func (d *Dispatcher) deliver(recipients []uint64, build func() *models.Notification) error {
	var errs error
	for _, userID := range recipients {
		notification := build()
		notification.UserID = userID

		if err := d.notifications.Create(notification); err != nil {
			d.log.Warn("failed to create notification",
				zap.Uint64("user_id", userID),
				zap.String("type", string(notification.Type)),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("notify user %d: %w", userID, err))
			continue
		}

		d.push(notification)
	}
	return errs
}

func (d *Dispatcher) push(notification *models.Notification) {
	if d.pusher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("notification push panicked", zap.Uint64("notification_id", notification.ID), zap.Any("panic", r))
		}
	}()
	d.pusher.PushToUser(notification.UserID, realtime.EventNotificationNew, notification)
}

// Preview shortens comment text for notification messages.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= constants.PreviewLength {
		return content
	}
	return string(runes[:constants.PreviewLength]) + "..."
}

func taskURL(taskID uint64) string {
	return fmt.Sprintf("/tasks/%d", taskID)
}

func commentsURL(taskID uint64) string {
	return fmt.Sprintf("/tasks/%d#comments", taskID)
}

func ptr[T any](v T) *T {
	return &v
}

func formatDueDate(due *time.Time) string {
	if due == nil {
		return "none"
	}
	return due.Format(dueDateLayout)
}
