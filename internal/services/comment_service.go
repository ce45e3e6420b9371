package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/cache"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/realtime"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

var mentionPattern = regexp.MustCompile(`(?:^|\s)@([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)

// CommentService handles comments and the activity timeline of tasks.
type CommentService struct {
	comments   repository.CommentRepository
	tasks      repository.TaskRepository
	users      repository.UserRepository
	dispatcher *Dispatcher
	cache      *cache.Store
	pusher     realtime.Pusher
	log        *zap.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(
	comments repository.CommentRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	dispatcher *Dispatcher,
	cacheStore *cache.Store,
	pusher realtime.Pusher,
	log *zap.Logger,
) *CommentService {
	return &CommentService{
		comments:   comments,
		tasks:      tasks,
		users:      users,
		dispatcher: dispatcher,
		cache:      cacheStore,
		pusher:     pusher,
		log:        log,
	}
}

// CommentList is one page of a task's history. It is also the cached value.
type CommentList struct {
	Comments   []models.Comment         `json:"comments"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ListComments returns a task's entries oldest first, through the
// read-through cache.
func (s *CommentService) ListComments(ctx context.Context, taskID, userID uint64, includeActivity bool, page utils.PaginationParams) (*CommentList, error) {
	if _, err := s.accessibleTask(taskID, userID); err != nil {
		return nil, err
	}

	key := cache.CommentListKey(taskID, includeActivity, page.Page, page.Limit)

	var cached CommentList
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	entries, total, err := s.comments.ListByTask(taskID, includeActivity, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	rows := make([]models.Comment, len(entries))
	for i, entry := range entries {
		rows[i] = *entry.Row()
	}

	result := &CommentList{
		Comments:   rows,
		Pagination: page.Response(total),
	}
	s.cache.SetJSON(ctx, key, result)
	return result, nil
}

// ListActivity returns only the activity entries of a task, newest first.
func (s *CommentService) ListActivity(taskID, userID uint64) ([]models.ActivityEntry, error) {
	if _, err := s.accessibleTask(taskID, userID); err != nil {
		return nil, err
	}

	entries, err := s.comments.ListActivity(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

// CreateComment adds a user comment, then notifies the task's participants
// and any mentioned users.
func (s *CommentService) CreateComment(ctx context.Context, taskID, userID uint64, content string) (*models.UserComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}

	task, err := s.accessibleTask(taskID, userID)
	if err != nil {
		return nil, err
	}

	commenter, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	row := &models.Comment{
		TaskID:  taskID,
		UserID:  userID,
		Content: content,
		Type:    models.CommentTypeComment,
	}
	if err := s.comments.Create(row); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	row.User = *commenter
	comment := &models.UserComment{Comment: row}

	steps := []followUp{
		step("notify participants", func() error {
			return s.dispatcher.NewComment(task, row, commenter)
		}),
		step("notify mentions", func() error {
			return s.notifyMentions(task, row, commenter)
		}),
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(taskID))
		}),
		step("push comment:created", func() error {
			s.pusher.PushToTaskComments(taskID, realtime.EventCommentCreated, row)
			return nil
		}),
	}
	_ = runFollowUps(s.log, "create comment", steps...)

	return comment, nil
}

// UpdateComment rewrites a comment. Only its author may edit, and activity
// entries are immutable.
func (s *CommentService) UpdateComment(ctx context.Context, commentID, userID uint64, content string) (*models.UserComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}

	entry, err := s.findEntry(commentID)
	if err != nil {
		return nil, err
	}

	var comment models.UserComment
	switch e := entry.(type) {
	case models.UserComment:
		comment = e
	case models.ActivityEntry:
		return nil, ErrActivityImmutable
	default:
		return nil, ErrCommentNotFound
	}

	if comment.UserID != userID {
		return nil, ErrNotCommentAuthor
	}

	if err := s.comments.UpdateContent(comment, content); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	_ = runFollowUps(s.log, "update comment",
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(comment.TaskID))
		}),
		step("push comment:updated", func() error {
			s.pusher.PushToTaskComments(comment.TaskID, realtime.EventCommentUpdated, comment.Comment)
			return nil
		}),
	)

	return &comment, nil
}

// DeleteComment removes a comment. The author and the task creator may
// delete; activity entries cannot be deleted.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID uint64) error {
	entry, err := s.findEntry(commentID)
	if err != nil {
		return err
	}

	comment, ok := entry.(models.UserComment)
	if !ok {
		return ErrActivityImmutable
	}

	if comment.UserID != userID {
		task, err := s.tasks.FindByID(comment.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}
		if task.CreatedBy != userID {
			return ErrCommentDeleteDenied
		}
	}

	if err := s.comments.Delete(comment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	_ = runFollowUps(s.log, "delete comment",
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(comment.TaskID))
		}),
		step("push comment:deleted", func() error {
			s.pusher.PushToTaskComments(comment.TaskID, realtime.EventCommentDeleted, map[string]uint64{
				"id":     comment.ID,
				"taskId": comment.TaskID,
			})
			return nil
		}),
	)

	return nil
}

// notifyMentions sends a mention notification to each existing user whose
// email appears as @email in the comment.
func (s *CommentService) notifyMentions(task *models.Task, comment *models.Comment, commenter *models.User) error {
	emails := ParseMentions(comment.Content)
	if len(emails) == 0 {
		return nil
	}

	users, err := s.users.FindByEmails(emails)
	if err != nil {
		return fmt.Errorf("failed to resolve mentions: %w", err)
	}

	var errs error
	for i := range users {
		errs = multierr.Append(errs, s.dispatcher.Mentioned(task, comment, users[i].ID, commenter))
	}
	return errs
}

// ParseMentions returns the distinct lower-cased emails mentioned as @email.
func ParseMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	emails := make([]string, 0, len(matches))
	for _, match := range matches {
		email := strings.ToLower(strings.TrimRight(match[1], "."))
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}

func (s *CommentService) accessibleTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if !task.CanAccess(userID) {
		return nil, ErrTaskAccessDenied
	}
	return task, nil
}

func (s *CommentService) findEntry(commentID uint64) (models.Entry, error) {
	entry, err := s.comments.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return entry, nil
}
