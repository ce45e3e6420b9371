package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/cache"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/realtime"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// FileRemover deletes stored attachment files.
type FileRemover interface {
	Remove(path string) error
}

// TaskService handles task business logic. Every mutation commits first and
// then runs its activity, notification, cache and push follow-ups.
type TaskService struct {
	tasks      repository.TaskRepository
	users      repository.UserRepository
	activity   *ActivityRecorder
	dispatcher *Dispatcher
	cache      *cache.Store
	pusher     realtime.Pusher
	files      FileRemover
	aiService  *AIService
	log        *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	activity *ActivityRecorder,
	dispatcher *Dispatcher,
	cacheStore *cache.Store,
	pusher realtime.Pusher,
	files FileRemover,
	aiService *AIService,
	log *zap.Logger,
) *TaskService {
	return &TaskService{
		tasks:      tasks,
		users:      users,
		activity:   activity,
		dispatcher: dispatcher,
		cache:      cacheStore,
		pusher:     pusher,
		files:      files,
		aiService:  aiService,
		log:        log,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID   uint64
	Status   string
	Priority string
	Search   string
	Page     utils.PaginationParams
}

// TaskList is one page of tasks. It is also the cached value.
type TaskList struct {
	Tasks      []models.Task            `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	Status      models.TaskStatus
	DueDate     *time.Time
	Tags        []string
	AssignedTo  *uint64
}

// UpdateTaskInput represents input for updating a task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	Tags         []string
	SetTags      bool
	AssignedTo   *uint64
}

// ListTasks returns the tasks the user created or is assigned to, through
// the read-through cache.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) (*TaskList, error) {
	filter := repository.TaskFilter{
		UserID: input.UserID,
		Search: strings.TrimSpace(input.Search),
		Page:   input.Page,
	}
	if input.Status != "" {
		status := models.TaskStatus(input.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		filter.Status = &status
	}
	if input.Priority != "" {
		priority := models.TaskPriority(input.Priority)
		if !priority.Valid() {
			return nil, ErrInvalidPriority
		}
		filter.Priority = &priority
	}

	key := cache.TaskListKey(input.UserID, input.Status, input.Priority, filter.Search, input.Page.Page, input.Page.Limit)

	var cached TaskList
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	tasks, total, err := s.tasks.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := &TaskList{
		Tasks:      tasks,
		Pagination: input.Page.Response(total),
	}
	s.cache.SetJSON(ctx, key, result)
	return result, nil
}

// GetTask returns a task the user can access
func (s *TaskService) GetTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.findTask(taskID, "Creator", "Assignee")
	if err != nil {
		return nil, err
	}
	if !task.CanAccess(userID) {
		return nil, ErrTaskAccessDenied
	}
	return task, nil
}

// CanAccess reports whether the user may see the task. Lookup failures
// count as no.
func (s *TaskService) CanAccess(_ context.Context, userID, taskID uint64) bool {
	_, err := s.GetTask(taskID, userID)
	return err == nil
}

// CreateTask creates a task. The assignee defaults to the creator.
func (s *TaskService) CreateTask(ctx context.Context, creatorID uint64, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	creator, err := s.findUser(creatorID)
	if err != nil {
		return nil, err
	}

	assigneeID := creatorID
	if input.AssignedTo != nil && *input.AssignedTo != 0 {
		assigneeID = *input.AssignedTo
	}
	if assigneeID != creatorID {
		if _, err := s.findAssignee(assigneeID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      input.Status,
		DueDate:     input.DueDate,
		Tags:        normalizeTags(input.Tags),
		CreatedBy:   creatorID,
		AssignedTo:  assigneeID,
	}

	if err := s.tasks.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	task = s.reload(task)

	steps := []followUp{
		step("record task_created", func() error {
			_, err := s.activity.Record(task.ID, creatorID, ActionTaskCreated, nil)
			return err
		}),
	}
	if assigneeID != creatorID {
		steps = append(steps, step("notify assignee", func() error {
			return s.dispatcher.TaskAssigned(task, assigneeID, creator)
		}))
	}
	steps = append(steps,
		step("invalidate task lists", func() error {
			return s.invalidateTaskLists(ctx, creatorID, assigneeID)
		}),
		step("push task:created", func() error {
			for _, userID := range Recipients([]uint64{creatorID, assigneeID}, 0) {
				s.pusher.PushToUser(userID, realtime.EventTaskCreated, task)
			}
			return nil
		}),
	)
	_ = runFollowUps(s.log, "create task", steps...)

	return task, nil
}

// UpdateTask applies the allowed fields, then records one activity entry and
// fires the matching trigger per changed field, in the order status,
// priority, assignee, due date.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanAccess(actorID) {
		return nil, ErrTaskAccessDenied
	}

	actor, err := s.findUser(actorID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	var newAssignee *models.User
	if input.AssignedTo != nil && *input.AssignedTo != task.AssignedTo {
		newAssignee, err = s.findAssignee(*input.AssignedTo)
		if err != nil {
			return nil, err
		}
	}

	old := *task
	fields := make(map[string]any)

	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
		fields["title"] = task.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
		fields["description"] = task.Description
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
		fields["priority"] = task.Priority
	}
	if input.Status != nil {
		task.Status = *input.Status
		fields["status"] = task.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
		fields["due_date"] = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
		fields["due_date"] = *input.DueDate
	}
	if input.SetTags {
		task.Tags = normalizeTags(input.Tags)
		fields["tags"] = task.Tags
	}
	if newAssignee != nil {
		task.AssignedTo = newAssignee.ID
		fields["assigned_to"] = task.AssignedTo
	}

	if len(fields) > 0 {
		if err := s.tasks.UpdateFields(task.ID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
	}

	// The diff covers only what this request wrote; the reloaded row may
	// also carry other writers' changes.
	applied := *task
	task = s.reload(task)

	var steps []followUp

	if old.Status != applied.Status {
		steps = append(steps,
			step("record status_changed", func() error {
				_, err := s.activity.Record(task.ID, actorID, ActionStatusChanged, map[string]any{
					"oldStatus": string(old.Status),
					"newStatus": string(applied.Status),
				})
				return err
			}),
			step("notify status change", func() error {
				return s.dispatcher.TaskStatusChanged(task, actor)
			}),
		)

		switch {
		case applied.Status == models.TaskStatusCompleted:
			steps = append(steps,
				step("record task_completed", func() error {
					_, err := s.activity.Record(task.ID, actorID, ActionTaskCompleted, nil)
					return err
				}),
				step("notify completion", func() error {
					return s.dispatcher.TaskCompleted(task, actor)
				}),
			)
		case old.Status == models.TaskStatusCompleted && applied.Status != models.TaskStatusArchived:
			steps = append(steps, step("record task_reopened", func() error {
				_, err := s.activity.Record(task.ID, actorID, ActionTaskReopened, nil)
				return err
			}))
		}
	}

	if old.Priority != applied.Priority {
		steps = append(steps, step("record priority_changed", func() error {
			_, err := s.activity.Record(task.ID, actorID, ActionPriorityChanged, map[string]any{
				"oldPriority": string(old.Priority),
				"newPriority": string(applied.Priority),
			})
			return err
		}))
	}

	if newAssignee != nil {
		steps = append(steps,
			step("record assigned", func() error {
				_, err := s.activity.Record(task.ID, actorID, ActionAssigned, map[string]any{
					"assigneeId":   newAssignee.ID,
					"assigneeName": newAssignee.FullName(),
				})
				return err
			}),
			step("notify assignee", func() error {
				return s.dispatcher.TaskAssigned(task, newAssignee.ID, actor)
			}),
		)
		if !task.CanAccess(old.AssignedTo) {
			steps = append(steps, step("revoke live subscriptions", func() error {
				s.pusher.RevokeTask(old.AssignedTo, task.ID)
				return nil
			}))
		}
	}

	if !sameTime(old.DueDate, applied.DueDate) {
		steps = append(steps, step("record due_date_changed", func() error {
			_, err := s.activity.Record(task.ID, actorID, ActionDueDateChanged, map[string]any{
				"newDueDate": formatDueDate(applied.DueDate),
			})
			return err
		}))
	}

	steps = append(steps,
		step("invalidate task lists", func() error {
			return s.invalidateTaskLists(ctx, actorID, task.CreatedBy, old.AssignedTo, task.AssignedTo)
		}),
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(task.ID))
		}),
		step("push task:updated", func() error {
			s.pusher.PushToTask(task.ID, realtime.EventTaskUpdated, task)
			return nil
		}),
	)
	_ = runFollowUps(s.log, "update task", steps...)

	return task, nil
}

// DeleteTask removes a task and its comments and attachments. Only the
// creator may delete.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	task, err := s.findTask(taskID)
	if err != nil {
		return err
	}
	if task.CreatedBy != actorID {
		return ErrNotTaskCreator
	}

	paths, err := s.tasks.Delete(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	_ = runFollowUps(s.log, "delete task",
		step("remove attachment files", func() error {
			var errs error
			for _, path := range paths {
				errs = multierr.Append(errs, s.files.Remove(path))
			}
			return errs
		}),
		step("invalidate task lists", func() error {
			return s.invalidateTaskLists(ctx, actorID, task.CreatedBy, task.AssignedTo)
		}),
		step("invalidate comment lists", func() error {
			return s.cache.Invalidate(ctx, cache.CommentListPrefix(task.ID))
		}),
		step("push task:deleted", func() error {
			payload := map[string]uint64{"id": task.ID}
			s.pusher.PushToTask(task.ID, realtime.EventTaskDeleted, payload)
			for _, userID := range Recipients([]uint64{task.CreatedBy, task.AssignedTo}, 0) {
				s.pusher.PushToUser(userID, realtime.EventTaskDeleted, payload)
			}
			return nil
		}),
	)

	return nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text      string
	CreatorID uint64
}

// GenerateTasks drafts tasks from free text. Nothing is persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrGenerateTextRequired
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !aiTask.Priority.Valid() {
			aiTask.Priority = models.TaskPriorityMedium
		}
		aiTask.Tags = normalizeTags(aiTask.Tags)

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) findTask(taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.tasks.FindByID(taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) findUser(userID uint64) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *TaskService) findAssignee(userID uint64) (*models.User, error) {
	user, err := s.findUser(userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidAssignee
	}
	return user, err
}

// reload fetches the task with its relations. The write already committed,
// so a failed reload falls back to the in-memory copy.
func (s *TaskService) reload(task *models.Task) *models.Task {
	reloaded, err := s.tasks.FindByID(task.ID, "Creator", "Assignee")
	if err != nil {
		s.log.Warn("failed to reload task", zap.Uint64("task_id", task.ID), zap.Error(err))
		return task
	}
	return reloaded
}

func (s *TaskService) invalidateTaskLists(ctx context.Context, userIDs ...uint64) error {
	ids := Recipients(userIDs, 0)
	prefixes := make([]string, len(ids))
	for i, id := range ids {
		prefixes[i] = cache.TaskListPrefix(id)
	}
	return s.cache.Invalidate(ctx, prefixes...)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
