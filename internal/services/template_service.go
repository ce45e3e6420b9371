package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/cache"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/realtime"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

// TemplateService manages task templates and turns them into tasks.
type TemplateService struct {
	templates  repository.TemplateRepository
	tasks      repository.TaskRepository
	users      repository.UserRepository
	activity   *ActivityRecorder
	dispatcher *Dispatcher
	cache      *cache.Store
	pusher     realtime.Pusher
	log        *zap.Logger
	now        func() time.Time
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	templates repository.TemplateRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	activity *ActivityRecorder,
	dispatcher *Dispatcher,
	cacheStore *cache.Store,
	pusher realtime.Pusher,
	log *zap.Logger,
) *TemplateService {
	return &TemplateService{
		templates:  templates,
		tasks:      tasks,
		users:      users,
		activity:   activity,
		dispatcher: dispatcher,
		cache:      cacheStore,
		pusher:     pusher,
		log:        log,
		now:        time.Now,
	}
}

// TemplateInput represents input for creating a template
type TemplateInput struct {
	Name            string
	Description     string
	Title           string
	TaskDescription string
	Priority        models.TaskPriority
	Tags            []string
	ChecklistItems  []string
	IsPublic        bool
}

// UpdateTemplateInput represents input for updating a template. Nil fields
// are left unchanged.
type UpdateTemplateInput struct {
	Name            *string
	Description     *string
	Title           *string
	TaskDescription *string
	Priority        *models.TaskPriority
	Tags            []string
	SetTags         bool
	ChecklistItems  []string
	SetChecklist    bool
	IsPublic        *bool
}

// InstantiateInput holds per-field overrides. Empty values fall back to the
// template's defaults.
type InstantiateInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	Tags        []string
	AssignedTo  *uint64
	DueDate     *time.Time
}

// TemplateSummary identifies the template a task was created from.
type TemplateSummary struct {
	ID             uint64   `json:"id"`
	Name           string   `json:"name"`
	ChecklistItems []string `json:"checklistItems"`
}

// TemplateWithStats is a template with its aggregated usage.
type TemplateWithStats struct {
	models.Template
	Stats models.TemplateStats `json:"stats"`
}

// Create creates a template owned by the user.
func (s *TemplateService) Create(userID uint64, input TemplateInput) (*models.Template, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTemplateNameRequired
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTemplateTitleRequired
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	template := &models.Template{
		UserID:          userID,
		Name:            name,
		Description:     input.Description,
		Title:           title,
		TaskDescription: input.TaskDescription,
		Priority:        input.Priority,
		Tags:            normalizeTags(input.Tags),
		ChecklistItems:  trimItems(input.ChecklistItems),
		IsPublic:        input.IsPublic,
	}

	if err := s.templates.Create(template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return s.reload(template), nil
}

// Get returns a template the user owns or that is public, with usage stats.
func (s *TemplateService) Get(templateID, userID uint64) (*TemplateWithStats, error) {
	template, err := s.readable(templateID, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.templates.Stats(templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template stats: %w", err)
	}

	return &TemplateWithStats{Template: *template, Stats: *stats}, nil
}

// ListOwn returns the user's templates, optionally with public ones.
func (s *TemplateService) ListOwn(userID uint64, includePublic bool) ([]models.Template, error) {
	templates, err := s.templates.List(repository.TemplateFilter{
		UserID:        userID,
		IncludePublic: includePublic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// ListPublic returns public templates, most used first.
func (s *TemplateService) ListPublic(limit int) ([]models.Template, error) {
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	templates, err := s.templates.List(repository.TemplateFilter{
		PublicOnly: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list public templates: %w", err)
	}
	return templates, nil
}

// Search matches name, description and title case-insensitively within
// either public templates or the user's own plus public ones.
func (s *TemplateService) Search(userID uint64, query string, publicOnly bool) ([]models.Template, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrSearchQueryRequired
	}

	templates, err := s.templates.List(repository.TemplateFilter{
		UserID:        userID,
		IncludePublic: !publicOnly,
		PublicOnly:    publicOnly,
		Search:        query,
		Limit:         constants.DefaultPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search templates: %w", err)
	}
	return templates, nil
}

// Update changes the allowed fields of a template. Owner only.
func (s *TemplateService) Update(templateID, userID uint64, input UpdateTemplateInput) (*models.Template, error) {
	template, err := s.owned(templateID, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrTemplateNameRequired
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTemplateTitleRequired
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if input.Name != nil {
		template.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		template.Description = *input.Description
	}
	if input.Title != nil {
		template.Title = strings.TrimSpace(*input.Title)
	}
	if input.TaskDescription != nil {
		template.TaskDescription = *input.TaskDescription
	}
	if input.Priority != nil {
		template.Priority = *input.Priority
	}
	if input.SetTags {
		template.Tags = normalizeTags(input.Tags)
	}
	if input.SetChecklist {
		template.ChecklistItems = trimItems(input.ChecklistItems)
	}
	if input.IsPublic != nil {
		template.IsPublic = *input.IsPublic
	}

	if err := s.templates.Update(template); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return s.reload(template), nil
}

// Delete removes a template. Owner only. Usage records stay.
func (s *TemplateService) Delete(templateID, userID uint64) error {
	if _, err := s.owned(templateID, userID); err != nil {
		return err
	}

	if err := s.templates.Delete(templateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Instantiate creates a task from a template. The task, its usage record and
// the usage counter increment commit together.
func (s *TemplateService) Instantiate(ctx context.Context, templateID, actorID uint64, input InstantiateInput) (*models.Task, *TemplateSummary, error) {
	template, err := s.readable(templateID, actorID)
	if err != nil {
		return nil, nil, err
	}

	actor, err := s.users.FindByID(actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if input.Priority != "" && !input.Priority.Valid() {
		return nil, nil, ErrInvalidPriority
	}

	assigneeID := actorID
	if input.AssignedTo != nil && *input.AssignedTo != 0 {
		assigneeID = *input.AssignedTo
	}
	if assigneeID != actorID {
		if _, err := s.users.FindByID(assigneeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrInvalidAssignee
			}
			return nil, nil, fmt.Errorf("failed to find assignee: %w", err)
		}
	}

	task := &models.Task{
		Title:       firstNonEmpty(input.Title, template.Title),
		Description: firstNonEmpty(input.Description, template.TaskDescription),
		Priority:    template.Priority,
		Status:      models.TaskStatusTodo,
		DueDate:     input.DueDate,
		Tags:        normalizeTags(template.Tags),
		CreatedBy:   actorID,
		AssignedTo:  assigneeID,
	}
	if input.Priority != "" {
		task.Priority = input.Priority
	}
	if tags := normalizeTags(input.Tags); len(tags) > 0 {
		task.Tags = tags
	}

	usage := &models.TemplateUsage{
		TemplateID: template.ID,
		UserID:     actorID,
		UsedAt:     s.now(),
	}

	if err := s.templates.CreateTaskFromTemplate(task, usage); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTemplateNotFound
		}
		return nil, nil, fmt.Errorf("failed to create task from template: %w", err)
	}

	if reloaded, err := s.tasks.FindByID(task.ID, "Creator", "Assignee"); err == nil {
		task = reloaded
	} else {
		s.log.Warn("failed to reload task", zap.Uint64("task_id", task.ID), zap.Error(err))
	}

	steps := []followUp{
		step("record task_created_from_template", func() error {
			_, err := s.activity.Record(task.ID, actorID, ActionTaskCreatedFromTemplate, map[string]any{
				"templateId":   template.ID,
				"templateName": template.Name,
			})
			return err
		}),
	}
	if assigneeID != actorID {
		steps = append(steps, step("notify assignee", func() error {
			return s.dispatcher.TaskAssigned(task, assigneeID, actor)
		}))
	}
	steps = append(steps,
		step("invalidate task lists", func() error {
			ids := Recipients([]uint64{actorID, assigneeID}, 0)
			prefixes := make([]string, len(ids))
			for i, id := range ids {
				prefixes[i] = cache.TaskListPrefix(id)
			}
			return s.cache.Invalidate(ctx, prefixes...)
		}),
		step("push task:created", func() error {
			for _, userID := range Recipients([]uint64{actorID, assigneeID}, 0) {
				s.pusher.PushToUser(userID, realtime.EventTaskCreated, task)
			}
			return nil
		}),
	)
	_ = runFollowUps(s.log, "instantiate template", steps...)

	checklist := []string(template.ChecklistItems)
	if checklist == nil {
		checklist = []string{}
	}

	return task, &TemplateSummary{
		ID:             template.ID,
		Name:           template.Name,
		ChecklistItems: checklist,
	}, nil
}

// Duplicate copies a readable template into a private one owned by the actor.
func (s *TemplateService) Duplicate(templateID, actorID uint64) (*models.Template, error) {
	source, err := s.readable(templateID, actorID)
	if err != nil {
		return nil, err
	}

	duplicate := &models.Template{
		UserID:          actorID,
		Name:            source.Name + " (Copy)",
		Description:     source.Description,
		Title:           source.Title,
		TaskDescription: source.TaskDescription,
		Priority:        source.Priority,
		Tags:            append([]string(nil), source.Tags...),
		ChecklistItems:  append([]string(nil), source.ChecklistItems...),
		IsPublic:        false,
	}

	if err := s.templates.Create(duplicate); err != nil {
		return nil, fmt.Errorf("failed to duplicate template: %w", err)
	}
	return s.reload(duplicate), nil
}

func (s *TemplateService) find(templateID uint64) (*models.Template, error) {
	template, err := s.templates.FindByID(templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	return template, nil
}

func (s *TemplateService) readable(templateID, userID uint64) (*models.Template, error) {
	template, err := s.find(templateID)
	if err != nil {
		return nil, err
	}
	if template.UserID != userID && !template.IsPublic {
		return nil, ErrTemplateAccessDenied
	}
	return template, nil
}

func (s *TemplateService) owned(templateID, userID uint64) (*models.Template, error) {
	template, err := s.find(templateID)
	if err != nil {
		return nil, err
	}
	if template.UserID != userID {
		return nil, ErrNotTemplateOwner
	}
	return template, nil
}

func (s *TemplateService) reload(template *models.Template) *models.Template {
	reloaded, err := s.templates.FindByID(template.ID)
	if err != nil {
		s.log.Warn("failed to reload template", zap.Uint64("template_id", template.ID), zap.Error(err))
		return template
	}
	return reloaded
}

func firstNonEmpty(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override)
	}
	return fallback
}

func trimItems(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
