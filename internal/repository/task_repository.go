package repository

import (
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).
		Where("(tasks.created_by = ? OR tasks.assigned_to = ?)", filter.UserID, filter.UserID)

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("tasks.created_at DESC").Order("tasks.id DESC").
		Scopes(database.Paginate(filter.Page)).
		Preload("Creator").Preload("Assignee").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateFields writes only the given columns, so a concurrent writer's
// changes to other columns survive.
func (r *GormTaskRepository) UpdateFields(id uint64, fields map[string]any) error {
	result := r.db.Model(&models.Task{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a task and everything that hangs off it
func (r *GormTaskRepository) Delete(id uint64) ([]string, error) {
	var paths []string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Attachment{}).Where("task_id = ?", id).Pluck("file_path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Notification{}).
			Where("related_task_id = ?", id).
			Updates(map[string]any{"related_task_id": nil, "related_comment_id": nil}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TemplateUsage{}).
			Where("task_id = ?", id).
			Update("task_id", nil).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// FindDueBetween lists open tasks due in [from, to)
func (r *GormTaskRepository) FindDueBetween(from, to time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("due_date >= ? AND due_date < ?", from, to).
		Where("status NOT IN ?", []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusArchived}).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

// CountByStatusForAssignee aggregates task counts for the assignee
func (r *GormTaskRepository) CountByStatusForAssignee(userID uint64, now time.Time) (TaskStatusCounts, error) {
	var counts TaskStatusCounts
	err := r.db.Model(&models.Task{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS todo,
			COALESCE(SUM(CASE WHEN due_date < ? AND status <> ? THEN 1 ELSE 0 END), 0) AS overdue`,
			models.TaskStatusCompleted,
			models.TaskStatusInProgress,
			models.TaskStatusTodo,
			now, models.TaskStatusCompleted,
		).
		Where("assigned_to = ?", userID).
		Scan(&counts).Error
	return counts, err
}

// ListUpdatedSinceForAssignee lists tasks assigned to the user updated after since
func (r *GormTaskRepository) ListUpdatedSinceForAssignee(userID uint64, since time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("assigned_to = ? AND updated_at > ?", userID, since).
		Order("updated_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// ListCompletedForAssignee lists completed tasks assigned to the user
func (r *GormTaskRepository) ListCompletedForAssignee(userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("assigned_to = ? AND status = ?", userID, models.TaskStatusCompleted).
		Find(&tasks).Error
	return tasks, err
}
