package repository

import (
	"errors"
	"strings"

	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormTemplateRepository is a GORM implementation of TemplateRepository
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &GormTemplateRepository{db: db}
}

// Create creates a new template
func (r *GormTemplateRepository) Create(template *models.Template) error {
	return r.db.Omit("Owner").Create(template).Error
}

// FindByID finds a template by ID
func (r *GormTemplateRepository) FindByID(id uint64) (*models.Template, error) {
	var template models.Template
	if err := r.db.Preload("Owner").First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// List retrieves templates matching the filter, most used first
func (r *GormTemplateRepository) List(filter TemplateFilter) ([]models.Template, error) {
	query := r.db.Model(&models.Template{})

	switch {
	case filter.PublicOnly:
		query = query.Where("templates.is_public = ?", true)
	case filter.IncludePublic:
		query = query.Where("(templates.user_id = ? OR templates.is_public = ?)", filter.UserID, true)
	default:
		query = query.Where("templates.user_id = ?", filter.UserID)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"(LOWER(templates.name) LIKE ? OR LOWER(templates.description) LIKE ? OR LOWER(templates.title) LIKE ?)",
			pattern, pattern, pattern,
		)
	}

	query = query.Order("templates.usage_count DESC").Order("templates.created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var templates []models.Template
	if err := query.Preload("Owner").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Update saves a template
func (r *GormTemplateRepository) Update(template *models.Template) error {
	return r.db.Omit("Owner", "UsageCount").Save(template).Error
}

// Delete soft deletes a template
func (r *GormTemplateRepository) Delete(id uint64) error {
	result := r.db.Delete(&models.Template{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateTaskFromTemplate inserts the task and its usage record and bumps the
// counter with a single UPDATE so concurrent instantiations never lose an
// increment.
func (r *GormTemplateRepository) CreateTaskFromTemplate(task *models.Task, usage *models.TemplateUsage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Creator", "Assignee").Create(task).Error; err != nil {
			return err
		}

		usage.TaskID = &task.ID
		if err := tx.Create(usage).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Template{}).
			Where("id = ?", usage.TemplateID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Stats aggregates the usage records of a template
func (r *GormTemplateRepository) Stats(templateID uint64) (*models.TemplateStats, error) {
	var stats models.TemplateStats
	err := r.db.Model(&models.TemplateUsage{}).
		Select("COUNT(*) AS total_uses, COUNT(DISTINCT user_id) AS unique_users").
		Where("template_id = ?", templateID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	var last models.TemplateUsage
	err = r.db.Where("template_id = ?", templateID).Order("used_at DESC").First(&last).Error
	switch {
	case err == nil:
		usedAt := last.UsedAt
		stats.LastUsed = &usedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return &stats, nil
}

