package repository

import (
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(row *models.Comment) error {
	return r.db.Omit("User").Create(row).Error
}

func (r *GormCommentRepository) FindByID(id uint64) (models.Entry, error) {
	var row models.Comment
	if err := r.db.Preload("User").First(&row, id).Error; err != nil {
		return nil, err
	}
	return models.AsEntry(&row), nil
}

func (r *GormCommentRepository) ListByTask(taskID uint64, includeActivity bool, page utils.PaginationParams) ([]models.Entry, int64, error) {
	query := r.db.Model(&models.Comment{}).Where("task_id = ?", taskID)
	if !includeActivity {
		query = query.Where("type = ?", models.CommentTypeComment)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Comment
	err := query.Preload("User").Order("created_at ASC").Order("id ASC").
		Scopes(database.Paginate(page)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	entries := make([]models.Entry, len(rows))
	for i := range rows {
		entries[i] = models.AsEntry(&rows[i])
	}
	return entries, total, nil
}

func (r *GormCommentRepository) ListActivity(taskID uint64) ([]models.ActivityEntry, error) {
	var rows []models.Comment
	err := r.db.Preload("User").
		Where("task_id = ? AND type = ?", taskID, models.CommentTypeActivity).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.ActivityEntry, len(rows))
	for i := range rows {
		entries[i] = models.ActivityEntry{Comment: &rows[i]}
	}
	return entries, nil
}

// UpdateContent only accepts the UserComment variant; activity rows have no
// update path.
func (r *GormCommentRepository) UpdateContent(comment models.UserComment, content string) error {
	result := r.db.Model(&models.Comment{}).
		Where("id = ? AND type = ?", comment.ID, models.CommentTypeComment).
		Updates(map[string]any{"content": content, "edited": true})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	comment.Content = content
	comment.Edited = true
	return nil
}

func (r *GormCommentRepository) Delete(comment models.UserComment) error {
	result := r.db.Where("type = ?", models.CommentTypeComment).Delete(&models.Comment{}, comment.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
