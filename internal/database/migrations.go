package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type compositeIndex struct {
	table   string
	name    string
	columns string
}

// Composite indexes backing the hot list queries. Single-column indexes are
// declared on the models.
var compositeIndexes = []compositeIndex{
	{"tasks", "idx_tasks_assigned_to_status", "assigned_to, status"},
	{"tasks", "idx_tasks_created_by_status", "created_by, status"},
	{"comments", "idx_comments_task_id_type_created_at", "task_id, type, created_at"},
	{"notifications", "idx_notifications_user_id_is_read", "user_id, is_read"},
	{"notifications", "idx_notifications_user_id_created_at", "user_id, created_at"},
	{"template_usages", "idx_template_usages_template_id_used_at", "template_id, used_at"},
}

// AddIndexes adds the composite indexes that are not present yet.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}
