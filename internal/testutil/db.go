// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
)

// NewDB returns a migrated in-memory SQLite database closed on cleanup.
// The pool is pinned to one connection since every :memory: connection is
// a separate database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.Models()...))

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, email, first, last string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		FirstName:    first,
		LastName:     last,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTask inserts a task owned by creatorID and assigned to assigneeID.
func CreateTask(t *testing.T, db *gorm.DB, title string, creatorID, assigneeID uint64) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:      title,
		Priority:   models.TaskPriorityMedium,
		Status:     models.TaskStatusTodo,
		CreatedBy:  creatorID,
		AssignedTo: assigneeID,
	}
	require.NoError(t, db.Omit("Creator", "Assignee").Create(task).Error)
	return task
}

// Email returns a distinct address for the n-th fixture user.
func Email(n int) string {
	return fmt.Sprintf("user%d@example.com", n)
}
