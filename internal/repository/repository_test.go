package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/testutil"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

type RepositoryTestSuite struct {
	suite.Suite
	db *gorm.DB

	tasks         TaskRepository
	comments      CommentRepository
	notifications NotificationRepository
	templates     TemplateRepository
	attachments   AttachmentRepository

	alice *models.User
	bob   *models.User
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())

	s.tasks = NewTaskRepository(s.db)
	s.comments = NewCommentRepository(s.db)
	s.notifications = NewNotificationRepository(s.db)
	s.templates = NewTemplateRepository(s.db)
	s.attachments = NewAttachmentRepository(s.db)

	s.alice = testutil.CreateUser(s.T(), s.db, "alice@example.com", "Alice", "Smith")
	s.bob = testutil.CreateUser(s.T(), s.db, "bob@example.com", "Bob", "Jones")
}

func (s *RepositoryTestSuite) TestTaskList_ScopedToCreatorOrAssignee() {
	testutil.CreateTask(s.T(), s.db, "Write report", s.alice.ID, s.alice.ID)
	testutil.CreateTask(s.T(), s.db, "Review report", s.bob.ID, s.alice.ID)
	testutil.CreateTask(s.T(), s.db, "Bob only", s.bob.ID, s.bob.ID)

	tasks, total, err := s.tasks.List(TaskFilter{
		UserID: s.alice.ID,
		Page:   utils.NewPaginationParams(1, 10, 10),
	})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(tasks, 2)

	tasks, total, err = s.tasks.List(TaskFilter{
		UserID: s.alice.ID,
		Search: "REVIEW",
		Page:   utils.NewPaginationParams(1, 10, 10),
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("Review report", tasks[0].Title)
	s.Equal(s.bob.ID, tasks[0].Creator.ID)
}

func (s *RepositoryTestSuite) TestTaskList_Paginates() {
	for _, title := range []string{"One", "Two", "Three"} {
		testutil.CreateTask(s.T(), s.db, title, s.alice.ID, s.alice.ID)
	}

	tasks, total, err := s.tasks.List(TaskFilter{
		UserID: s.alice.ID,
		Page:   utils.NewPaginationParams(2, 2, 2),
	})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(tasks, 1)

	tasks, total, err = s.tasks.List(TaskFilter{UserID: s.alice.ID})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(tasks, 3)
}

func (s *RepositoryTestSuite) TestTaskUpdateFields_WritesOnlyGivenColumns() {
	task := testutil.CreateTask(s.T(), s.db, "Ship it", s.alice.ID, s.bob.ID)
	s.Require().NoError(s.db.Model(task).Update("status", models.TaskStatusCompleted).Error)

	s.Require().NoError(s.tasks.UpdateFields(task.ID, map[string]any{"title": "Ship it now"}))

	stored, err := s.tasks.FindByID(task.ID)
	s.Require().NoError(err)
	s.Equal("Ship it now", stored.Title)
	s.Equal(models.TaskStatusCompleted, stored.Status)

	err = s.tasks.UpdateFields(9999, map[string]any{"title": "ghost"})
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestTaskDelete_Cascades() {
	task := testutil.CreateTask(s.T(), s.db, "Doomed", s.alice.ID, s.bob.ID)

	s.Require().NoError(s.comments.Create(&models.Comment{TaskID: task.ID, UserID: s.bob.ID, Content: "hi", Type: models.CommentTypeComment}))
	s.Require().NoError(s.comments.Create(&models.Comment{TaskID: task.ID, UserID: s.alice.ID, Content: "created this task", Type: models.CommentTypeActivity, Action: "task_created"}))
	s.Require().NoError(s.attachments.CreateBatch([]models.Attachment{{
		TaskID: task.ID, UserID: s.alice.ID, FileName: "a.pdf", OriginalName: "a.pdf",
		MimeType: "application/pdf", FileSize: 10, FilePath: "uploads/a.pdf",
	}}))
	taskID := task.ID
	s.Require().NoError(s.notifications.Create(&models.Notification{
		UserID: s.bob.ID, Type: models.NotificationTaskAssigned, Title: "t", Message: "m", RelatedTaskID: &taskID,
	}))

	paths, err := s.tasks.Delete(task.ID)
	s.Require().NoError(err)
	s.Equal([]string{"uploads/a.pdf"}, paths)

	var count int64
	s.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&count)
	s.Zero(count)
	s.db.Model(&models.Attachment{}).Where("task_id = ?", task.ID).Count(&count)
	s.Zero(count)

	var notification models.Notification
	s.Require().NoError(s.db.First(&notification).Error)
	s.Nil(notification.RelatedTaskID)

	_, err = s.tasks.Delete(task.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestComments_VariantsAndActivityImmutability() {
	task := testutil.CreateTask(s.T(), s.db, "Task", s.alice.ID, s.alice.ID)
	comment := &models.Comment{TaskID: task.ID, UserID: s.alice.ID, Content: "first", Type: models.CommentTypeComment}
	activity := &models.Comment{TaskID: task.ID, UserID: s.alice.ID, Content: "created this task", Type: models.CommentTypeActivity, Action: "task_created"}
	s.Require().NoError(s.comments.Create(comment))
	s.Require().NoError(s.comments.Create(activity))

	entry, err := s.comments.FindByID(comment.ID)
	s.Require().NoError(err)
	userComment, ok := entry.(models.UserComment)
	s.Require().True(ok)

	s.Require().NoError(s.comments.UpdateContent(userComment, "edited"))
	s.True(userComment.Edited)

	entry, err = s.comments.FindByID(activity.ID)
	s.Require().NoError(err)
	s.IsType(models.ActivityEntry{}, entry)

	// Forging the variant still cannot touch an activity row.
	forged := models.UserComment{Comment: entry.Row()}
	s.ErrorIs(s.comments.UpdateContent(forged, "tampered"), gorm.ErrRecordNotFound)
	s.ErrorIs(s.comments.Delete(forged), gorm.ErrRecordNotFound)

	entries, total, err := s.comments.ListByTask(task.ID, false, utils.NewPaginationParams(1, 50, 50))
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("edited", entries[0].Row().Content)

	entries, total, err = s.comments.ListByTask(task.ID, true, utils.NewPaginationParams(1, 50, 50))
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(entries, 2)

	activities, err := s.comments.ListActivity(task.ID)
	s.Require().NoError(err)
	s.Len(activities, 1)
	s.Equal("created this task", activities[0].Content)
}

func (s *RepositoryTestSuite) TestNotifications_ReadStateAndPurge() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.notifications.Create(&models.Notification{
			UserID: s.bob.ID, Type: models.NotificationNewComment, Title: "New Comment", Message: "m",
		}))
	}
	old := &models.Notification{UserID: s.bob.ID, Type: models.NotificationNewComment, Title: "old", Message: "m"}
	s.Require().NoError(s.notifications.Create(old))
	s.Require().NoError(s.db.Model(old).UpdateColumn("created_at", time.Now().Add(-60*24*time.Hour)).Error)

	unread, err := s.notifications.CountUnread(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(int64(4), unread)

	marked, err := s.notifications.MarkRead(old.ID, s.bob.ID, time.Now())
	s.Require().NoError(err)
	s.True(marked.Read)
	s.NotNil(marked.ReadAt)

	_, err = s.notifications.MarkRead(old.ID, s.alice.ID, time.Now())
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	list, total, err := s.notifications.List(NotificationFilter{UserID: s.bob.ID, UnreadOnly: true, Page: utils.NewPaginationParams(1, 20, 20)})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(list, 3)

	purged, err := s.notifications.DeleteOlderThan(time.Now().Add(-30 * 24 * time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), purged)

	updated, err := s.notifications.MarkAllRead(s.bob.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(int64(3), updated)

	deleted, err := s.notifications.DeleteAll(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), deleted)
}

func (s *RepositoryTestSuite) TestTemplates_InstantiateAndStats() {
	template := &models.Template{UserID: s.alice.ID, Name: "Bug", Title: "Fix bug", Priority: models.TaskPriorityHigh, IsPublic: true}
	s.Require().NoError(s.templates.Create(template))

	for _, userID := range []uint64{s.alice.ID, s.bob.ID, s.bob.ID} {
		task := &models.Task{Title: "Fix bug", Priority: models.TaskPriorityHigh, Status: models.TaskStatusTodo, CreatedBy: userID, AssignedTo: userID}
		usage := &models.TemplateUsage{TemplateID: template.ID, UserID: userID, UsedAt: time.Now()}
		s.Require().NoError(s.templates.CreateTaskFromTemplate(task, usage))
		s.NotZero(task.ID)
		s.Equal(task.ID, *usage.TaskID)
	}

	reloaded, err := s.templates.FindByID(template.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), reloaded.UsageCount)

	stats, err := s.templates.Stats(template.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.TotalUses)
	s.Equal(int64(2), stats.UniqueUsers)
	s.NotNil(stats.LastUsed)

	s.Require().NoError(s.templates.Delete(template.ID))
	stats, err = s.templates.Stats(template.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.TotalUses)

	err = s.templates.CreateTaskFromTemplate(
		&models.Task{Title: "x", Priority: models.TaskPriorityLow, Status: models.TaskStatusTodo, CreatedBy: s.bob.ID, AssignedTo: s.bob.ID},
		&models.TemplateUsage{TemplateID: template.ID, UserID: s.bob.ID, UsedAt: time.Now()},
	)
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	var taskCount int64
	s.db.Model(&models.Task{}).Count(&taskCount)
	s.Equal(int64(3), taskCount)
}

func (s *RepositoryTestSuite) TestTemplates_ListVisibility() {
	s.Require().NoError(s.templates.Create(&models.Template{UserID: s.alice.ID, Name: "Private sprint", Title: "t"}))
	s.Require().NoError(s.templates.Create(&models.Template{UserID: s.bob.ID, Name: "Public sprint", Title: "t", IsPublic: true}))
	s.Require().NoError(s.templates.Create(&models.Template{UserID: s.bob.ID, Name: "Bob private", Title: "t"}))

	own, err := s.templates.List(TemplateFilter{UserID: s.alice.ID})
	s.Require().NoError(err)
	s.Len(own, 1)

	withPublic, err := s.templates.List(TemplateFilter{UserID: s.alice.ID, IncludePublic: true})
	s.Require().NoError(err)
	s.Len(withPublic, 2)

	found, err := s.templates.List(TemplateFilter{UserID: s.alice.ID, IncludePublic: true, Search: "SPRINT"})
	s.Require().NoError(err)
	s.Len(found, 2)

	public, err := s.templates.List(TemplateFilter{PublicOnly: true, Search: "sprint"})
	s.Require().NoError(err)
	s.Require().Len(public, 1)
	s.Equal("Public sprint", public[0].Name)
}

func (s *RepositoryTestSuite) TestTaskAnalyticsCounts() {
	past := time.Now().Add(-48 * time.Hour)
	overdue := testutil.CreateTask(s.T(), s.db, "late", s.alice.ID, s.bob.ID)
	s.Require().NoError(s.db.Model(overdue).UpdateColumn("due_date", past).Error)
	done := testutil.CreateTask(s.T(), s.db, "done", s.alice.ID, s.bob.ID)
	s.Require().NoError(s.db.Model(done).UpdateColumn("status", models.TaskStatusCompleted).Error)
	wip := testutil.CreateTask(s.T(), s.db, "wip", s.alice.ID, s.bob.ID)
	s.Require().NoError(s.db.Model(wip).UpdateColumn("status", models.TaskStatusInProgress).Error)

	counts, err := s.tasks.CountByStatusForAssignee(s.bob.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(int64(3), counts.Total)
	s.Equal(int64(1), counts.Completed)
	s.Equal(int64(1), counts.InProgress)
	s.Equal(int64(1), counts.Todo)
	s.Equal(int64(1), counts.Overdue)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
