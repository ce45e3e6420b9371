package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

func TestRecipients(t *testing.T) {
	tests := []struct {
		name       string
		candidates []uint64
		exclude    uint64
		want       []uint64
	}{
		{"actor removed", []uint64{1, 2}, 1, []uint64{2}},
		{"duplicates collapse", []uint64{2, 2, 3, 2}, 1, []uint64{2, 3}},
		{"self only", []uint64{1, 1}, 1, []uint64{}},
		{"zero ids skipped", []uint64{0, 4}, 1, []uint64{4}},
		{"no exclusion", []uint64{5, 6}, 0, []uint64{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recipients(tt.candidates, tt.exclude))
		})
	}
}

func TestFormatActivityMessage(t *testing.T) {
	tests := []struct {
		action   ActivityAction
		metadata map[string]any
		want     string
	}{
		{ActionTaskCreated, nil, "created this task"},
		{ActionStatusChanged, map[string]any{"oldStatus": "todo", "newStatus": "completed"}, `changed status from "todo" to "completed"`},
		{ActionAssigned, map[string]any{"assigneeName": "Bob Jones"}, "assigned task to Bob Jones"},
		{ActionFilesUploaded, map[string]any{"count": 2, "files": "a.pdf, b.png"}, "uploaded 2 file(s): a.pdf, b.png"},
		{ActionTaskCreatedFromTemplate, map[string]any{"templateName": "Bug"}, "created this task from template: Bug"},
		{ActivityAction("archived_everything"), nil, "performed action: archived_everything"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatActivityMessage(tt.action, tt.metadata))
		})
	}
}

func TestRunFollowUps_IsolatesFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var ran []string

	err := runFollowUps(zap.New(core), "test op",
		step("first", func() error {
			ran = append(ran, "first")
			return errors.New("boom")
		}),
		step("second", func() error {
			ran = append(ran, "second")
			panic("kaboom")
		}),
		step("third", func() error {
			ran = append(ran, "third")
			return nil
		}),
	)

	assert.Equal(t, []string{"first", "second", "third"}, ran)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first: boom")
	assert.Contains(t, err.Error(), "second: panic: kaboom")
	assert.Equal(t, 2, logs.FilterMessage("follow-up step failed").Len())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50)+"...", Preview(long))
}

func TestParseMentions(t *testing.T) {
	got := ParseMentions("@Ann@example.com ping @bob@example.org. and again @ann@example.com; mail@nope.com")
	assert.Equal(t, []string{"ann@example.com", "bob@example.org"}, got)
	assert.Empty(t, ParseMentions("no mentions here"))
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, strongPassword("Password1"))
	assert.False(t, strongPassword("Pass1"))
	assert.False(t, strongPassword("password1"))
	assert.False(t, strongPassword("PASSWORD1"))
	assert.False(t, strongPassword("Passwords"))
}

func TestParseGeneratedTasks(t *testing.T) {
	tasks, err := parseGeneratedTasks("```json\n[{\"title\":\"Write docs\",\"priority\":\"high\",\"tags\":[\"docs\"],\"dueDate\":null}]\n```")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write docs", tasks[0].Title)
	assert.Equal(t, models.TaskPriorityHigh, tasks[0].Priority)
	assert.Nil(t, tasks[0].DueDate)

	_, err = parseGeneratedTasks("not json")
	assert.Error(t, err)
}

// failingNotifications fails for one user and records the rest.
type failingNotifications struct {
	repository.NotificationRepository
	failFor uint64
	created []uint64
}

func (f *failingNotifications) Create(n *models.Notification) error {
	if n.UserID == f.failFor {
		return errors.New("insert failed")
	}
	f.created = append(f.created, n.UserID)
	return nil
}

func TestDispatcher_OneRecipientFailureDoesNotStopOthers(t *testing.T) {
	repo := &failingNotifications{failFor: 2}
	pusher := &recordingPusher{}
	dispatcher := NewDispatcher(repo, pusher, zap.NewNop())

	actor := &models.User{ID: 9, FirstName: "Dana", LastName: "Lee"}
	task := &models.Task{ID: 7, Title: "Ship", CreatedBy: 2, AssignedTo: 3, Status: models.TaskStatusInProgress}

	err := dispatcher.TaskStatusChanged(task, actor)
	require.Error(t, err)
	assert.Equal(t, []uint64{3}, repo.created)
	assert.Equal(t, []string{"notification:new"}, pusher.events("user", 3))
	assert.Empty(t, pusher.events("user", 2))
}

func TestDispatcher_MessageText(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewNotificationRepository(db)
	dispatcher := NewDispatcher(repo, nil, zap.NewNop())

	alice := testutil.CreateUser(t, db, "alice@example.com", "Alice", "Smith")
	bob := testutil.CreateUser(t, db, "bob@example.com", "", "")
	task := testutil.CreateTask(t, db, "Quarterly report", alice.ID, bob.ID)

	require.NoError(t, dispatcher.TaskAssigned(task, bob.ID, alice))
	require.NoError(t, dispatcher.TaskCompleted(task, bob))

	var notifications []models.Notification
	require.NoError(t, db.Order("id").Find(&notifications).Error)
	require.Len(t, notifications, 2)

	assert.Equal(t, bob.ID, notifications[0].UserID)
	assert.Equal(t, `Alice Smith assigned you to "Quarterly report"`, notifications[0].Message)
	assert.Equal(t, fmt.Sprintf("/tasks/%d", task.ID), notifications[0].ActionURL)

	assert.Equal(t, alice.ID, notifications[1].UserID)
	assert.Equal(t, `bob@example.com completed "Quarterly report"`, notifications[1].Message)
}
