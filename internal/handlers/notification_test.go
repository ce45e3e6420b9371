package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

func TestNotificationHandler_Inbox(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewNotificationHandler(env.notifications, zap.NewNop())

	alice := testutil.CreateUser(t, env.db, "alice@example.com", "Alice", "Smith")
	bob := testutil.CreateUser(t, env.db, "bob@example.com", "Bob", "Jones")

	for _, title := range []string{"One", "Two"} {
		_, err := env.tasks.CreateTask(context.Background(), alice.ID, services.CreateTaskInput{Title: title, AssignedTo: &bob.ID})
		require.NoError(t, err)
	}

	c, w := createAuthContext(http.MethodGet, "/api/notifications", nil, bob.ID, nil)
	handler.ListNotifications(c)

	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[dto.NotificationListResponse](t, w)
	require.Len(t, inbox.Notifications, 2)
	require.Equal(t, int64(2), inbox.UnreadCount)
	require.NotNil(t, inbox.Notifications[0].Task)
	require.Equal(t, "Two", inbox.Notifications[0].Task.Title)

	// Alice cannot touch Bob's notifications
	first := map[string]uint64{"notificationId": inbox.Notifications[0].ID}
	c, w = createAuthContext(http.MethodPut, "/api/notifications/1/read", nil, alice.ID, first)
	handler.MarkRead(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = createAuthContext(http.MethodPut, "/api/notifications/1/read", nil, bob.ID, first)
	handler.MarkRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[dto.NotificationDTO](t, w).Read)

	c, w = createAuthContext(http.MethodGet, "/api/notifications/unread-count", nil, bob.ID, nil)
	handler.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), decode[map[string]int64](t, w)["unreadCount"])

	c, w = createAuthContext(http.MethodGet, "/api/notifications?unreadOnly=true", nil, bob.ID, nil)
	handler.ListNotifications(c)
	require.Len(t, decode[dto.NotificationListResponse](t, w).Notifications, 1)

	c, w = createAuthContext(http.MethodPut, "/api/notifications/read-all", nil, bob.ID, nil)
	handler.MarkAllRead(c)
	require.Equal(t, int64(1), decode[map[string]int64](t, w)["updated"])

	c, w = createAuthContext(http.MethodDelete, "/api/notifications/1", nil, bob.ID, first)
	handler.DeleteNotification(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = createAuthContext(http.MethodDelete, "/api/notifications", nil, bob.ID, nil)
	handler.DeleteAll(c)
	require.Equal(t, int64(1), decode[map[string]int64](t, w)["deleted"])
}
