package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	// User 1 may follow task 10 only.
	authorize := func(_ context.Context, userID, taskID uint64) bool {
		return userID == 1 && taskID == 10
	}
	hub := NewHub(authorize, nil, zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.ParseUint(r.URL.Query().Get("user"), 10, 64)
		_ = hub.Serve(w, r, userID)
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, server
}

func dial(t *testing.T, ctx context.Context, server *httptest.Server, userID int) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?user=" + strconv.Itoa(userID)
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	msg := readEvent(t, ctx, conn)
	require.Equal(t, EventConnected, msg.Event)
	return conn
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) received {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	require.NoError(t, err)

	var msg received
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, taskID uint64) {
	t.Helper()

	data, err := json.Marshal(clientMessage{Type: msgType, TaskID: taskID})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHub_PushToUser(t *testing.T) {
	ctx := context.Background()
	hub, server := newTestHub(t)

	conn := dial(t, ctx, server, 1)
	assert.True(t, hub.IsOnline(1))
	assert.False(t, hub.IsOnline(2))

	// Absent users are a silent no-op.
	hub.PushToUser(2, EventNotificationNew, map[string]string{"title": "ignored"})
	hub.PushToUser(1, EventNotificationNew, map[string]string{"title": "New Comment"})

	msg := readEvent(t, ctx, conn)
	assert.Equal(t, EventNotificationNew, msg.Event)
	assert.JSONEq(t, `{"title":"New Comment"}`, string(msg.Data))
}

func TestHub_TaskSubscriptions(t *testing.T) {
	ctx := context.Background()
	hub, server := newTestHub(t)

	conn := dial(t, ctx, server, 1)

	send(t, ctx, conn, msgSubscribeTask, 11)
	msg := readEvent(t, ctx, conn)
	assert.Equal(t, EventError, msg.Event)

	send(t, ctx, conn, msgSubscribeTask, 10)
	msg = readEvent(t, ctx, conn)
	require.Equal(t, EventSubscribed, msg.Event)
	assert.JSONEq(t, `{"topic":"task:10"}`, string(msg.Data))

	hub.PushToTaskComments(10, EventCommentCreated, nil)
	hub.PushToTask(10, EventTaskUpdated, map[string]uint64{"id": 10})

	msg = readEvent(t, ctx, conn)
	assert.Equal(t, EventTaskUpdated, msg.Event)

	send(t, ctx, conn, msgUnsubscribeTask, 10)
	msg = readEvent(t, ctx, conn)
	assert.Equal(t, EventUnsubscribed, msg.Event)

	hub.PushToTask(10, EventTaskUpdated, map[string]uint64{"id": 10})
	hub.PushToUser(1, EventNotificationNew, nil)

	msg = readEvent(t, ctx, conn)
	assert.Equal(t, EventNotificationNew, msg.Event)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	ctx := context.Background()
	hub, server := newTestHub(t)

	conn := dial(t, ctx, server, 1)
	require.True(t, hub.IsOnline(1))

	conn.Close(websocket.StatusNormalClosure, "bye")

	assert.Eventually(t, func() bool { return !hub.IsOnline(1) }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RevokeTaskStopsTopicPushes(t *testing.T) {
	ctx := context.Background()
	hub, server := newTestHub(t)

	conn := dial(t, ctx, server, 1)

	send(t, ctx, conn, msgSubscribeTask, 10)
	require.Equal(t, EventSubscribed, readEvent(t, ctx, conn).Event)
	send(t, ctx, conn, msgSubscribeComments, 10)
	require.Equal(t, EventSubscribed, readEvent(t, ctx, conn).Event)

	hub.RevokeTask(1, 10)

	topics := []string{}
	for range 2 {
		msg := readEvent(t, ctx, conn)
		require.Equal(t, EventUnsubscribed, msg.Event)
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		topics = append(topics, data["topic"])
	}
	assert.ElementsMatch(t, []string{"task:10", "task:10:comments"}, topics)

	hub.PushToTask(10, EventTaskUpdated, nil)
	hub.PushToTaskComments(10, EventCommentCreated, nil)
	hub.PushToUser(1, EventNotificationNew, nil)

	assert.Equal(t, EventNotificationNew, readEvent(t, ctx, conn).Event)
}
