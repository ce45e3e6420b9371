// Package realtime pushes events to connected WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 32
)

// Events pushed to clients.
const (
	EventConnected       = "connected"
	EventSubscribed      = "subscribed"
	EventUnsubscribed    = "unsubscribed"
	EventError           = "error"
	EventNotificationNew = "notification:new"
	EventTaskCreated     = "task:created"
	EventTaskUpdated     = "task:updated"
	EventTaskDeleted     = "task:deleted"
	EventCommentCreated  = "comment:created"
	EventCommentUpdated  = "comment:updated"
	EventCommentDeleted  = "comment:deleted"
	EventFilesUploaded   = "attachments:uploaded"
	EventFileDeleted     = "attachment:deleted"
)

// Messages accepted from clients.
const (
	msgSubscribeTask       = "subscribe:task"
	msgUnsubscribeTask     = "unsubscribe:task"
	msgSubscribeComments   = "subscribe:comments"
	msgUnsubscribeComments = "unsubscribe:comments"
)

// Pusher delivers events to live sessions. Every method is best-effort and
// returns immediately; an absent recipient is a no-op.
type Pusher interface {
	PushToUser(userID uint64, event string, payload any)
	PushToTask(taskID uint64, event string, payload any)
	PushToTaskComments(taskID uint64, event string, payload any)
	// RevokeTask drops userID's subscriptions to the task and its comments.
	RevokeTask(userID, taskID uint64)
}

// Authorizer decides whether userID may follow taskID.
type Authorizer func(ctx context.Context, userID, taskID uint64) bool

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type clientMessage struct {
	Type   string `json:"type"`
	TaskID uint64 `json:"taskId"`
}

type client struct {
	id     int64
	userID uint64
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]struct{}
}

// Hub is the registry of live connections. It is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	users  map[uint64]map[*client]struct{}
	topics map[string]map[*client]struct{}
	closed bool

	nextID    atomic.Int64
	authorize Authorizer
	origins   []string
	log       *zap.Logger
}

// NewHub creates a hub. originPatterns is passed to websocket.Accept; an
// empty list allows same-origin requests only.
func NewHub(authorize Authorizer, originPatterns []string, log *zap.Logger) *Hub {
	return &Hub{
		users:     make(map[uint64]map[*client]struct{}),
		topics:    make(map[string]map[*client]struct{}),
		authorize: authorize,
		origins:   originPatterns,
		log:       log,
	}
}

func taskTopic(taskID uint64) string     { return fmt.Sprintf("task:%d", taskID) }
func commentsTopic(taskID uint64) string { return fmt.Sprintf("task:%d:comments", taskID) }

// Serve upgrades the request and blocks until the connection ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint64) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		return fmt.Errorf("websocket accept: %w", err)
	}

	c := &client{
		id:     h.nextID.Add(1),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return nil
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		h.unregister(c)
		conn.CloseNow()
		h.log.Debug("websocket client disconnected", zap.Int64("client", c.id), zap.Uint64("user_id", userID))
	}()

	h.log.Debug("websocket client connected", zap.Int64("client", c.id), zap.Uint64("user_id", userID))

	go h.writeLoop(ctx, cancel, c)
	h.enqueue(c, envelope{Event: EventConnected, Data: map[string]uint64{"userId": userID}})

	h.readLoop(ctx, c)
	return nil
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				h.log.Debug("websocket read ended", zap.Int64("client", c.id), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.enqueue(c, envelope{Event: EventError, Data: map[string]string{"message": "invalid message"}})
			continue
		}
		h.handleMessage(ctx, c, msg)
	}
}

func (h *Hub) handleMessage(ctx context.Context, c *client, msg clientMessage) {
	var topic string
	subscribe := false

	switch msg.Type {
	case msgSubscribeTask:
		topic, subscribe = taskTopic(msg.TaskID), true
	case msgUnsubscribeTask:
		topic = taskTopic(msg.TaskID)
	case msgSubscribeComments:
		topic, subscribe = commentsTopic(msg.TaskID), true
	case msgUnsubscribeComments:
		topic = commentsTopic(msg.TaskID)
	default:
		h.enqueue(c, envelope{Event: EventError, Data: map[string]string{"message": "unknown message type"}})
		return
	}

	if !subscribe {
		h.leave(c, topic)
		h.enqueue(c, envelope{Event: EventUnsubscribed, Data: map[string]string{"topic": topic}})
		return
	}

	if msg.TaskID == 0 || h.authorize == nil || !h.authorize(ctx, c.userID, msg.TaskID) {
		h.enqueue(c, envelope{Event: EventError, Data: map[string]string{"message": "access denied"}})
		return
	}
	h.join(c, topic)
	h.enqueue(c, envelope{Event: EventSubscribed, Data: map[string]string{"topic": topic}})
}

func (h *Hub) writeLoop(ctx context.Context, cancel context.CancelFunc, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			writeCtx, done := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			done()
			if err != nil {
				h.log.Debug("websocket write failed", zap.Int64("client", c.id), zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	set, ok := h.users[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.users[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
	for topic := range c.topics {
		h.removeFromTopic(c, topic)
	}
}

func (h *Hub) join(c *client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*client]struct{})
		h.topics[topic] = set
	}
	set[c] = struct{}{}
	c.topics[topic] = struct{}{}
}

func (h *Hub) leave(c *client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopic(c, topic)
}

// removeFromTopic requires h.mu held for writing.
func (h *Hub) removeFromTopic(c *client, topic string) {
	delete(c.topics, topic)
	if set, ok := h.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// enqueue never blocks: a client whose buffer is full misses the event.
func (h *Hub) enqueue(c *client, msg envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("websocket payload unencodable", zap.String("event", msg.Event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(c, data, msg.Event)
}

// deliver requires h.mu held.
func (h *Hub) deliver(c *client, data []byte, event string) {
	select {
	case c.send <- data:
	default:
		h.log.Debug("websocket send buffer full, dropping event",
			zap.Int64("client", c.id),
			zap.String("event", event),
		)
	}
}

func (h *Hub) broadcast(clients func() map[*client]struct{}, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		h.log.Warn("websocket payload unencodable", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range clients() {
		h.deliver(c, data, event)
	}
}

// PushToUser sends to every session of userID.
func (h *Hub) PushToUser(userID uint64, event string, payload any) {
	h.broadcast(func() map[*client]struct{} { return h.users[userID] }, event, payload)
}

// PushToTask sends to subscribers of the task channel.
func (h *Hub) PushToTask(taskID uint64, event string, payload any) {
	topic := taskTopic(taskID)
	h.broadcast(func() map[*client]struct{} { return h.topics[topic] }, event, payload)
}

// PushToTaskComments sends to subscribers of the task's comment channel.
func (h *Hub) PushToTaskComments(taskID uint64, event string, payload any) {
	topic := commentsTopic(taskID)
	h.broadcast(func() map[*client]struct{} { return h.topics[topic] }, event, payload)
}

// RevokeTask drops every subscription userID's sessions hold on the task
// and its comment channel, and tells each affected session.
func (h *Hub) RevokeTask(userID, taskID uint64) {
	type revoked struct {
		c     *client
		topic string
	}

	var dropped []revoked
	h.mu.Lock()
	for c := range h.users[userID] {
		for _, topic := range []string{taskTopic(taskID), commentsTopic(taskID)} {
			if _, ok := c.topics[topic]; ok {
				h.removeFromTopic(c, topic)
				dropped = append(dropped, revoked{c: c, topic: topic})
			}
		}
	}
	h.mu.Unlock()

	for _, r := range dropped {
		h.enqueue(r.c, envelope{Event: EventUnsubscribed, Data: map[string]string{"topic": r.topic}})
	}
}

// IsOnline reports whether userID has at least one live session.
func (h *Hub) IsOnline(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var conns []*websocket.Conn
	for _, set := range h.users {
		for c := range set {
			conns = append(conns, c.conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}
