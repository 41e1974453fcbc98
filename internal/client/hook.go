// Package client is the consumer-side sync hook: it folds REST snapshots
// and live socket events into one coherent message/presence/typing view and
// picks the cheaper send path.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/realtime"
	"github.com/favorly/backend/internal/service"
	"go.uber.org/zap"
)

// API is the REST surface the hook consumes.
type API interface {
	TopicView(ctx context.Context, topicID uint64) (*service.TopicView, error)
	Messages(ctx context.Context, roomID string) ([]model.ChatMessage, error)
	SendMessage(ctx context.Context, topicID uint64, content string) (*model.ChatMessage, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// socketConn is the subset of a websocket connection the hook uses.
// *websocket.Conn satisfies it directly.
type socketConn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens one socket connection to the chat endpoint.
type Dialer func(ctx context.Context) (socketConn, error)

// View is the reconciled read model.
type View struct {
	Messages    []model.ChatMessage
	OtherUserID string
	OtherOnline bool
	OtherTyping bool
	ReadOnly    bool
}

type connState int

const (
	connDisconnected connState = iota
	connConnecting
	connOpen
)

var ErrDisabled = errors.New("sync hook is disabled")

// Hook has two states: Disabled (any of room id / topic id / user id
// unknown; every operation is a no-op) and Ready. Ready owns at most one
// socket connection and at most one scheduled reconnect.
type Hook struct {
	api        API
	dial       Dialer
	logger     *zap.Logger
	retryDelay time.Duration

	mu      sync.Mutex
	enabled bool
	roomID  string
	topicID uint64
	userID  string

	conn  socketConn
	state connState
	retry *time.Timer

	view View
	byID map[string]int
}

func New(api API, dial Dialer, logger *zap.Logger) *Hook {
	return &Hook{
		api:        api,
		dial:       dial,
		logger:     logger,
		retryDelay: 3 * time.Second,
		byID:       make(map[string]int),
	}
}

// Enable moves the hook to Ready. The REST history fetch is the source of
// truth for initial content; presence metadata comes separately; only then
// does the single socket connection open.
func (h *Hook) Enable(ctx context.Context, roomID string, topicID uint64, userID string) error {
	if roomID == "" || topicID == 0 || userID == "" {
		return ErrDisabled
	}

	msgs, err := h.api.Messages(ctx, roomID)
	if err != nil {
		return err
	}

	var otherID string
	var otherOnline bool
	if meta, err := h.api.TopicView(ctx, topicID); err != nil {
		h.logger.Warn("metadata fetch failed", zap.Uint64("topic", topicID), zap.Error(err))
	} else {
		otherID = meta.OtherUserID
		otherOnline = meta.OtherUserOnline
	}

	h.mu.Lock()
	h.enabled = true
	h.roomID = roomID
	h.topicID = topicID
	h.userID = userID
	h.view = View{OtherUserID: otherID, OtherOnline: otherOnline}
	h.byID = make(map[string]int)
	h.adoptLocked(msgs)
	h.mu.Unlock()

	h.connect(ctx)
	return nil
}

// Disable tears everything down: the socket, the pending retry, the view.
func (h *Hook) Disable() {
	h.mu.Lock()
	h.enabled = false
	if h.retry != nil {
		h.retry.Stop()
		h.retry = nil
	}
	conn := h.conn
	h.conn = nil
	h.state = connDisconnected
	h.view = View{}
	h.byID = make(map[string]int)
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Send prefers the open socket; without one it POSTs via REST and then
// re-fetches, since no broadcast echo will arrive for the sender.
func (h *Hook) Send(ctx context.Context, content string) error {
	h.mu.Lock()
	if !h.enabled {
		h.mu.Unlock()
		return nil
	}
	conn, open := h.conn, h.state == connOpen
	topicID, roomID, userID := h.topicID, h.roomID, h.userID
	h.mu.Unlock()

	if open && conn != nil {
		return conn.WriteJSON(realtime.Inbound{
			Type:     realtime.EventSendMessage,
			TopicID:  topicID,
			SenderID: userID,
			Content:  content,
		})
	}

	if _, err := h.api.SendMessage(ctx, topicID, content); err != nil {
		return err
	}
	msgs, err := h.api.Messages(ctx, roomID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.adoptLocked(msgs)
	h.mu.Unlock()
	return nil
}

// Typing is a fire-and-forget socket signal. No REST fallback, no ack.
func (h *Hook) Typing(isTyping bool) {
	h.mu.Lock()
	conn, ok := h.conn, h.enabled && h.state == connOpen
	topicID, userID := h.topicID, h.userID
	h.mu.Unlock()
	if !ok || conn == nil {
		return
	}
	if err := conn.WriteJSON(realtime.Inbound{
		Type:     realtime.EventTyping,
		TopicID:  topicID,
		UserID:   userID,
		IsTyping: isTyping,
	}); err != nil {
		h.logger.Debug("typing signal dropped", zap.Error(err))
	}
}

// MarkSeen flips one incoming message, socket-first with REST fallback.
func (h *Hook) MarkSeen(ctx context.Context, messageID string) error {
	h.mu.Lock()
	if !h.enabled {
		h.mu.Unlock()
		return nil
	}
	conn, open := h.conn, h.state == connOpen
	topicID, userID := h.topicID, h.userID
	h.mu.Unlock()

	if open && conn != nil {
		return conn.WriteJSON(realtime.Inbound{
			Type:      realtime.EventMarkSeen,
			TopicID:   topicID,
			UserID:    userID,
			MessageID: messageID,
		})
	}
	return h.api.MarkSeen(ctx, messageID)
}

// Snapshot returns a copy of the current view, ordered by each message's
// own timestamp rather than arrival order.
func (h *Hook) Snapshot() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.view
	out.Messages = make([]model.ChatMessage, len(h.view.Messages))
	copy(out.Messages, h.view.Messages)
	return out
}

// --- connection state machine: Disconnected -> Connecting -> Open ---

func (h *Hook) connect(ctx context.Context) {
	h.mu.Lock()
	if !h.enabled || h.state != connDisconnected {
		h.mu.Unlock()
		return
	}
	h.state = connConnecting
	topicID, userID := h.topicID, h.userID
	h.mu.Unlock()

	conn, err := h.dial(ctx)
	if err != nil {
		h.logger.Warn("socket dial failed", zap.Error(err))
		h.mu.Lock()
		h.state = connDisconnected
		h.scheduleRetryLocked()
		h.mu.Unlock()
		return
	}

	// The server keeps no presence across a dropped connection, so every
	// (re)connect repeats the full register+join handshake.
	if err := conn.WriteJSON(realtime.Inbound{Type: realtime.EventRegisterUser, UserID: userID}); err == nil {
		err = conn.WriteJSON(realtime.Inbound{Type: realtime.EventJoinChat, TopicID: topicID, UserID: userID})
	} else {
		h.logger.Warn("handshake failed", zap.Error(err))
		_ = conn.Close()
		h.mu.Lock()
		h.state = connDisconnected
		h.scheduleRetryLocked()
		h.mu.Unlock()
		return
	}

	h.mu.Lock()
	if !h.enabled {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conn = conn
	h.state = connOpen
	h.mu.Unlock()

	go h.readLoop(conn)
}

func (h *Hook) readLoop(conn socketConn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.onClosed(conn)
			return
		}
		h.handleFrame(raw)
	}
}

func (h *Hook) onClosed(conn socketConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		// Intentional teardown or an already-replaced connection.
		return
	}
	h.conn = nil
	h.state = connDisconnected
	if h.enabled {
		h.scheduleRetryLocked()
	}
}

// scheduleRetryLocked arms exactly one fixed-delay reconnect. A retry that
// is already pending is left alone.
func (h *Hook) scheduleRetryLocked() {
	if h.retry != nil {
		return
	}
	h.retry = time.AfterFunc(h.retryDelay, func() {
		h.mu.Lock()
		h.retry = nil
		enabled := h.enabled && h.state == connDisconnected
		h.mu.Unlock()
		if enabled {
			h.connect(context.Background())
		}
	})
}

// --- reconciliation ---

var statusRank = map[model.MessageStatus]int{
	model.StatusSent:      0,
	model.StatusDelivered: 1,
	model.StatusSeen:      2,
}

func (h *Hook) handleFrame(raw []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		h.logger.Debug("undecodable frame", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.enabled {
		return
	}

	switch head.Type {
	case realtime.EventChatHistory:
		var f realtime.ChatHistoryFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		// The REST fetch is authoritative; a socket snapshot only fills an
		// empty view, so a stale snapshot cannot clobber newer REST state.
		if len(h.view.Messages) == 0 {
			h.adoptLocked(f.Messages)
		}
		h.view.OtherUserID = f.Presence.OtherUserID
		h.view.OtherOnline = f.Presence.Online

	case realtime.EventNewMessage, realtime.EventMessageSent:
		var f realtime.MessageFrame
		if json.Unmarshal(raw, &f) != nil || f.Message == nil {
			return
		}
		h.upsertLocked(*f.Message)

	case realtime.EventMessageDelivered:
		var f realtime.MessageDeliveredFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		h.patchStatusLocked(f.MessageID, model.StatusDelivered)

	case realtime.EventMessageSeen:
		var f realtime.MessageSeenFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		h.patchStatusLocked(f.MessageID, model.StatusSeen)

	case realtime.EventUserOnline, realtime.EventUserJoined:
		var f realtime.PresenceFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		if f.UserID == h.view.OtherUserID {
			h.view.OtherOnline = true
		}

	case realtime.EventUserOffline:
		var f realtime.PresenceFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		if f.UserID == h.view.OtherUserID {
			h.view.OtherOnline = false
			h.view.OtherTyping = false
		}

	case realtime.EventTyping:
		var f realtime.TypingFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		if f.UserID == h.view.OtherUserID {
			h.view.OtherTyping = f.IsTyping
		}

	case realtime.EventChatDeactivated:
		var f realtime.MessageFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		h.view.ReadOnly = true
		if f.Message != nil {
			h.upsertLocked(*f.Message)
		}

	case realtime.EventMessageBlocked:
		var f realtime.MessageBlockedFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		h.logger.Warn("message blocked by moderation", zap.String("reason", f.Reason))

	case realtime.EventError:
		var f realtime.ErrorFrame
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		h.logger.Warn("server error frame", zap.String("message", f.Message))
	}
}

// adoptLocked replaces the whole list; used only for authoritative
// snapshots (REST fetch, REST re-fetch after a REST send).
func (h *Hook) adoptLocked(msgs []model.ChatMessage) {
	h.view.Messages = append(h.view.Messages[:0], msgs...)
	h.resortLocked()
}

// upsertLocked is an id-keyed patch: append when unknown, merge when known.
// Patching by id makes out-of-order delivery of status events safe.
func (h *Hook) upsertLocked(msg model.ChatMessage) {
	if i, ok := h.byID[msg.ID]; ok {
		if statusRank[msg.Status] > statusRank[h.view.Messages[i].Status] {
			h.view.Messages[i].Status = msg.Status
		}
		return
	}
	h.view.Messages = append(h.view.Messages, msg)
	h.resortLocked()
}

func (h *Hook) patchStatusLocked(messageID string, status model.MessageStatus) {
	i, ok := h.byID[messageID]
	if !ok {
		return
	}
	// Status never regresses, whatever order the events arrived in.
	if statusRank[status] > statusRank[h.view.Messages[i].Status] {
		h.view.Messages[i].Status = status
	}
}

func (h *Hook) resortLocked() {
	sort.SliceStable(h.view.Messages, func(i, j int) bool {
		a, b := h.view.Messages[i], h.view.Messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	h.byID = make(map[string]int, len(h.view.Messages))
	for i := range h.view.Messages {
		h.byID[h.view.Messages[i].ID] = i
	}
}
