package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/repository"
	"github.com/favorly/backend/internal/service"
	"go.uber.org/zap"
)

const handleTimeout = 10 * time.Second

// Hub dispatches inbound socket frames to the chat service and implements
// service.Broadcaster for the outbound direction. Room and presence state
// lives in the Registry; the hub itself is stateless.
type Hub struct {
	registry *Registry
	chat     service.ChatService
	chatRepo repository.ChatRepository
	logger   *zap.Logger
}

func NewHub(registry *Registry, chat service.ChatService, chatRepo repository.ChatRepository, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		chat:     chat,
		chatRepo: chatRepo,
		logger:   logger,
	}
}

// SetChat breaks the construction cycle between hub and chat service: the
// service needs the hub as Broadcaster, the hub needs the service for
// dispatch.
func (h *Hub) SetChat(chat service.ChatService) {
	h.chat = chat
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) handle(c *wsConn, in Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch in.Type {
	case EventRegisterUser:
		h.handleRegister(ctx, c, in)
	case EventJoinChat:
		h.handleJoin(ctx, c, in)
	case EventSendMessage:
		h.handleSend(ctx, c, in)
	case EventMarkSeen:
		h.handleMarkSeen(ctx, c, in)
	case EventTyping:
		h.handleTyping(c, in)
	default:
		h.trySend(c, errorFrame("unknown event type"))
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *wsConn, in Inbound) {
	// The handshake trusts the client-supplied user id. Known gap: there is
	// no token check on this path.
	if in.UserID == "" {
		h.trySend(c, errorFrame("userId is required"))
		return
	}
	c.userID = in.UserID
	h.registry.RegisterGlobal(in.UserID, c)
	h.trySend(c, UserRegisteredFrame{Type: EventUserRegistered, UserID: in.UserID})
	h.announceOnline(ctx, in.UserID)
}

// announceOnline tells any peer with a shared room open that this user is
// reachable again.
func (h *Hub) announceOnline(ctx context.Context, userID string) {
	rooms, err := h.chatRepo.ListRoomsByUser(ctx, userID)
	if err != nil {
		h.logger.Warn("online announce skipped", zap.String("user", userID), zap.Error(err))
		return
	}
	frame := PresenceFrame{Type: EventUserOnline, UserID: userID}
	for _, room := range rooms {
		for uid, peer := range h.registry.RoomPeers(room.ID) {
			if uid == userID {
				continue
			}
			if err := peer.Send(frame); err != nil {
				h.logger.Warn("online notice dropped", zap.String("peer", uid), zap.Error(err))
			}
		}
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *wsConn, in Inbound) {
	if in.UserID == "" || in.TopicID == 0 {
		h.trySend(c, errorFrame("userId and topicId are required"))
		return
	}
	room, err := h.chat.JoinTopic(ctx, in.TopicID, in.UserID)
	if err != nil {
		h.trySend(c, errorFrame(wsErrorText(err)))
		return
	}

	c.userID = in.UserID
	c.roomID = room.ID
	h.registry.JoinRoom(room.ID, in.UserID, c)

	// Everything addressed to the joiner that was still "sent" is now
	// deliverable; senders with the room open catch up live.
	if _, err := h.chat.BulkMarkDelivered(ctx, room.ID, in.UserID); err != nil {
		h.logger.Warn("bulk deliver on join failed", zap.String("room_id", room.ID), zap.Error(err))
	}

	msgs, err := h.chat.RoomMessages(ctx, room.ID, in.UserID)
	if err != nil {
		h.trySend(c, errorFrame(wsErrorText(err)))
		return
	}
	other := room.OtherParticipant(in.UserID)
	h.trySend(c, ChatHistoryFrame{
		Type:     EventChatHistory,
		Messages: msgs,
		Presence: PresenceInfo{
			OtherUserID: other,
			Online:      h.registry.IsOnline(other),
			LastSeen:    h.registry.LastSeen(other),
		},
	})

	joined := PresenceFrame{Type: EventUserJoined, UserID: in.UserID}
	for uid, peer := range h.registry.RoomPeers(room.ID) {
		if uid == in.UserID {
			continue
		}
		if err := peer.Send(joined); err != nil {
			h.logger.Warn("join notice dropped", zap.String("peer", uid), zap.Error(err))
		}
	}
}

func (h *Hub) handleSend(ctx context.Context, c *wsConn, in Inbound) {
	sender := in.SenderID
	if sender == "" {
		sender = c.userID
	}
	msg, err := h.chat.SendToTopic(ctx, in.TopicID, sender, in.Content)
	if err != nil {
		var blocked *service.ModerationError
		if errors.As(err, &blocked) {
			h.trySend(c, MessageBlockedFrame{
				Type:       EventMessageBlocked,
				Reason:     blocked.Reason,
				Suggestion: blocked.Suggestion,
				Severity:   blocked.Severity,
			})
			return
		}
		h.trySend(c, errorFrame(wsErrorText(err)))
		return
	}
	if msg == nil {
		// Blank content. The REST path answers 400; the socket path used to
		// drop these silently, now it says so.
		h.trySend(c, errorFrame("message content is empty"))
		return
	}
	h.trySend(c, messageSentFrame(msg))
}

func (h *Hub) handleMarkSeen(ctx context.Context, c *wsConn, in Inbound) {
	user := in.UserID
	if user == "" {
		user = c.userID
	}
	if err := h.chat.MarkSeen(ctx, in.MessageID, user); err != nil {
		h.trySend(c, errorFrame(wsErrorText(err)))
	}
}

// handleTyping relays the signal to the other occupants of the sender's
// current room. No persistence, no acknowledgement.
func (h *Hub) handleTyping(c *wsConn, in Inbound) {
	if c.roomID == "" {
		return
	}
	user := in.UserID
	if user == "" {
		user = c.userID
	}
	frame := TypingFrame{Type: EventTyping, UserID: user, IsTyping: in.IsTyping}
	for uid, peer := range h.registry.RoomPeers(c.roomID) {
		if uid == user {
			continue
		}
		if err := peer.Send(frame); err != nil {
			h.logger.Warn("typing signal dropped", zap.String("peer", uid), zap.Error(err))
		}
	}
}

// --- service.Broadcaster ---

// MessageCreated reaches every other occupant of the room plus the
// recipient's global connection, which covers a recipient who is online
// elsewhere in the app without this conversation open.
func (h *Hub) MessageCreated(msg *model.ChatMessage) {
	frame := newMessageFrame(msg)
	peers := h.registry.RoomPeers(msg.ChatRoomID)
	for uid, peer := range peers {
		if uid == msg.SenderID {
			continue
		}
		h.trySendTo(uid, peer, frame)
	}
	if _, inRoom := peers[msg.RecipientID]; !inRoom {
		if conn, ok := h.registry.GlobalConn(msg.RecipientID); ok {
			h.trySendTo(msg.RecipientID, conn, frame)
		}
	}
}

func (h *Hub) MessageDelivered(msg *model.ChatMessage) {
	frame := MessageDeliveredFrame{
		Type:        EventMessageDelivered,
		MessageID:   msg.ID,
		DeliveredTo: msg.RecipientID,
	}
	h.statusFanout(msg, frame)
}

func (h *Hub) MessageSeen(msg *model.ChatMessage) {
	frame := MessageSeenFrame{
		Type:      EventMessageSeen,
		MessageID: msg.ID,
		SeenBy:    msg.RecipientID,
	}
	h.statusFanout(msg, frame)
}

// statusFanout sends a status-change frame to the room occupants and falls
// back to the original sender's global connection; the sender is the party
// whose ticks must update.
func (h *Hub) statusFanout(msg *model.ChatMessage, frame any) {
	peers := h.registry.RoomPeers(msg.ChatRoomID)
	for uid, peer := range peers {
		h.trySendTo(uid, peer, frame)
	}
	if _, inRoom := peers[msg.SenderID]; !inRoom {
		if conn, ok := h.registry.GlobalConn(msg.SenderID); ok {
			h.trySendTo(msg.SenderID, conn, frame)
		}
	}
}

func (h *Hub) RoomDeactivated(room *model.ChatRoom, notice *model.ChatMessage) {
	frame := chatDeactivatedFrame(notice)
	peers := h.registry.RoomPeers(room.ID)
	for uid, peer := range peers {
		h.trySendTo(uid, peer, frame)
	}
	for _, uid := range []string{room.ParticipantA, room.ParticipantB} {
		if _, inRoom := peers[uid]; inRoom {
			continue
		}
		if conn, ok := h.registry.GlobalConn(uid); ok {
			h.trySendTo(uid, conn, frame)
		}
	}
}

func (h *Hub) trySend(c *wsConn, v any) {
	if err := c.Send(v); err != nil {
		h.logger.Warn("frame dropped", zap.String("user", c.userID), zap.Error(err))
	}
}

func (h *Hub) trySendTo(uid string, conn Conn, v any) {
	if err := conn.Send(v); err != nil {
		h.logger.Warn("frame dropped", zap.String("user", uid), zap.Error(err))
	}
}

func wsErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "not found"
	case errors.Is(err, service.ErrForbidden):
		return "not a participant of this conversation"
	case errors.Is(err, service.ErrRoomClosed):
		return "conversation is read-only"
	default:
		return "internal error"
	}
}
