package realtime

import (
	"time"

	"github.com/favorly/backend/internal/model"
)

// Client -> server frame types.
const (
	EventRegisterUser = "register_user"
	EventJoinChat     = "join_chat"
	EventSendMessage  = "send_message"
	EventMarkSeen     = "mark_seen"
	EventTyping       = "typing"
)

// Server -> client frame types.
const (
	EventUserRegistered   = "user_registered"
	EventChatHistory      = "chat_history"
	EventNewMessage       = "new_message"
	EventMessageSent      = "message_sent"
	EventMessageDelivered = "message_delivered"
	EventMessageSeen      = "message_seen"
	EventUserOnline       = "user_online"
	EventUserOffline      = "user_offline"
	EventUserJoined       = "user_joined"
	EventMessageBlocked   = "message_blocked"
	EventChatDeactivated  = "chat_deactivated"
	EventError            = "error"
)

// Inbound is the one decode target for every client -> server frame; the
// Type field decides which of the remaining fields matter.
type Inbound struct {
	Type      string `json:"type"`
	UserID    string `json:"userId,omitempty"`
	SenderID  string `json:"senderId,omitempty"`
	TopicID   uint64 `json:"topicId,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	IsTyping  bool   `json:"isTyping,omitempty"`
}

// PresenceInfo describes the counterpart's reachability inside a
// chat_history snapshot.
type PresenceInfo struct {
	OtherUserID string     `json:"otherUserId"`
	Online      bool       `json:"online"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
}

type UserRegisteredFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type ChatHistoryFrame struct {
	Type     string              `json:"type"`
	Messages []model.ChatMessage `json:"messages"`
	Presence PresenceInfo        `json:"presence"`
}

type MessageFrame struct {
	Type    string             `json:"type"`
	Message *model.ChatMessage `json:"message"`
}

type MessageDeliveredFrame struct {
	Type        string `json:"type"`
	MessageID   string `json:"messageId"`
	DeliveredTo string `json:"deliveredTo"`
}

type MessageSeenFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	SeenBy    string `json:"seenBy"`
}

type PresenceFrame struct {
	Type     string     `json:"type"`
	UserID   string     `json:"userId"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type TypingFrame struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type MessageBlockedFrame struct {
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion,omitempty"`
	Severity   string `json:"severity,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newMessageFrame(m *model.ChatMessage) MessageFrame {
	return MessageFrame{Type: EventNewMessage, Message: m}
}

func messageSentFrame(m *model.ChatMessage) MessageFrame {
	return MessageFrame{Type: EventMessageSent, Message: m}
}

func chatDeactivatedFrame(notice *model.ChatMessage) MessageFrame {
	return MessageFrame{Type: EventChatDeactivated, Message: notice}
}

func errorFrame(msg string) ErrorFrame {
	return ErrorFrame{Type: EventError, Message: msg}
}
