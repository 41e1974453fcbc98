package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
)

// ChatMessage is immutable after creation except for Status, which only
// moves forward: sent -> delivered -> seen.
type ChatMessage struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	ChatRoomID  string        `gorm:"column:chat_room_id;size:36;index" json:"chatRoomId"`
	SenderID    string        `gorm:"column:sender_id;size:128;index" json:"senderId"`
	RecipientID string        `gorm:"column:recipient_id;size:128;index" json:"recipientId"`
	Content     string        `gorm:"type:text;not null" json:"content"`
	Kind        MessageKind   `gorm:"column:kind;size:16;default:text" json:"kind"`
	Status      MessageStatus `gorm:"column:status;size:16;default:sent" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"createdAt"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
