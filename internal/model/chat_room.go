package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRoom is the single conversation anchored to one favor (topic).
// Participants are fixed at creation; IsActive flips to false exactly once
// when the marketplace side signals completion.
type ChatRoom struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	TopicID      uint64    `gorm:"column:topic_id;uniqueIndex" json:"topicId"`
	ParticipantA string    `gorm:"column:participant_a;size:128;index" json:"participantA"`
	ParticipantB string    `gorm:"column:participant_b;size:128;index" json:"participantB"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// HasParticipant reports whether uid is one of the two fixed participants.
func (r *ChatRoom) HasParticipant(uid string) bool {
	return uid != "" && (uid == r.ParticipantA || uid == r.ParticipantB)
}

// OtherParticipant returns the participant that is not uid. Empty string if
// uid is not a participant.
func (r *ChatRoom) OtherParticipant(uid string) string {
	switch uid {
	case r.ParticipantA:
		return r.ParticipantB
	case r.ParticipantB:
		return r.ParticipantA
	}
	return ""
}
