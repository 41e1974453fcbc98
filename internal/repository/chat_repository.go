package repository

import (
	"context"

	"github.com/favorly/backend/internal/model"
	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateRoom(ctx context.Context, room *model.ChatRoom) error
	FindRoomByTopic(ctx context.Context, topicID uint64) (*model.ChatRoom, error)
	FindRoomByID(ctx context.Context, id string) (*model.ChatRoom, error)
	ListRoomsByUser(ctx context.Context, uid string) ([]model.ChatRoom, error)
	DeactivateRoom(ctx context.Context, topicID uint64) (bool, error)

	CreateMessage(ctx context.Context, msg *model.ChatMessage) error
	FindMessageByID(ctx context.Context, id string) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error)
	MarkDelivered(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID, recipientID string) (bool, error)
	ListUndelivered(ctx context.Context, roomID, recipientID string) ([]model.ChatMessage, error)
	HasUnread(ctx context.Context, roomID, uid string) (bool, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *chatRepository) FindRoomByTopic(ctx context.Context, topicID uint64) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomByID(ctx context.Context, id string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) ListRoomsByUser(ctx context.Context, uid string) ([]model.ChatRoom, error) {
	var list []model.ChatRoom
	if err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", uid, uid).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// DeactivateRoom flips is_active exactly once. The conditional WHERE makes a
// second call a no-op; the bool reports whether this call did the flip.
func (r *chatRepository) DeactivateRoom(ctx context.Context, topicID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ChatRoom{}).
		Where("topic_id = ? AND is_active = ?", topicID, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) FindMessageByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkDelivered flips sent -> delivered. Guarding on the current status keeps
// the transition monotonic under racing REST and socket updates.
func (r *chatRepository) MarkDelivered(ctx context.Context, messageID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("id = ? AND status = ?", messageID, model.StatusSent).
		Update("status", model.StatusDelivered)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkSeen flips to seen only for the message's recipient, from either of
// the two earlier states.
func (r *chatRepository) MarkSeen(ctx context.Context, messageID, recipientID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("id = ? AND recipient_id = ? AND status IN ?",
			messageID, recipientID, []model.MessageStatus{model.StatusSent, model.StatusDelivered}).
		Update("status", model.StatusSeen)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *chatRepository) ListUndelivered(ctx context.Context, roomID, recipientID string) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("chat_room_id = ? AND recipient_id = ? AND status = ?",
			roomID, recipientID, model.StatusSent).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) HasUnread(ctx context.Context, roomID, uid string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("chat_room_id = ? AND recipient_id = ? AND status <> ?",
			roomID, uid, model.StatusSeen).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
