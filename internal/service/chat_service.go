package service

import (
	"context"
	"errors"
	"strings"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/moderation"
	"github.com/favorly/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	systemChatStarted  = "Chat started"
	systemChatReadOnly = "This favor is complete. The conversation is now read-only."
)

// Presence answers live-reachability questions. It is the sole authority
// for initial message status and broadcast targets.
type Presence interface {
	IsOnline(userID string) bool
	IsInRoom(roomID, userID string) bool
}

// Broadcaster fans realtime frames out to connected participants. All calls
// are best-effort; delivery failures never surface to the caller.
type Broadcaster interface {
	MessageCreated(msg *model.ChatMessage)
	MessageDelivered(msg *model.ChatMessage)
	MessageSeen(msg *model.ChatMessage)
	RoomDeactivated(room *model.ChatRoom, notice *model.ChatMessage)
}

// Notifier reaches a recipient who is not connected on any path. It must
// never block the send path.
type Notifier interface {
	NewMessageAlert(ctx context.Context, recipientID string, msg *model.ChatMessage, topicID uint64)
}

// Classifier is the moderation collaborator's contract.
type Classifier interface {
	Classify(ctx context.Context, text string) (moderation.Verdict, error)
}

type TopicView struct {
	ChatRoomID      string              `json:"chatRoomId"`
	TopicID         uint64              `json:"topicId"`
	OtherUserID     string              `json:"otherUserId"`
	OtherUserOnline bool                `json:"otherUserOnline"`
	IsActive        bool                `json:"isActive"`
	Messages        []model.ChatMessage `json:"messages"`
}

type ConversationView struct {
	ChatRoomID      string `json:"chatRoomId"`
	TopicID         uint64 `json:"topicId"`
	OtherUserID     string `json:"otherUserId"`
	OtherUserOnline bool   `json:"otherUserOnline"`
	HasUnread       bool   `json:"hasUnread"`
	IsActive        bool   `json:"isActive"`
}

type ChatService interface {
	EnsureRoom(ctx context.Context, topicID uint64, a, b string) (*model.ChatRoom, error)
	JoinTopic(ctx context.Context, topicID uint64, userID string) (*model.ChatRoom, error)
	Deactivate(ctx context.Context, topicID uint64) error

	Send(ctx context.Context, roomID, senderID, content string) (*model.ChatMessage, error)
	SendToTopic(ctx context.Context, topicID uint64, senderID, content string) (*model.ChatMessage, error)
	MarkDelivered(ctx context.Context, messageID, userID string) error
	MarkSeen(ctx context.Context, messageID, userID string) error
	BulkMarkDelivered(ctx context.Context, roomID, recipientID string) (int, error)

	RoomMessages(ctx context.Context, roomID, userID string) ([]model.ChatMessage, error)
	TopicView(ctx context.Context, topicID uint64, userID string) (*TopicView, error)
	Conversations(ctx context.Context, userID string) ([]ConversationView, error)
}

type chatService struct {
	chatRepo   repository.ChatRepository
	favorRepo  repository.FavorRepository
	presence   Presence
	broadcast  Broadcaster
	notifier   Notifier
	classifier Classifier
	logger     *zap.Logger
}

func NewChatService(
	chatRepo repository.ChatRepository,
	favorRepo repository.FavorRepository,
	presence Presence,
	broadcast Broadcaster,
	notifier Notifier,
	classifier Classifier,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		chatRepo:   chatRepo,
		favorRepo:  favorRepo,
		presence:   presence,
		broadcast:  broadcast,
		notifier:   notifier,
		classifier: classifier,
		logger:     logger,
	}
}

// EnsureRoom is create-or-fetch keyed by topic. Concurrent creators racing
// for the same topic converge on the single row behind the unique index;
// only the winner appends the "chat started" system message.
func (s *chatService) EnsureRoom(ctx context.Context, topicID uint64, a, b string) (*model.ChatRoom, error) {
	room, err := s.chatRepo.FindRoomByTopic(ctx, topicID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = &model.ChatRoom{
		TopicID:      topicID,
		ParticipantA: a,
		ParticipantB: b,
		IsActive:     true,
	}
	if err := s.chatRepo.CreateRoom(ctx, room); err != nil {
		// A concurrent creator won the unique index; their row is the room.
		existing, ferr := s.chatRepo.FindRoomByTopic(ctx, topicID)
		if ferr != nil {
			return nil, err
		}
		return existing, nil
	}

	sys := &model.ChatMessage{
		ChatRoomID: room.ID,
		SenderID:   "system",
		Content:    systemChatStarted,
		Kind:       model.KindSystem,
		Status:     model.StatusDelivered,
	}
	if err := s.chatRepo.CreateMessage(ctx, sys); err != nil {
		s.logger.Warn("failed to write chat-started notice",
			zap.String("room_id", room.ID), zap.Error(err))
	}
	return room, nil
}

// JoinTopic resolves (and if needed creates) the room for a topic on behalf
// of one participant. The favor decides who the two participants are: the
// poster plus either the accepted helper or the first non-poster to open
// the conversation.
func (s *chatService) JoinTopic(ctx context.Context, topicID uint64, userID string) (*model.ChatRoom, error) {
	favor, err := s.favorRepo.FindByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if userID == favor.PosterUID {
		room, err := s.chatRepo.FindRoomByTopic(ctx, topicID)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if favor.HelperUID == "" {
			// Nobody has opened a conversation on this favor yet.
			return nil, ErrNotFound
		}
		return s.EnsureRoom(ctx, topicID, favor.PosterUID, favor.HelperUID)
	}

	if favor.HelperUID != "" && favor.HelperUID != userID {
		return nil, ErrForbidden
	}
	return s.EnsureRoom(ctx, topicID, favor.PosterUID, userID)
}

// Deactivate flips the room read-only exactly once. Repeat calls are no-ops.
func (s *chatService) Deactivate(ctx context.Context, topicID uint64) error {
	room, err := s.chatRepo.FindRoomByTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	flipped, err := s.chatRepo.DeactivateRoom(ctx, topicID)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	notice := &model.ChatMessage{
		ChatRoomID: room.ID,
		SenderID:   "system",
		Content:    systemChatReadOnly,
		Kind:       model.KindSystem,
		Status:     model.StatusDelivered,
	}
	if err := s.chatRepo.CreateMessage(ctx, notice); err != nil {
		s.logger.Warn("failed to write read-only notice",
			zap.String("room_id", room.ID), zap.Error(err))
	}
	room.IsActive = false
	s.broadcast.RoomDeactivated(room, notice)
	return nil
}

// Send persists one message and fans it out. The initial status comes from
// presence: delivered when the recipient is reachable in the room or
// globally, sent otherwise. An unreachable recipient gets a background
// notification which can neither block nor fail the send.
func (s *chatService) Send(ctx context.Context, roomID, senderID, content string) (*model.ChatMessage, error) {
	// Blank content is a silent no-op; primary validation is the caller's.
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	room, err := s.chatRepo.FindRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !room.HasParticipant(senderID) {
		return nil, ErrForbidden
	}
	if !room.IsActive {
		return nil, ErrRoomClosed
	}

	if s.classifier != nil {
		verdict, err := s.classifier.Classify(ctx, content)
		if err != nil {
			// Moderation is best-effort; an unreachable classifier never
			// blocks legitimate chat.
			s.logger.Warn("moderation unavailable", zap.Error(err))
		} else if !verdict.Allowed {
			return nil, &ModerationError{
				Reason:     verdict.Reason,
				Suggestion: verdict.Suggestion,
				Severity:   verdict.Severity,
			}
		}
	}

	recipient := room.OtherParticipant(senderID)
	status := model.StatusSent
	if s.presence.IsInRoom(room.ID, recipient) || s.presence.IsOnline(recipient) {
		status = model.StatusDelivered
	}

	msg := &model.ChatMessage{
		ChatRoomID:  room.ID,
		SenderID:    senderID,
		RecipientID: recipient,
		Content:     content,
		Kind:        model.KindText,
		Status:      status,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.broadcast.MessageCreated(msg)

	if status == model.StatusSent && s.notifier != nil {
		// Detached from the request context: the send already succeeded.
		go s.notifier.NewMessageAlert(context.Background(), recipient, msg, room.TopicID)
	}
	return msg, nil
}

func (s *chatService) SendToTopic(ctx context.Context, topicID uint64, senderID, content string) (*model.ChatMessage, error) {
	room, err := s.chatRepo.FindRoomByTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Send(ctx, room.ID, senderID, content)
}

// MarkDelivered is idempotent: only a message still in "sent" flips, and
// only the flip broadcasts. The caller must be one of the message's two
// participants.
func (s *chatService) MarkDelivered(ctx context.Context, messageID, userID string) error {
	msg, err := s.chatRepo.FindMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if msg.SenderID != userID && msg.RecipientID != userID {
		return ErrForbidden
	}
	flipped, err := s.chatRepo.MarkDelivered(ctx, messageID)
	if err != nil {
		return err
	}
	if flipped {
		msg.Status = model.StatusDelivered
		s.broadcast.MessageDelivered(msg)
	}
	return nil
}

// MarkSeen requires the caller to be the message's recipient.
func (s *chatService) MarkSeen(ctx context.Context, messageID, userID string) error {
	msg, err := s.chatRepo.FindMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if msg.RecipientID != userID {
		return ErrForbidden
	}
	flipped, err := s.chatRepo.MarkSeen(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if flipped {
		msg.Status = model.StatusSeen
		s.broadcast.MessageSeen(msg)
	}
	return nil
}

// BulkMarkDelivered flips every pending message addressed to recipientID in
// one pass, broadcasting one message_delivered per flipped message so an
// open sender view catches up live.
func (s *chatService) BulkMarkDelivered(ctx context.Context, roomID, recipientID string) (int, error) {
	pending, err := s.chatRepo.ListUndelivered(ctx, roomID, recipientID)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range pending {
		flipped, err := s.chatRepo.MarkDelivered(ctx, pending[i].ID)
		if err != nil {
			s.logger.Warn("bulk deliver failed for message",
				zap.String("message_id", pending[i].ID), zap.Error(err))
			continue
		}
		if flipped {
			pending[i].Status = model.StatusDelivered
			s.broadcast.MessageDelivered(&pending[i])
			n++
		}
	}
	return n, nil
}

func (s *chatService) RoomMessages(ctx context.Context, roomID, userID string) ([]model.ChatMessage, error) {
	room, err := s.chatRepo.FindRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return s.chatRepo.ListMessages(ctx, roomID)
}

// TopicView is the REST snapshot a client reconciles against: room id,
// counterpart, counterpart reachability, and full history. Fetching the
// view also runs the bulk-delivered pass for the viewer.
func (s *chatService) TopicView(ctx context.Context, topicID uint64, userID string) (*TopicView, error) {
	room, err := s.chatRepo.FindRoomByTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, ErrForbidden
	}

	if _, err := s.BulkMarkDelivered(ctx, room.ID, userID); err != nil {
		s.logger.Warn("bulk deliver on fetch failed",
			zap.String("room_id", room.ID), zap.Error(err))
	}

	msgs, err := s.chatRepo.ListMessages(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	other := room.OtherParticipant(userID)
	return &TopicView{
		ChatRoomID:      room.ID,
		TopicID:         room.TopicID,
		OtherUserID:     other,
		OtherUserOnline: s.presence.IsOnline(other),
		IsActive:        room.IsActive,
		Messages:        msgs,
	}, nil
}

func (s *chatService) Conversations(ctx context.Context, userID string) ([]ConversationView, error) {
	rooms, err := s.chatRepo.ListRoomsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(rooms))
	for _, room := range rooms {
		other := room.OtherParticipant(userID)
		unread, err := s.chatRepo.HasUnread(ctx, room.ID, userID)
		if err != nil {
			s.logger.Warn("unread lookup failed",
				zap.String("room_id", room.ID), zap.Error(err))
		}
		views = append(views, ConversationView{
			ChatRoomID:      room.ID,
			TopicID:         room.TopicID,
			OtherUserID:     other,
			OtherUserOnline: s.presence.IsOnline(other),
			HasUnread:       unread,
			IsActive:        room.IsActive,
		})
	}
	return views, nil
}
