package service

import (
	"context"
	"errors"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FavorService is the thin marketplace collaborator surface the chat
// subsystem reacts to: accepting a favor opens its room, completing it
// turns the room read-only.
type FavorService interface {
	Accept(ctx context.Context, favorID uint64, helperUID string) (*model.ChatRoom, error)
	Complete(ctx context.Context, favorID uint64, posterUID string) error
}

type favorService struct {
	favorRepo repository.FavorRepository
	chat      ChatService
	logger    *zap.Logger
}

func NewFavorService(favorRepo repository.FavorRepository, chat ChatService, logger *zap.Logger) FavorService {
	return &favorService{favorRepo: favorRepo, chat: chat, logger: logger}
}

func (s *favorService) Accept(ctx context.Context, favorID uint64, helperUID string) (*model.ChatRoom, error) {
	favor, err := s.favorRepo.FindByID(ctx, favorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if favor.PosterUID == helperUID {
		return nil, ErrValidation
	}
	if favor.Status != model.FavorStatusOpen {
		return nil, ErrValidation
	}
	if err := s.favorRepo.SetHelper(ctx, favorID, helperUID); err != nil {
		return nil, err
	}
	return s.chat.EnsureRoom(ctx, favorID, favor.PosterUID, helperUID)
}

func (s *favorService) Complete(ctx context.Context, favorID uint64, posterUID string) error {
	favor, err := s.favorRepo.FindByID(ctx, favorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if favor.PosterUID != posterUID {
		return ErrForbidden
	}
	if err := s.favorRepo.SetStatus(ctx, favorID, model.FavorStatusCompleted); err != nil {
		return err
	}
	if err := s.chat.Deactivate(ctx, favorID); err != nil && !errors.Is(err, ErrNotFound) {
		// The favor may never have had a conversation; that is fine.
		s.logger.Warn("room deactivation failed",
			zap.Uint64("favor_id", favorID), zap.Error(err))
	}
	return nil
}
