package services

import (
	"context"
	"errors"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
)

var ErrConversationClosed = errors.New("conversation status change not allowed")

type ConversationRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error)
	UpdateStatus(ctx context.Context, id int64, to model.ConversationStatus) error
	Assign(ctx context.Context, id int64, userID, teamID *int64) error
}

// ConversationService exposes thread management. Conversations are created
// only by inbound traffic; this service never opens one.
type ConversationService struct {
	conversations ConversationRepository
}

func NewConversationService(conversations ConversationRepository) *ConversationService {
	return &ConversationService{conversations: conversations}
}

func (s *ConversationService) Get(ctx context.Context, id int64) (*model.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return conv, err
}

func (s *ConversationService) List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	return s.conversations.List(ctx, f)
}

func (s *ConversationService) Resolve(ctx context.Context, id int64) (*model.Conversation, error) {
	return s.transition(ctx, id, model.ConversationResolved)
}

func (s *ConversationService) Reopen(ctx context.Context, id int64) (*model.Conversation, error) {
	return s.transition(ctx, id, model.ConversationActive)
}

func (s *ConversationService) MarkPending(ctx context.Context, id int64) (*model.Conversation, error) {
	return s.transition(ctx, id, model.ConversationPending)
}

func (s *ConversationService) transition(ctx context.Context, id int64, to model.ConversationStatus) (*model.Conversation, error) {
	err := s.conversations.UpdateStatus(ctx, id, to)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrConversationClosed
	case err != nil:
		return nil, err
	}
	return s.conversations.GetByID(ctx, id)
}

func (s *ConversationService) Assign(ctx context.Context, id int64, userID, teamID *int64) (*model.Conversation, error) {
	if err := s.conversations.Assign(ctx, id, userID, teamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.conversations.GetByID(ctx, id)
}
