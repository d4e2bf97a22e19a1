package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gateway "github.com/waplatform/messaging-core/internal/gateways"
	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
)

var (
	ErrNotFound            = errors.New("error notfound")
	ErrServiceWindowClosed = errors.New("service window closed, only template messages allowed")
	ErrTemplateNotApproved = errors.New("template is not approved")
	ErrDailyQuotaExhausted = errors.New("daily send quota exhausted")
	ErrPhoneNumberInactive = errors.New("phone number is not active")
	ErrWorkspaceMismatch   = errors.New("template belongs to another workspace")
)

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) (*model.Message, error)
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) // results, totalCount
	MarkSent(ctx context.Context, id int64, wamid string) error
	MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error
}

type ConversationLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	IncrementMessageCount(ctx context.Context, id int64) error
}

type TemplateLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Template, error)
}

type PhoneNumberReserver interface {
	GetByID(ctx context.Context, id int64) (*model.PhoneNumber, error)
	ReserveSend(ctx context.Context, id int64) error
}

// TokenSource hands out the plaintext platform token for an account. Backed
// by the secrets store; the token never appears in logs or responses.
type TokenSource interface {
	Open(ctx context.Context, accountID int64) (string, error)
}

type PlatformSender interface {
	SendText(ctx context.Context, token, platformPhoneID, to, body string) (string, error)
	SendTemplate(ctx context.Context, token, platformPhoneID, to, name, language string, components []gateway.TemplateComponent) (string, error)
}

// MessageService owns outbound conversation sends. Every send consumes one
// unit of the phone number's daily quota before the platform call; a
// rejected send does not refund the unit, matching how the platform meters
// attempted deliveries.
type MessageService struct {
	messages      MessageRepository
	conversations ConversationLookup
	templates     TemplateLookup
	phoneNumbers  PhoneNumberReserver
	tokens        TokenSource
	platform      PlatformSender
	now           func() time.Time
}

func NewMessageService(
	messages MessageRepository,
	conversations ConversationLookup,
	templates TemplateLookup,
	phoneNumbers PhoneNumberReserver,
	tokens TokenSource,
	platform PlatformSender,
) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		templates:     templates,
		phoneNumbers:  phoneNumbers,
		tokens:        tokens,
		platform:      platform,
		now:           time.Now,
	}
}

// Send validates, persists, and delivers one outbound message. The message
// row is created before the platform call so a crash between the two leaves
// a queued row rather than a lost send.
func (s *MessageService) Send(ctx context.Context, p model.SendMessageRequest) (*model.Message, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Body = strings.TrimSpace(p.Body)

	conv, err := s.conversations.GetByID(ctx, p.ConversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var tmpl *model.Template
	if p.Type == model.MessageTypeTemplate {
		tmpl, err = s.templates.GetByID(ctx, *p.TemplateID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("load template: %w", err)
		}
		if tmpl.WorkspaceID != conv.WorkspaceID {
			return nil, ErrWorkspaceMismatch
		}
		if !tmpl.Status.CanSend() {
			return nil, ErrTemplateNotApproved
		}
	} else if !conv.WithinServiceWindow(s.now()) {
		// free-form content needs a customer message within the last 24h
		return nil, ErrServiceWindowClosed
	}

	number, err := s.phoneNumbers.GetByID(ctx, conv.PhoneNumberID)
	if err != nil {
		return nil, fmt.Errorf("load phone number: %w", err)
	}

	if err := s.phoneNumbers.ReserveSend(ctx, number.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrQuotaExceeded):
			return nil, ErrDailyQuotaExhausted
		case errors.Is(err, repository.ErrPhoneNumberInactive):
			return nil, ErrPhoneNumberInactive
		}
		return nil, fmt.Errorf("reserve send: %w", err)
	}

	msg, err := s.messages.Create(ctx, &model.Message{
		ConversationID: conv.ID,
		Direction:      model.DirectionOutbound,
		Type:           p.Type,
		Body:           p.Body,
		MediaURL:       p.MediaURL,
		TemplateID:     p.TemplateID,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	token, err := s.tokens.Open(ctx, number.AccountID)
	if err != nil {
		s.failMessage(ctx, msg.ID, "", "platform credential unavailable")
		return nil, fmt.Errorf("open credential: %w", err)
	}

	var wamid string
	switch p.Type {
	case model.MessageTypeTemplate:
		wamid, err = s.platform.SendTemplate(ctx, token, number.PlatformID, conv.CustomerPhone, tmpl.Name, tmpl.Language, nil)
	default:
		wamid, err = s.platform.SendText(ctx, token, number.PlatformID, conv.CustomerPhone, p.Body)
	}
	if err != nil {
		code, message := platformFailure(err)
		s.failMessage(ctx, msg.ID, code, message)
		return s.messages.GetByID(ctx, msg.ID)
	}

	if err := s.messages.MarkSent(ctx, msg.ID, wamid); err != nil {
		return nil, fmt.Errorf("mark sent: %w", err)
	}
	if err := s.conversations.IncrementMessageCount(ctx, conv.ID); err != nil {
		logger.Warn("Failed to bump conversation counter", "conversation_id", conv.ID, "error", err)
	}

	return s.messages.GetByID(ctx, msg.ID)
}

func (s *MessageService) failMessage(ctx context.Context, id int64, code, message string) {
	if err := s.messages.MarkFailed(ctx, id, code, message); err != nil {
		logger.Error("Failed to record send failure", "message_id", id, "error", err)
	}
}

// platformFailure extracts the structured error detail when the platform
// rejected the send, or a generic transport description otherwise.
func platformFailure(err error) (code, message string) {
	var platformErr *gateway.PlatformError
	if errors.As(err, &platformErr) {
		return strconv.Itoa(platformErr.Code), platformErr.Message
	}
	return "", err.Error()
}

func (s *MessageService) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	return s.messages.List(ctx, f)
}

func (s *MessageService) Get(ctx context.Context, id int64) (*model.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return msg, err
}
