package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
)

type AutomationRuleRepository interface {
	Create(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error)
	GetByID(ctx context.Context, id int64) (*model.AutomationRule, error)
	List(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error)
	ListEnabled(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error)
	Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
}

// Replier sends the auto-reply. Satisfied by MessageService, so automation
// replies go through the same window and quota gates as operator sends.
type Replier interface {
	Send(ctx context.Context, p model.SendMessageRequest) (*model.Message, error)
}

type InboundCounter interface {
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

// BusinessHours defines when the outside_hours trigger stays quiet.
// Weekends always count as outside.
type BusinessHours struct {
	OpenHour  int
	CloseHour int
	Location  *time.Location
}

func (h BusinessHours) Contains(t time.Time) bool {
	if h.Location != nil {
		t = t.In(h.Location)
	}
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return t.Hour() >= h.OpenHour && t.Hour() < h.CloseHour
}

// AutomationService evaluates workspace rules against inbound messages and
// applies the first matching rule per message. It plugs into the webhook
// tracker as its inbound hook.
type AutomationService struct {
	rules         AutomationRuleRepository
	conversations ConversationRepository
	messages      InboundCounter
	replier       Replier
	hours         BusinessHours
	now           func() time.Time
}

func NewAutomationService(
	rules AutomationRuleRepository,
	conversations ConversationRepository,
	messages InboundCounter,
	replier Replier,
	hours BusinessHours,
) *AutomationService {
	return &AutomationService{
		rules:         rules,
		conversations: conversations,
		messages:      messages,
		replier:       replier,
		hours:         hours,
		now:           time.Now,
	}
}

func (s *AutomationService) Create(ctx context.Context, p model.AutomationRuleCreateRequest) (*model.AutomationRule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.rules.Create(ctx, &model.AutomationRule{
		WorkspaceID:  p.WorkspaceID,
		Name:         p.Name,
		TriggerType:  p.TriggerType,
		Keywords:     p.Keywords,
		ActionType:   p.ActionType,
		ReplyBody:    p.ReplyBody,
		AssignUserID: p.AssignUserID,
		AssignTeamID: p.AssignTeamID,
		Priority:     p.Priority,
		Enabled:      true,
	})
}

func (s *AutomationService) Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	updated, err := s.rules.Update(ctx, rule)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return updated, err
}

func (s *AutomationService) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	err := s.rules.SetEnabled(ctx, id, enabled)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *AutomationService) Delete(ctx context.Context, id int64) error {
	err := s.rules.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *AutomationService) List(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error) {
	return s.rules.List(ctx, workspaceID)
}

// OnInbound evaluates enabled rules in priority order and applies the first
// match. Rule failures are logged and swallowed: automation must never break
// message ingestion.
func (s *AutomationService) OnInbound(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	rules, err := s.rules.ListEnabled(ctx, conv.WorkspaceID)
	if err != nil {
		logger.Error("Failed to load automation rules", "workspace_id", conv.WorkspaceID, "error", err)
		return
	}
	if len(rules) == 0 {
		return
	}

	for _, rule := range rules {
		matched, err := s.matches(ctx, rule, conv, msg)
		if err != nil {
			logger.Error("Automation trigger evaluation failed", "rule_id", rule.ID, "error", err)
			continue
		}
		if !matched {
			continue
		}
		s.apply(ctx, rule, conv)
		return
	}
}

func (s *AutomationService) matches(ctx context.Context, rule *model.AutomationRule, conv *model.Conversation, msg *model.Message) (bool, error) {
	switch rule.TriggerType {
	case model.TriggerKeyword:
		body := strings.ToLower(msg.Body)
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(body, strings.ToLower(kw)) {
				return true, nil
			}
		}
		return false, nil

	case model.TriggerFirstMessage:
		direction := model.DirectionInbound
		_, total, err := s.messages.List(ctx, model.MessageFilter{
			ConversationID: &conv.ID,
			Direction:      &direction,
			Limit:          1,
		})
		if err != nil {
			return false, err
		}
		return total == 1, nil

	case model.TriggerOutsideHours:
		at := s.now()
		if msg.PlatformTime != nil {
			at = *msg.PlatformTime
		}
		return !s.hours.Contains(at), nil
	}
	return false, nil
}

func (s *AutomationService) apply(ctx context.Context, rule *model.AutomationRule, conv *model.Conversation) {
	switch rule.ActionType {
	case model.ActionAutoReply:
		_, err := s.replier.Send(ctx, model.SendMessageRequest{
			ConversationID: conv.ID,
			Type:           model.MessageTypeText,
			Body:           rule.ReplyBody,
		})
		if err != nil {
			logger.Error("Auto-reply failed", "rule_id", rule.ID, "conversation_id", conv.ID, "error", err)
			return
		}
	case model.ActionAssign:
		if err := s.conversations.Assign(ctx, conv.ID, rule.AssignUserID, rule.AssignTeamID); err != nil {
			logger.Error("Auto-assign failed", "rule_id", rule.ID, "conversation_id", conv.ID, "error", err)
			return
		}
	case model.ActionResolve:
		if err := s.conversations.UpdateStatus(ctx, conv.ID, model.ConversationResolved); err != nil {
			logger.Error("Auto-resolve failed", "rule_id", rule.ID, "conversation_id", conv.ID, "error", err)
			return
		}
	}
	logger.Info("Automation rule applied", "rule_id", rule.ID, "action", string(rule.ActionType), "conversation_id", conv.ID)
}
