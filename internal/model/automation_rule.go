package model

import (
	"errors"
	"time"
)

type TriggerType string

const (
	TriggerKeyword      TriggerType = "keyword"
	TriggerFirstMessage TriggerType = "first_message"
	TriggerOutsideHours TriggerType = "outside_hours"
)

type TriggerCategory string

const (
	TriggerCategoryContent   TriggerCategory = "content"
	TriggerCategoryLifecycle TriggerCategory = "lifecycle"
)

// CategoryForTrigger derives the category from the trigger type at
// construction time. This used to be a persistence hook; it is now a pure
// function so the derivation cannot drift from the stored value.
func CategoryForTrigger(t TriggerType) TriggerCategory {
	if t == TriggerKeyword {
		return TriggerCategoryContent
	}
	return TriggerCategoryLifecycle
}

type ActionType string

const (
	ActionAutoReply ActionType = "auto_reply"
	ActionAssign    ActionType = "assign"
	ActionResolve   ActionType = "resolve"
)

// AutomationRule is evaluated against inbound messages in priority order.
type AutomationRule struct {
	ID              int64           `json:"id"`
	WorkspaceID     int64           `json:"workspace_id"`
	Name            string          `json:"name"`
	TriggerType     TriggerType     `json:"trigger_type"`
	TriggerCategory TriggerCategory `json:"trigger_category"`
	Keywords        []string        `json:"keywords,omitempty"`
	ActionType      ActionType      `json:"action_type"`
	ReplyBody       string          `json:"reply_body,omitempty"`
	AssignUserID    *int64          `json:"assign_user_id,omitempty"`
	AssignTeamID    *int64          `json:"assign_team_id,omitempty"`
	Priority        int             `json:"priority"`
	Enabled         bool            `json:"enabled"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type AutomationRuleCreateRequest struct {
	WorkspaceID  int64
	Name         string
	TriggerType  TriggerType
	Keywords     []string
	ActionType   ActionType
	ReplyBody    string
	AssignUserID *int64
	AssignTeamID *int64
	Priority     int
}

func (p AutomationRuleCreateRequest) Validate() error {
	if p.WorkspaceID == 0 {
		return errors.New("workspace_id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	switch p.TriggerType {
	case TriggerKeyword:
		if len(p.Keywords) == 0 {
			return errors.New("keywords are required for keyword triggers")
		}
	case TriggerFirstMessage, TriggerOutsideHours:
	default:
		return errors.New("unknown trigger type")
	}
	switch p.ActionType {
	case ActionAutoReply:
		if p.ReplyBody == "" {
			return errors.New("reply_body is required for auto_reply actions")
		}
	case ActionAssign:
		if p.AssignUserID == nil && p.AssignTeamID == nil {
			return errors.New("assign_user_id or assign_team_id is required for assign actions")
		}
	case ActionResolve:
	default:
		return errors.New("unknown action type")
	}
	return nil
}
