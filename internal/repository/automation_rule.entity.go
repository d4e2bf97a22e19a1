package repository

import (
	"encoding/json"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type AutomationRuleEntity struct {
	ID              int64  `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	WorkspaceID     int64  `db:"workspace_id"     gorm:"column:workspace_id;not null;index"`
	Name            string `db:"name"             gorm:"column:name;not null"`
	TriggerType     string `db:"trigger_type"     gorm:"column:trigger_type;not null"`
	TriggerCategory string `db:"trigger_category" gorm:"column:trigger_category;not null"`
	Keywords        string `db:"keywords"         gorm:"column:keywords;type:text"`
	ActionType      string `db:"action_type"      gorm:"column:action_type;not null"`
	ReplyBody       string `db:"reply_body"       gorm:"column:reply_body;type:text"`
	AssignUserID    *int64 `db:"assign_user_id"   gorm:"column:assign_user_id"`
	AssignTeamID    *int64 `db:"assign_team_id"   gorm:"column:assign_team_id"`
	Priority        int    `db:"priority"         gorm:"column:priority;not null;default:0"`
	// No default tag: gorm would omit Enabled=false from the INSERT and a
	// disabled rule would be created enabled.
	Enabled   bool      `db:"enabled"          gorm:"column:enabled;not null"`
	CreatedAt time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (AutomationRuleEntity) TableName() string { return "automation_rules" }

func toAutomationRuleEntity(m *model.AutomationRule) *AutomationRuleEntity {
	if m == nil {
		return nil
	}
	keywords := ""
	if len(m.Keywords) > 0 {
		raw, _ := json.Marshal(m.Keywords)
		keywords = string(raw)
	}
	return &AutomationRuleEntity{
		ID:              m.ID,
		WorkspaceID:     m.WorkspaceID,
		Name:            m.Name,
		TriggerType:     string(m.TriggerType),
		TriggerCategory: string(m.TriggerCategory),
		Keywords:        keywords,
		ActionType:      string(m.ActionType),
		ReplyBody:       m.ReplyBody,
		AssignUserID:    m.AssignUserID,
		AssignTeamID:    m.AssignTeamID,
		Priority:        m.Priority,
		Enabled:         m.Enabled,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toAutomationRuleModel(e *AutomationRuleEntity) *model.AutomationRule {
	if e == nil {
		return nil
	}
	var keywords []string
	if e.Keywords != "" {
		_ = json.Unmarshal([]byte(e.Keywords), &keywords)
	}
	return &model.AutomationRule{
		ID:              e.ID,
		WorkspaceID:     e.WorkspaceID,
		Name:            e.Name,
		TriggerType:     model.TriggerType(e.TriggerType),
		TriggerCategory: model.TriggerCategory(e.TriggerCategory),
		Keywords:        keywords,
		ActionType:      model.ActionType(e.ActionType),
		ReplyBody:       e.ReplyBody,
		AssignUserID:    e.AssignUserID,
		AssignTeamID:    e.AssignTeamID,
		Priority:        e.Priority,
		Enabled:         e.Enabled,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toAutomationRuleModels(entities []*AutomationRuleEntity) []*model.AutomationRule {
	if entities == nil {
		return nil
	}
	models := make([]*model.AutomationRule, len(entities))
	for i, e := range entities {
		models[i] = toAutomationRuleModel(e)
	}
	return models
}
