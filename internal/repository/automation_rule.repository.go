package repository

import (
	"context"
	"errors"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
)

type AutomationRuleRepository struct {
	*pg.DB
}

func NewAutomationRuleRepository(db *pg.DB) *AutomationRuleRepository {
	return &AutomationRuleRepository{db}
}

func (r *AutomationRuleRepository) Create(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	rule.TriggerCategory = model.CategoryForTrigger(rule.TriggerType)
	entity := toAutomationRuleEntity(rule)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toAutomationRuleModel(entity), nil
}

func (r *AutomationRuleRepository) GetByID(ctx context.Context, id int64) (*model.AutomationRule, error) {
	var entity AutomationRuleEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toAutomationRuleModel(&entity), nil
}

func (r *AutomationRuleRepository) List(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error) {
	var entities []*AutomationRuleEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("priority ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toAutomationRuleModels(entities), nil
}

// ListEnabled returns the rules the evaluator walks, lowest priority value
// first. Ties break on id so the order is stable.
func (r *AutomationRuleRepository) ListEnabled(ctx context.Context, workspaceID int64) ([]*model.AutomationRule, error) {
	var entities []*AutomationRuleEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("workspace_id = ? AND enabled = ?", workspaceID, true).
		Order("priority ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toAutomationRuleModels(entities), nil
}

func (r *AutomationRuleRepository) Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	rule.TriggerCategory = model.CategoryForTrigger(rule.TriggerType)
	entity := toAutomationRuleEntity(rule)
	result := r.Write(ctx).WithContext(ctx).
		Model(&AutomationRuleEntity{}).
		Where("id = ?", entity.ID).
		Updates(map[string]interface{}{
			"name":             entity.Name,
			"trigger_type":     entity.TriggerType,
			"trigger_category": entity.TriggerCategory,
			"keywords":         entity.Keywords,
			"action_type":      entity.ActionType,
			"reply_body":       entity.ReplyBody,
			"assign_user_id":   entity.AssignUserID,
			"assign_team_id":   entity.AssignTeamID,
			"priority":         entity.Priority,
			"enabled":          entity.Enabled,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, rule.ID)
}

func (r *AutomationRuleRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AutomationRuleEntity{}).
		Where("id = ?", id).
		Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish missing from already in the requested state.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *AutomationRuleRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&AutomationRuleEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
