package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
)

type TemplateRepository struct {
	*pg.DB
}

func NewTemplateRepository(db *pg.DB) *TemplateRepository {
	return &TemplateRepository{db}
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) (*model.Template, error) {
	entity := toTemplateEntity(t)
	if entity.Status == "" {
		entity.Status = string(model.TemplateDraft)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toTemplateModel(entity), nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	var entity TemplateEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTemplateModel(&entity), nil
}

// FindByNaturalKey looks up by the workspace-scoped (name, language) pair.
func (r *TemplateRepository) FindByNaturalKey(ctx context.Context, workspaceID int64, name, language string) (*model.Template, error) {
	var entity TemplateEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("workspace_id = ? AND name = ? AND language = ?", workspaceID, name, language).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTemplateModel(&entity), nil
}

func (r *TemplateRepository) List(ctx context.Context, workspaceID int64, statuses []model.TemplateStatus) ([]*model.Template, error) {
	q := r.Read(ctx).WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if len(statuses) > 0 {
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		q = q.Where("status IN ?", ss)
	}
	var entities []*TemplateEntity
	if err := q.Order("name ASC, language ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTemplateModels(entities), nil
}

// UpdateBody edits the content of a draft or rejected template. The same row
// is reused across resubmissions; identity never changes.
func (r *TemplateRepository) UpdateBody(ctx context.Context, id int64, body string, category model.TemplateCategory) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TemplateEntity{}).
		Where("id = ? AND status IN ?", id, []string{
			string(model.TemplateDraft),
			string(model.TemplateRejected),
		}).
		Updates(map[string]interface{}{
			"body":     body,
			"category": string(category),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// MarkSubmitted moves draft or rejected to submitted and counts the attempt.
func (r *TemplateRepository) MarkSubmitted(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result := r.Write(ctx).WithContext(ctx).
		Model(&TemplateEntity{}).
		Where("id = ? AND status IN ?", id, []string{
			string(model.TemplateDraft),
			string(model.TemplateRejected),
		}).
		Updates(map[string]interface{}{
			"status":           string(model.TemplateSubmitted),
			"submitted_at":     now,
			"rejection_reason": "",
			"submission_count": gorm.Expr("submission_count + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// ApplyDecision records the platform verdict on a submitted template.
func (r *TemplateRepository) ApplyDecision(ctx context.Context, id int64, approved bool, rejectionReason string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"decided_at": now,
	}
	if approved {
		updates["status"] = string(model.TemplateApproved)
	} else {
		updates["status"] = string(model.TemplateRejected)
		updates["rejection_reason"] = rejectionReason
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TemplateEntity{}).
		Where("id = ? AND status = ?", id, string(model.TemplateSubmitted)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}
