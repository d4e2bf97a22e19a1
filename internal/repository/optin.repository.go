package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OptInRepository is the sole source of truth for marketing consent.
type OptInRepository struct {
	*pg.DB
}

func NewOptInRepository(db *pg.DB) *OptInRepository {
	return &OptInRepository{db}
}

func (r *OptInRepository) GetByPhone(ctx context.Context, workspaceID int64, phone string) (*model.OptIn, error) {
	var entity OptInEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("workspace_id = ? AND phone_number = ?", workspaceID, phone).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toOptInModel(&entity), nil
}

// IsActive reports whether the number may receive marketing sends. A missing
// record counts as not opted in.
func (r *OptInRepository) IsActive(ctx context.Context, workspaceID int64, phone string) (bool, error) {
	o, err := r.GetByPhone(ctx, workspaceID, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return o.IsActive, nil
}

// RecordConsent registers a new explicit consent event; it re-activates an
// opted-out number only because the consent came from outside campaign code.
func (r *OptInRepository) RecordConsent(ctx context.Context, o *model.OptIn) (*model.OptIn, error) {
	entity := toOptInEntity(o)
	if entity.OptedInAt.IsZero() {
		entity.OptedInAt = time.Now().UTC()
	}
	entity.IsActive = true
	entity.OptedOutAt = nil

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "workspace_id"}, {Name: "phone_number"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_active":    true,
				"opted_in_at":  entity.OptedInAt,
				"opted_out_at": nil,
				"source":       entity.Source,
			}),
		}).
		Create(entity).Error
	if err != nil {
		return nil, err
	}
	return r.GetByPhone(ctx, o.WorkspaceID, o.PhoneNumber)
}

// Import bulk-upserts consent records. Existing rows keep their current
// active flag: an import never silently re-activates an opt-out.
func (r *OptInRepository) Import(ctx context.Context, workspaceID int64, optIns []*model.OptIn) (int64, error) {
	if len(optIns) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	entities := make([]*OptInEntity, len(optIns))
	for i, o := range optIns {
		e := toOptInEntity(o)
		e.WorkspaceID = workspaceID
		e.IsActive = true
		if e.OptedInAt.IsZero() {
			e.OptedInAt = now
		}
		if e.Source == "" {
			e.Source = string(model.OptInSourceImport)
		}
		entities[i] = e
	}

	result := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "phone_number"}},
			DoNothing: true,
		}).
		Create(&entities)
	return result.RowsAffected, result.Error
}

// OptOut deactivates the number. Idempotent: the opt-out timestamp is written
// once and repeat calls are no-ops.
func (r *OptInRepository) OptOut(ctx context.Context, workspaceID int64, phone string) error {
	now := time.Now().UTC()
	result := r.Write(ctx).WithContext(ctx).
		Model(&OptInEntity{}).
		Where("workspace_id = ? AND phone_number = ? AND is_active = ?", workspaceID, phone, true).
		Updates(map[string]interface{}{
			"is_active":    false,
			"opted_out_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// already opted out, or never opted in; both are fine
		_, err := r.GetByPhone(ctx, workspaceID, phone)
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *OptInRepository) List(ctx context.Context, f model.OptInFilter) ([]*model.OptIn, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&OptInEntity{})

	if f.WorkspaceID != nil {
		q = q.Where("workspace_id = ?", *f.WorkspaceID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.PhonePrefix != nil && *f.PhonePrefix != "" {
		q = q.Where("phone_number LIKE ?", *f.PhonePrefix+"%")
	}
	if f.OptedInAfter != nil {
		q = q.Where("opted_in_at >= ?", *f.OptedInAfter)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*OptInEntity
	if err := q.Order("opted_in_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toOptInModels(entities), total, nil
}
