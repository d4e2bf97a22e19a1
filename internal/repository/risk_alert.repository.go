package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
)

type RiskAlertRepository struct {
	*pg.DB
}

func NewRiskAlertRepository(db *pg.DB) *RiskAlertRepository {
	return &RiskAlertRepository{db}
}

// CreateIfAbsent records an alert unless an open alert of the same type
// already exists for the account. The monitor runs on a ticker, so the
// same condition is observed repeatedly; the dedup keeps one open alert
// per (account, type) instead of one per tick.
func (r *RiskAlertRepository) CreateIfAbsent(ctx context.Context, alert *model.AccountRiskAlert) (*model.AccountRiskAlert, bool, error) {
	var existing RiskAlertEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id = ? AND type = ? AND resolved_at IS NULL", alert.AccountID, string(alert.Type)).
		First(&existing).Error
	if err == nil {
		return toRiskAlertModel(&existing), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	entity := toRiskAlertEntity(alert)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, false, err
	}
	return toRiskAlertModel(entity), true, nil
}

func (r *RiskAlertRepository) GetByID(ctx context.Context, id int64) (*model.AccountRiskAlert, error) {
	var entity RiskAlertEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toRiskAlertModel(&entity), nil
}

func (r *RiskAlertRepository) ListOpen(ctx context.Context, accountID *int64) ([]*model.AccountRiskAlert, error) {
	q := r.Read(ctx).WithContext(ctx).Where("resolved_at IS NULL")
	if accountID != nil {
		q = q.Where("account_id = ?", *accountID)
	}
	var entities []*RiskAlertEntity
	if err := q.Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toRiskAlertModels(entities), nil
}

// Acknowledge stamps the alert as seen. Acknowledging does not resolve;
// the alert stays open until Resolve.
func (r *RiskAlertRepository) Acknowledge(ctx context.Context, id int64, at time.Time) (*model.AccountRiskAlert, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&RiskAlertEntity{}).
		Where("id = ? AND acknowledged_at IS NULL AND resolved_at IS NULL", id).
		Update("acknowledged_at", at)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		alert, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !alert.Open() {
			return alert, ErrInvalidTransition
		}
		// Already acknowledged; idempotent.
		return alert, nil
	}
	return r.GetByID(ctx, id)
}

func (r *RiskAlertRepository) Resolve(ctx context.Context, id int64, at time.Time) (*model.AccountRiskAlert, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&RiskAlertEntity{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		alert, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		// Already resolved; idempotent.
		return alert, nil
	}
	return r.GetByID(ctx, id)
}
