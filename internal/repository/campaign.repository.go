package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{db}
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity := toCampaignEntity(c)
	if entity.Status == "" {
		entity.Status = string(model.CampaignDraft)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toCampaignModel(&entity), nil
}

func (r *CampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CampaignEntity{})

	if f.WorkspaceID != nil {
		q = q.Where("workspace_id = ?", *f.WorkspaceID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*CampaignEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toCampaignModels(entities), total, nil
}

// FindDue returns scheduled campaigns whose scheduled_at has passed, the
// dispatcher's poll query. Explicit repository method instead of a query
// scope so the dispatch logic stays independent of the storage layer.
func (r *CampaignRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", string(model.CampaignScheduled), now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toCampaignModels(entities), nil
}

// FindSending returns campaigns currently mid-dispatch; used by the
// completion sweep and by the retry pass for quota-deferred recipients.
func (r *CampaignRepository) FindSending(ctx context.Context) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ?", string(model.CampaignSending)).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toCampaignModels(entities), nil
}

// Schedule sets or moves the send time. Allowed while the campaign is still
// editable; rescheduling an already scheduled campaign is fine.
func (r *CampaignRepository) Schedule(ctx context.Context, id int64, at time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND status IN ?", id, []string{
			string(model.CampaignDraft),
			string(model.CampaignScheduled),
		}).
		Updates(map[string]interface{}{
			"status":       string(model.CampaignScheduled),
			"scheduled_at": at.UTC(),
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

// UpdateStatus moves the campaign along its state machine. The legal source
// states live in the WHERE clause so concurrent transitions (dispatcher vs.
// cancel endpoint) resolve to exactly one winner.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, to model.CampaignStatus) error {
	all := []model.CampaignStatus{
		model.CampaignDraft,
		model.CampaignScheduled,
		model.CampaignSending,
		model.CampaignCompleted,
		model.CampaignCancelled,
		model.CampaignFailed,
	}
	var froms []string
	for _, from := range all {
		if from.CanTransition(to) {
			froms = append(froms, string(from))
		}
	}
	if len(froms) == 0 {
		return ErrInvalidTransition
	}

	updates := map[string]interface{}{"status": string(to)}
	now := time.Now().UTC()
	switch to {
	case model.CampaignSending:
		updates["started_at"] = now
	case model.CampaignCompleted, model.CampaignCancelled, model.CampaignFailed:
		updates["completed_at"] = now
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND status IN ?", id, froms).
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

// campaign counter columns that may be incremented atomically
var campaignCounters = map[string]bool{
	"sent_count":      true,
	"delivered_count": true,
	"read_count":      true,
	"failed_count":    true,
	"skipped_count":   true,
}

// IncrementCounter is the single atomic counter primitive for campaign
// rollups. Concurrent webhook delivery is exactly the scenario where naive
// read-modify-write counters race, so the increment happens in SQL.
func (r *CampaignRepository) IncrementCounter(ctx context.Context, id int64, column string) error {
	if !campaignCounters[column] {
		return fmt.Errorf("unknown campaign counter %q", column)
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CampaignRepository) SetTotalRecipients(ctx context.Context, id int64, total int) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Update("total_recipients", total)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
