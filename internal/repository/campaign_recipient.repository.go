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

type CampaignRecipientRepository struct {
	*pg.DB
}

func NewCampaignRecipientRepository(db *pg.DB) *CampaignRecipientRepository {
	return &CampaignRecipientRepository{db}
}

// BulkInsert adds audience rows, silently skipping (campaign_id, opt_in_id)
// pairs that already exist. Re-running an audience build is therefore
// idempotent: the unique index turns duplicates into no-ops rather than
// duplicate sends. Returns the number of rows actually inserted.
func (r *CampaignRecipientRepository) BulkInsert(ctx context.Context, recipients []*model.CampaignRecipient) (int64, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	entities := make([]*CampaignRecipientEntity, len(recipients))
	for i, m := range recipients {
		e := toRecipientEntity(m)
		if e.Status == "" {
			e.Status = string(model.RecipientPending)
		}
		entities[i] = e
	}

	result := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "opt_in_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&entities, 500)
	return result.RowsAffected, result.Error
}

func (r *CampaignRecipientRepository) GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error) {
	var entity CampaignRecipientEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toRecipientModel(&entity), nil
}

func (r *CampaignRecipientRepository) GetByWamid(ctx context.Context, wamid string) (*model.CampaignRecipient, error) {
	var entity CampaignRecipientEntity
	err := r.Read(ctx).WithContext(ctx).Where("wamid = ?", wamid).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toRecipientModel(&entity), nil
}

// ListPending pages through recipients still awaiting a send attempt.
func (r *CampaignRecipientRepository) ListPending(ctx context.Context, campaignID int64, limit int) ([]*model.CampaignRecipient, error) {
	if limit <= 0 {
		limit = 500
	}
	var entities []*CampaignRecipientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, string(model.RecipientPending)).
		Order("id ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toRecipientModels(entities), nil
}

func (r *CampaignRecipientRepository) CountByCampaign(ctx context.Context, campaignID int64) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("campaign_id = ?", campaignID).
		Count(&total).Error
	return total, err
}

// CountByStatus returns per-status totals for the stats endpoint and the
// completion sweep.
func (r *CampaignRecipientRepository) CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.Read(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Select("status, COUNT(*) AS n").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.RecipientStatus]int64, len(rows))
	for _, r := range rows {
		counts[model.RecipientStatus(r.Status)] = r.N
	}
	return counts, nil
}

// OpenCount counts recipients that still hold the campaign open (pending or
// sent-awaiting-delivery).
func (r *CampaignRecipientRepository) OpenCount(ctx context.Context, campaignID int64) (int64, error) {
	var n int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("campaign_id = ? AND status IN ?", campaignID, []string{
			string(model.RecipientPending),
			string(model.RecipientSent),
		}).
		Count(&n).Error
	return n, err
}

// MarkSent records a successful platform send. Only a pending recipient can
// move to sent, which makes the send path idempotent: a second worker
// processing the same recipient finds zero rows and backs off.
func (r *CampaignRecipientRepository) MarkSent(ctx context.Context, id int64, wamid string) error {
	now := time.Now().UTC()
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("id = ? AND status = ?", id, string(model.RecipientPending)).
		Updates(map[string]interface{}{
			"status":  string(model.RecipientSent),
			"wamid":   wamid,
			"sent_at": now,
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

// MarkFailed records a platform send failure with the provider error.
func (r *CampaignRecipientRepository) MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("id = ? AND status IN ?", id, []string{
			string(model.RecipientPending),
			string(model.RecipientSent),
		}).
		Updates(map[string]interface{}{
			"status":        string(model.RecipientFailed),
			"error_code":    errCode,
			"error_message": errMsg,
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

// MarkSkipped records an opt-out discovered at send time. Hard skip, never
// retried.
func (r *CampaignRecipientRepository) MarkSkipped(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("id = ? AND status = ?", id, string(model.RecipientPending)).
		Update("status", string(model.RecipientSkipped))
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

// ApplyStatus advances the recipient matching the wamid under the monotonic
// rule, mirroring MessageRepository.ApplyStatus. Returns the recipient after
// the update together with ErrStaleStatus when the reported status is not
// forward progress.
func (r *CampaignRecipientRepository) ApplyStatus(ctx context.Context, wamid string, to model.RecipientStatus, errCode, errMsg string) (*model.CampaignRecipient, error) {
	all := []model.RecipientStatus{
		model.RecipientPending,
		model.RecipientSent,
		model.RecipientDelivered,
		model.RecipientRead,
		model.RecipientFailed,
		model.RecipientSkipped,
	}
	var froms []string
	for _, from := range all {
		if from.CanTransition(to) {
			froms = append(froms, string(from))
		}
	}
	if len(froms) == 0 {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{"status": string(to)}
	if to == model.RecipientFailed {
		updates["error_code"] = errCode
		updates["error_message"] = errMsg
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("wamid = ? AND status IN ?", wamid, froms).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		rec, err := r.GetByWamid(ctx, wamid)
		if err != nil {
			return nil, err
		}
		return rec, ErrStaleStatus
	}
	return r.GetByWamid(ctx, wamid)
}
