package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/pkg/pg"
	"gorm.io/gorm"
)

type BusinessAccountRepository struct {
	*pg.DB
}

func NewBusinessAccountRepository(db *pg.DB) *BusinessAccountRepository {
	return &BusinessAccountRepository{db}
}

func (r *BusinessAccountRepository) Create(ctx context.Context, a *model.BusinessAccount) (*model.BusinessAccount, error) {
	entity := toAccountEntity(a)
	if entity.Status == "" {
		entity.Status = string(model.AccountStatusPending)
	}
	if entity.Quality == "" {
		entity.Quality = string(model.QualityUnknown)
	}
	if entity.Tier == "" {
		entity.Tier = string(model.TierUnverified)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toAccountModel(entity), nil
}

func (r *BusinessAccountRepository) GetByID(ctx context.Context, id int64) (*model.BusinessAccount, error) {
	var entity BusinessAccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *BusinessAccountRepository) GetByPlatformID(ctx context.Context, platformID string) (*model.BusinessAccount, error) {
	var entity BusinessAccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("platform_id = ? AND deleted_at IS NULL", platformID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *BusinessAccountRepository) ListActive(ctx context.Context) ([]*model.BusinessAccount, error) {
	var entities []*BusinessAccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("deleted_at IS NULL AND status IN ?", []string{
			string(model.AccountStatusVerified),
			string(model.AccountStatusRestricted),
		}).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	models := make([]*model.BusinessAccount, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models, nil
}

// UpdateStatus moves the account through its lifecycle. The transition is
// validated against the recorded state inside the update itself so a
// concurrent status change cannot slip an illegal edge through.
func (r *BusinessAccountRepository) UpdateStatus(ctx context.Context, id int64, to model.AccountStatus) error {
	froms := accountStatusesAllowing(to)
	if len(froms) == 0 {
		return ErrInvalidTransition
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&BusinessAccountEntity{}).
		Where("id = ? AND deleted_at IS NULL AND status IN ?", id, froms).
		Update("status", string(to))
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

func accountStatusesAllowing(to model.AccountStatus) []string {
	all := []model.AccountStatus{
		model.AccountStatusPending,
		model.AccountStatusVerified,
		model.AccountStatusSuspended,
		model.AccountStatusRestricted,
	}
	var froms []string
	for _, from := range all {
		if from.CanTransition(to) {
			froms = append(froms, string(from))
		}
	}
	return froms
}

func (r *BusinessAccountRepository) UpdateQuality(ctx context.Context, id int64, q model.QualityRating) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&BusinessAccountEntity{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("quality_rating", string(q))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks the account removed on tenant offboarding. Rows are kept
// for webhook correlation of already-sent messages.
func (r *BusinessAccountRepository) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result := r.Write(ctx).WithContext(ctx).
		Model(&BusinessAccountEntity{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCredential returns the sealed credential bytes for the secrets store.
// The ciphertext is opaque at this layer.
func (r *BusinessAccountRepository) GetCredential(ctx context.Context, id int64) ([]byte, error) {
	var entity BusinessAccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("credential").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entity.Credential, nil
}

func (r *BusinessAccountRepository) PutCredential(ctx context.Context, id int64, sealed []byte) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&BusinessAccountEntity{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("credential", sealed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
