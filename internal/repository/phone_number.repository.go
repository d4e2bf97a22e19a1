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

// PhoneNumberRepository is the sending-capacity registry. ReserveSend is the
// single contended write in the system: campaign workers call it
// concurrently for the same number, so the increment is a conditional UPDATE
// that can never push daily_send_count past daily_send_limit.
type PhoneNumberRepository struct {
	*pg.DB
}

func NewPhoneNumberRepository(db *pg.DB) *PhoneNumberRepository {
	return &PhoneNumberRepository{db}
}

func (r *PhoneNumberRepository) Create(ctx context.Context, p *model.PhoneNumber) (*model.PhoneNumber, error) {
	entity := toPhoneNumberEntity(p)
	if entity.Quality == "" {
		entity.Quality = string(model.QualityUnknown)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPhoneNumberModel(entity), nil
}

func (r *PhoneNumberRepository) GetByID(ctx context.Context, id int64) (*model.PhoneNumber, error) {
	var entity PhoneNumberEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPhoneNumberModel(&entity), nil
}

func (r *PhoneNumberRepository) GetByPlatformID(ctx context.Context, platformID string) (*model.PhoneNumber, error) {
	var entity PhoneNumberEntity
	err := r.Read(ctx).WithContext(ctx).Where("platform_id = ?", platformID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPhoneNumberModel(&entity), nil
}

func (r *PhoneNumberRepository) GetByDisplayNumber(ctx context.Context, display string) (*model.PhoneNumber, error) {
	var entity PhoneNumberEntity
	err := r.Read(ctx).WithContext(ctx).Where("display_number = ?", display).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPhoneNumberModel(&entity), nil
}

func (r *PhoneNumberRepository) ListByAccount(ctx context.Context, accountID int64) ([]*model.PhoneNumber, error) {
	var entities []*PhoneNumberEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("is_primary DESC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	models := make([]*model.PhoneNumber, len(entities))
	for i, e := range entities {
		models[i] = toPhoneNumberModel(e)
	}
	return models, nil
}

// CanSend is an advisory read. The authoritative gate is ReserveSend.
func (r *PhoneNumberRepository) CanSend(ctx context.Context, id int64) (bool, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return p.CanSend(), nil
}

// ReserveSend atomically consumes one unit of daily quota with bounded retry
// on transient conflicts. The WHERE clause carries the invariant: the count
// is only incremented while strictly under the limit, so concurrent callers
// race on the database row, not on a read-modify-write in Go.
//
// ErrQuotaExceeded and ErrPhoneNumberInactive are permanent for the day and
// must be treated by callers as "skip / retry after reset", never as a fatal
// dispatch error.
func (r *PhoneNumberRepository) ReserveSend(ctx context.Context, id int64) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.reserveSendAttempt(ctx, id)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrNotFound) ||
			errors.Is(err, ErrQuotaExceeded) ||
			errors.Is(err, ErrPhoneNumberInactive) {
			return err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: reserve send failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *PhoneNumberRepository) reserveSendAttempt(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PhoneNumberEntity{}).
		Where("id = ? AND is_active = ? AND daily_send_count < daily_send_limit", id, true).
		Update("daily_send_count", gorm.Expr("daily_send_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return r.reserveFailureReason(ctx, id)
}

// reserveFailureReason classifies a zero-row update: missing row, inactive
// number, or exhausted quota.
func (r *PhoneNumberRepository) reserveFailureReason(ctx context.Context, id int64) error {
	var entity PhoneNumberEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !entity.IsActive {
		return ErrPhoneNumberInactive
	}
	if entity.DailySendCount >= entity.DailySendLimit {
		return ErrQuotaExceeded
	}
	// the conditional update matched nothing but the row now qualifies:
	// another writer changed it between the two statements
	return ErrConcurrentUpdate
}

// ResetDaily zeroes the counter for one number. Called by the scheduler
// (cmd/cli reset-quotas) once per UTC day.
func (r *PhoneNumberRepository) ResetDaily(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PhoneNumberEntity{}).
		Where("id = ?", id).
		Update("daily_send_count", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetAllDaily zeroes every counter in one statement.
func (r *PhoneNumberRepository) ResetAllDaily(ctx context.Context) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PhoneNumberEntity{}).
		Where("daily_send_count > 0").
		Update("daily_send_count", 0)
	return result.RowsAffected, result.Error
}

func (r *PhoneNumberRepository) UpdateQuality(ctx context.Context, id int64, q model.QualityRating) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PhoneNumberEntity{}).
		Where("id = ?", id).
		Update("quality_rating", string(q))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDailyLimit applies a tier change reported by the platform.
func (r *PhoneNumberRepository) SetDailyLimit(ctx context.Context, id int64, limit int) error {
	if limit < 0 {
		return fmt.Errorf("daily limit must be non-negative")
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&PhoneNumberEntity{}).
		Where("id = ?", id).
		Update("daily_send_limit", limit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
