package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type PhoneNumberEntity struct {
	ID             int64                  `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	AccountID      int64                  `db:"account_id"       gorm:"column:account_id;not null;index"`
	Account        *BusinessAccountEntity `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
	PlatformID     string                 `db:"platform_id"      gorm:"column:platform_id;not null;uniqueIndex"`
	DisplayNumber  string                 `db:"display_number"   gorm:"column:display_number;not null"`
	Quality        string                 `db:"quality_rating"   gorm:"column:quality_rating;not null;default:unknown"`
	DailySendCount int                    `db:"daily_send_count" gorm:"column:daily_send_count;not null;default:0"`
	// No gorm default tags on limit and active: gorm drops zero-valued fields
	// from the INSERT when a default is declared, which would turn an explicit
	// limit of 0 or an inactive number into the default on create.
	DailySendLimit int       `db:"daily_send_limit" gorm:"column:daily_send_limit;not null"`
	IsActive       bool      `db:"is_active"        gorm:"column:is_active;not null"`
	IsPrimary      bool      `db:"is_primary"       gorm:"column:is_primary;not null;default:false"`
	CreatedAt      time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (PhoneNumberEntity) TableName() string { return "phone_numbers" }

func toPhoneNumberEntity(m *model.PhoneNumber) *PhoneNumberEntity {
	if m == nil {
		return nil
	}
	return &PhoneNumberEntity{
		ID:             m.ID,
		AccountID:      m.AccountID,
		PlatformID:     m.PlatformID,
		DisplayNumber:  m.DisplayNumber,
		Quality:        string(m.Quality),
		DailySendCount: m.DailySendCount,
		DailySendLimit: m.DailySendLimit,
		IsActive:       m.IsActive,
		IsPrimary:      m.IsPrimary,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toPhoneNumberModel(e *PhoneNumberEntity) *model.PhoneNumber {
	if e == nil {
		return nil
	}
	return &model.PhoneNumber{
		ID:             e.ID,
		AccountID:      e.AccountID,
		PlatformID:     e.PlatformID,
		DisplayNumber:  e.DisplayNumber,
		Quality:        model.QualityRating(e.Quality),
		DailySendCount: e.DailySendCount,
		DailySendLimit: e.DailySendLimit,
		IsActive:       e.IsActive,
		IsPrimary:      e.IsPrimary,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
