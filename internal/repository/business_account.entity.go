package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type BusinessAccountEntity struct {
	ID               int64  `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	WorkspaceID      int64  `db:"workspace_id"      gorm:"column:workspace_id;not null;index"`
	PlatformID       string `db:"platform_id"       gorm:"column:platform_id;not null;uniqueIndex"`
	Name             string `db:"name"              gorm:"column:name;not null"`
	Status           string `db:"status"            gorm:"column:status;not null;default:pending"`
	Quality          string `db:"quality_rating"    gorm:"column:quality_rating;not null;default:unknown"`
	Tier             string `db:"messaging_tier"    gorm:"column:messaging_tier;not null;default:tier_unverified"`
	MarketingEnabled bool   `db:"marketing_enabled" gorm:"column:marketing_enabled;not null;default:false"`
	// Credential holds the AEAD-sealed access token. Only the secrets store
	// reads or writes it; it never leaves this package as plaintext.
	Credential []byte     `db:"credential" gorm:"column:credential"`
	CreatedAt  time.Time  `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  *time.Time `db:"deleted_at" gorm:"column:deleted_at;index"`
}

func (BusinessAccountEntity) TableName() string { return "business_accounts" }

func toAccountEntity(m *model.BusinessAccount) *BusinessAccountEntity {
	if m == nil {
		return nil
	}
	return &BusinessAccountEntity{
		ID:               m.ID,
		WorkspaceID:      m.WorkspaceID,
		PlatformID:       m.PlatformID,
		Name:             m.Name,
		Status:           string(m.Status),
		Quality:          string(m.Quality),
		Tier:             string(m.Tier),
		MarketingEnabled: m.MarketingEnabled,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		DeletedAt:        m.DeletedAt,
	}
}

func toAccountModel(e *BusinessAccountEntity) *model.BusinessAccount {
	if e == nil {
		return nil
	}
	return &model.BusinessAccount{
		ID:               e.ID,
		WorkspaceID:      e.WorkspaceID,
		PlatformID:       e.PlatformID,
		Name:             e.Name,
		Status:           model.AccountStatus(e.Status),
		Quality:          model.QualityRating(e.Quality),
		Tier:             model.MessagingTier(e.Tier),
		MarketingEnabled: e.MarketingEnabled,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		DeletedAt:        e.DeletedAt,
	}
}
