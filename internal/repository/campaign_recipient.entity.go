package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type CampaignRecipientEntity struct {
	ID           int64           `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID   int64           `db:"campaign_id"   gorm:"column:campaign_id;not null;uniqueIndex:idx_campaign_recipients_once"`
	Campaign     *CampaignEntity `gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE"`
	OptInID      int64           `db:"opt_in_id"     gorm:"column:opt_in_id;not null;uniqueIndex:idx_campaign_recipients_once"`
	PhoneNumber  string          `db:"phone_number"  gorm:"column:phone_number;not null"`
	Status       string          `db:"status"        gorm:"column:status;not null;default:pending;index"`
	Wamid        string          `db:"wamid"         gorm:"column:wamid;index"`
	ErrorCode    string          `db:"error_code"    gorm:"column:error_code"`
	ErrorMessage string          `db:"error_message" gorm:"column:error_message"`
	SentAt       *time.Time      `db:"sent_at"       gorm:"column:sent_at"`
	CreatedAt    time.Time       `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignRecipientEntity) TableName() string { return "campaign_recipients" }

func toRecipientEntity(m *model.CampaignRecipient) *CampaignRecipientEntity {
	if m == nil {
		return nil
	}
	return &CampaignRecipientEntity{
		ID:           m.ID,
		CampaignID:   m.CampaignID,
		OptInID:      m.OptInID,
		PhoneNumber:  m.PhoneNumber,
		Status:       string(m.Status),
		Wamid:        m.Wamid,
		ErrorCode:    m.ErrorCode,
		ErrorMessage: m.ErrorMessage,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toRecipientModel(e *CampaignRecipientEntity) *model.CampaignRecipient {
	if e == nil {
		return nil
	}
	return &model.CampaignRecipient{
		ID:           e.ID,
		CampaignID:   e.CampaignID,
		OptInID:      e.OptInID,
		PhoneNumber:  e.PhoneNumber,
		Status:       model.RecipientStatus(e.Status),
		Wamid:        e.Wamid,
		ErrorCode:    e.ErrorCode,
		ErrorMessage: e.ErrorMessage,
		SentAt:       e.SentAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toRecipientModels(entities []*CampaignRecipientEntity) []*model.CampaignRecipient {
	if entities == nil {
		return nil
	}
	models := make([]*model.CampaignRecipient, len(entities))
	for i, e := range entities {
		models[i] = toRecipientModel(e)
	}
	return models
}
