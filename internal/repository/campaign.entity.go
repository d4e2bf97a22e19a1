package repository

import (
	"encoding/json"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type CampaignEntity struct {
	ID              int64           `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	WorkspaceID     int64           `db:"workspace_id"     gorm:"column:workspace_id;not null;index"`
	PhoneNumberID   int64           `db:"phone_number_id"  gorm:"column:phone_number_id;not null;index"`
	TemplateID      int64           `db:"template_id"      gorm:"column:template_id;not null;index"`
	Template        *TemplateEntity `gorm:"foreignKey:TemplateID;references:ID"`
	Name            string          `db:"name"             gorm:"column:name;not null"`
	Status          string          `db:"status"           gorm:"column:status;not null;default:draft;index"`
	AudienceFilter  string          `db:"audience_filter"  gorm:"column:audience_filter"` // JSON
	ScheduledAt     *time.Time      `db:"scheduled_at"     gorm:"column:scheduled_at;index"`
	StartedAt       *time.Time      `db:"started_at"       gorm:"column:started_at"`
	CompletedAt     *time.Time      `db:"completed_at"     gorm:"column:completed_at"`
	TotalRecipients int             `db:"total_recipients" gorm:"column:total_recipients;not null;default:0"`
	SentCount       int             `db:"sent_count"       gorm:"column:sent_count;not null;default:0"`
	DeliveredCount  int             `db:"delivered_count"  gorm:"column:delivered_count;not null;default:0"`
	ReadCount       int             `db:"read_count"       gorm:"column:read_count;not null;default:0"`
	FailedCount     int             `db:"failed_count"     gorm:"column:failed_count;not null;default:0"`
	SkippedCount    int             `db:"skipped_count"    gorm:"column:skipped_count;not null;default:0"`
	CreatedAt       time.Time       `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignEntity) TableName() string { return "campaigns" }

func toCampaignEntity(m *model.Campaign) *CampaignEntity {
	if m == nil {
		return nil
	}
	filter, _ := json.Marshal(m.AudienceFilter)
	return &CampaignEntity{
		ID:              m.ID,
		WorkspaceID:     m.WorkspaceID,
		PhoneNumberID:   m.PhoneNumberID,
		TemplateID:      m.TemplateID,
		Name:            m.Name,
		Status:          string(m.Status),
		AudienceFilter:  string(filter),
		ScheduledAt:     m.ScheduledAt,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		TotalRecipients: m.TotalRecipients,
		SentCount:       m.SentCount,
		DeliveredCount:  m.DeliveredCount,
		ReadCount:       m.ReadCount,
		FailedCount:     m.FailedCount,
		SkippedCount:    m.SkippedCount,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	var filter model.AudienceFilter
	if e.AudienceFilter != "" {
		_ = json.Unmarshal([]byte(e.AudienceFilter), &filter)
	}
	return &model.Campaign{
		ID:              e.ID,
		WorkspaceID:     e.WorkspaceID,
		PhoneNumberID:   e.PhoneNumberID,
		TemplateID:      e.TemplateID,
		Name:            e.Name,
		Status:          model.CampaignStatus(e.Status),
		AudienceFilter:  filter,
		ScheduledAt:     e.ScheduledAt,
		StartedAt:       e.StartedAt,
		CompletedAt:     e.CompletedAt,
		TotalRecipients: e.TotalRecipients,
		SentCount:       e.SentCount,
		DeliveredCount:  e.DeliveredCount,
		ReadCount:       e.ReadCount,
		FailedCount:     e.FailedCount,
		SkippedCount:    e.SkippedCount,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	if entities == nil {
		return nil
	}
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}
