package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type TemplateEntity struct {
	ID              int64      `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	WorkspaceID     int64      `db:"workspace_id"     gorm:"column:workspace_id;not null;uniqueIndex:idx_templates_natural_key"`
	PhoneNumberID   int64      `db:"phone_number_id"  gorm:"column:phone_number_id;not null;index"`
	Name            string     `db:"name"             gorm:"column:name;not null;uniqueIndex:idx_templates_natural_key"`
	Language        string     `db:"language"         gorm:"column:language;not null;uniqueIndex:idx_templates_natural_key"`
	Category        string     `db:"category"         gorm:"column:category;not null"`
	Body            string     `db:"body"             gorm:"column:body;not null"`
	Status          string     `db:"status"           gorm:"column:status;not null;default:draft;index"`
	RejectionReason string     `db:"rejection_reason" gorm:"column:rejection_reason"`
	SubmissionCount int        `db:"submission_count" gorm:"column:submission_count;not null;default:0"`
	SubmittedAt     *time.Time `db:"submitted_at"     gorm:"column:submitted_at"`
	DecidedAt       *time.Time `db:"decided_at"       gorm:"column:decided_at"`
	CreatedAt       time.Time  `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (TemplateEntity) TableName() string { return "templates" }

func toTemplateEntity(m *model.Template) *TemplateEntity {
	if m == nil {
		return nil
	}
	return &TemplateEntity{
		ID:              m.ID,
		WorkspaceID:     m.WorkspaceID,
		PhoneNumberID:   m.PhoneNumberID,
		Name:            m.Name,
		Language:        m.Language,
		Category:        string(m.Category),
		Body:            m.Body,
		Status:          string(m.Status),
		RejectionReason: m.RejectionReason,
		SubmissionCount: m.SubmissionCount,
		SubmittedAt:     m.SubmittedAt,
		DecidedAt:       m.DecidedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toTemplateModel(e *TemplateEntity) *model.Template {
	if e == nil {
		return nil
	}
	return &model.Template{
		ID:              e.ID,
		WorkspaceID:     e.WorkspaceID,
		PhoneNumberID:   e.PhoneNumberID,
		Name:            e.Name,
		Language:        e.Language,
		Category:        model.TemplateCategory(e.Category),
		Body:            e.Body,
		Status:          model.TemplateStatus(e.Status),
		RejectionReason: e.RejectionReason,
		SubmissionCount: e.SubmissionCount,
		SubmittedAt:     e.SubmittedAt,
		DecidedAt:       e.DecidedAt,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toTemplateModels(entities []*TemplateEntity) []*model.Template {
	if entities == nil {
		return nil
	}
	models := make([]*model.Template, len(entities))
	for i, e := range entities {
		models[i] = toTemplateModel(e)
	}
	return models
}
