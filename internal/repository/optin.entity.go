package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type OptInEntity struct {
	ID          int64  `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	WorkspaceID int64  `db:"workspace_id" gorm:"column:workspace_id;not null;uniqueIndex:idx_opt_ins_phone"`
	PhoneNumber string `db:"phone_number" gorm:"column:phone_number;not null;uniqueIndex:idx_opt_ins_phone"`
	Name        string `db:"name"         gorm:"column:name"`
	Source      string `db:"source"       gorm:"column:source;not null;default:import"`
	// No default tag: gorm would omit IsActive=false from the INSERT and the
	// row would be created active.
	IsActive   bool       `db:"is_active"    gorm:"column:is_active;not null;index"`
	OptedInAt  time.Time  `db:"opted_in_at"  gorm:"column:opted_in_at"`
	OptedOutAt *time.Time `db:"opted_out_at" gorm:"column:opted_out_at"`
	CreatedAt  time.Time  `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `db:"updated_at"   gorm:"column:updated_at;autoUpdateTime"`
}

func (OptInEntity) TableName() string { return "opt_ins" }

func toOptInEntity(m *model.OptIn) *OptInEntity {
	if m == nil {
		return nil
	}
	return &OptInEntity{
		ID:          m.ID,
		WorkspaceID: m.WorkspaceID,
		PhoneNumber: m.PhoneNumber,
		Name:        m.Name,
		Source:      string(m.Source),
		IsActive:    m.IsActive,
		OptedInAt:   m.OptedInAt,
		OptedOutAt:  m.OptedOutAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toOptInModel(e *OptInEntity) *model.OptIn {
	if e == nil {
		return nil
	}
	return &model.OptIn{
		ID:          e.ID,
		WorkspaceID: e.WorkspaceID,
		PhoneNumber: e.PhoneNumber,
		Name:        e.Name,
		Source:      model.OptInSource(e.Source),
		IsActive:    e.IsActive,
		OptedInAt:   e.OptedInAt,
		OptedOutAt:  e.OptedOutAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toOptInModels(entities []*OptInEntity) []*model.OptIn {
	if entities == nil {
		return nil
	}
	models := make([]*model.OptIn, len(entities))
	for i, e := range entities {
		models[i] = toOptInModel(e)
	}
	return models
}
