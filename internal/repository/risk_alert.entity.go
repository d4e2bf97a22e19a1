package repository

import (
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

type RiskAlertEntity struct {
	ID             int64                  `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	AccountID      int64                  `db:"account_id"      gorm:"column:account_id;not null;index"`
	Account        *BusinessAccountEntity `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
	PhoneNumberID  *int64                 `db:"phone_number_id" gorm:"column:phone_number_id;index"`
	Type           string                 `db:"type"            gorm:"column:type;not null;index"`
	Severity       string                 `db:"severity"        gorm:"column:severity;not null"`
	Detail         string                 `db:"detail"          gorm:"column:detail"`
	AcknowledgedAt *time.Time             `db:"acknowledged_at" gorm:"column:acknowledged_at"`
	ResolvedAt     *time.Time             `db:"resolved_at"     gorm:"column:resolved_at;index"`
	CreatedAt      time.Time              `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (RiskAlertEntity) TableName() string { return "account_risk_alerts" }

func toRiskAlertEntity(m *model.AccountRiskAlert) *RiskAlertEntity {
	if m == nil {
		return nil
	}
	return &RiskAlertEntity{
		ID:             m.ID,
		AccountID:      m.AccountID,
		PhoneNumberID:  m.PhoneNumberID,
		Type:           string(m.Type),
		Severity:       string(m.Severity),
		Detail:         m.Detail,
		AcknowledgedAt: m.AcknowledgedAt,
		ResolvedAt:     m.ResolvedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func toRiskAlertModel(e *RiskAlertEntity) *model.AccountRiskAlert {
	if e == nil {
		return nil
	}
	return &model.AccountRiskAlert{
		ID:             e.ID,
		AccountID:      e.AccountID,
		PhoneNumberID:  e.PhoneNumberID,
		Type:           model.AlertType(e.Type),
		Severity:       model.AlertSeverity(e.Severity),
		Detail:         e.Detail,
		AcknowledgedAt: e.AcknowledgedAt,
		ResolvedAt:     e.ResolvedAt,
		CreatedAt:      e.CreatedAt,
	}
}

func toRiskAlertModels(entities []*RiskAlertEntity) []*model.AccountRiskAlert {
	if entities == nil {
		return nil
	}
	models := make([]*model.AccountRiskAlert, len(entities))
	for i, e := range entities {
		models[i] = toRiskAlertModel(e)
	}
	return models
}
