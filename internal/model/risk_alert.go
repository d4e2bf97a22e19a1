package model

import "time"

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type AlertType string

const (
	AlertQualityDowngrade AlertType = "quality_downgrade"
	AlertHighFailureRate  AlertType = "high_failure_rate"
	AlertSuspensionRisk   AlertType = "suspension_risk"
)

// AccountRiskAlert is produced by the compliance monitor, never by user
// input. Acknowledge and resolve are independent timestamps; acknowledging
// does not resolve.
type AccountRiskAlert struct {
	ID             int64         `json:"id"`
	AccountID      int64         `json:"account_id"`
	PhoneNumberID  *int64        `json:"phone_number_id,omitempty"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Detail         string        `json:"detail"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (a *AccountRiskAlert) Open() bool {
	return a.ResolvedAt == nil
}
