package model

import "time"

// PhoneNumber is a registered sender number owned by a BusinessAccount.
// DailySendCount never exceeds DailySendLimit; the registry enforces that
// atomically under concurrent reservations.
type PhoneNumber struct {
	ID             int64         `json:"id"`
	AccountID      int64         `json:"account_id"`
	PlatformID     string        `json:"platform_id"` // phone_number_id on the platform side
	DisplayNumber  string        `json:"display_number"`
	Quality        QualityRating `json:"quality_rating"`
	DailySendCount int           `json:"daily_send_count"`
	DailySendLimit int           `json:"daily_send_limit"`
	IsActive       bool          `json:"is_active"`
	IsPrimary      bool          `json:"is_primary"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// RemainingQuota is a point-in-time read; use the registry's ReserveSend for
// anything that gates an actual send.
func (p *PhoneNumber) RemainingQuota() int {
	r := p.DailySendLimit - p.DailySendCount
	if r < 0 {
		return 0
	}
	return r
}

func (p *PhoneNumber) CanSend() bool {
	return p.IsActive && p.DailySendCount < p.DailySendLimit
}
