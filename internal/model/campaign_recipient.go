package model

import "time"

// RecipientStatus mirrors MessageStatus with two extra states: pending
// (not yet attempted, retryable) and skipped (opt-out discovered at send
// time, never retried).
type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientSent      RecipientStatus = "sent"
	RecipientDelivered RecipientStatus = "delivered"
	RecipientRead      RecipientStatus = "read"
	RecipientFailed    RecipientStatus = "failed"
	RecipientSkipped   RecipientStatus = "skipped"
)

// Terminal recipients no longer hold a campaign open. Sent is non-terminal:
// delivery tracking is still expected to move it forward.
func (s RecipientStatus) Terminal() bool {
	switch s {
	case RecipientDelivered, RecipientRead, RecipientFailed, RecipientSkipped:
		return true
	}
	return false
}

func (s RecipientStatus) Rank() int {
	switch s {
	case RecipientSent:
		return 1
	case RecipientDelivered:
		return 2
	case RecipientRead:
		return 3
	}
	return 0
}

// CanTransition applies the same monotonic rule as MessageStatus to
// webhook-driven updates joined by wamid. Terminal-for-completion is wider
// than frozen: a delivered recipient no longer holds the campaign open but
// still accepts a later read event.
func (s RecipientStatus) CanTransition(to RecipientStatus) bool {
	switch s {
	case RecipientRead, RecipientFailed, RecipientSkipped:
		return false
	}
	if to == RecipientFailed {
		return s == RecipientPending || s == RecipientSent
	}
	if to == RecipientSkipped {
		return s == RecipientPending
	}
	return to.Rank() > s.Rank()
}

// CampaignRecipient is one row per (campaign, opt_in); the uniqueness
// constraint is what makes audience builds idempotent.
type CampaignRecipient struct {
	ID           int64           `json:"id"`
	CampaignID   int64           `json:"campaign_id"`
	OptInID      int64           `json:"opt_in_id"`
	PhoneNumber  string          `json:"phone_number"`
	Status       RecipientStatus `json:"status"`
	Wamid        string          `json:"wamid,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CreatedAt    time.Time       `json:"created_at"`
}
