package model

import "time"

type AccountStatus string

const (
	AccountStatusPending    AccountStatus = "pending"
	AccountStatusVerified   AccountStatus = "verified"
	AccountStatusSuspended  AccountStatus = "suspended"
	AccountStatusRestricted AccountStatus = "restricted"
)

type QualityRating string

const (
	QualityGreen   QualityRating = "green"
	QualityYellow  QualityRating = "yellow"
	QualityRed     QualityRating = "red"
	QualityUnknown QualityRating = "unknown"
)

// WorseThan reports whether a is a lower rating than b. Unknown ranks
// below red.
func (a QualityRating) WorseThan(b QualityRating) bool {
	return a.qualityRank() < b.qualityRank()
}

func (q QualityRating) qualityRank() int {
	switch q {
	case QualityGreen:
		return 3
	case QualityYellow:
		return 2
	case QualityRed:
		return 1
	}
	return 0
}

type MessagingTier string

const (
	TierUnverified MessagingTier = "tier_unverified" // 250/day
	Tier1K         MessagingTier = "tier_1k"
	Tier10K        MessagingTier = "tier_10k"
	Tier100K       MessagingTier = "tier_100k"
	TierUnlimited  MessagingTier = "tier_unlimited"
)

// DailyLimit is the platform send ceiling for the tier.
func (t MessagingTier) DailyLimit() int {
	switch t {
	case Tier1K:
		return 1_000
	case Tier10K:
		return 10_000
	case Tier100K:
		return 100_000
	case TierUnlimited:
		return 1_000_000
	}
	return 250
}

// BusinessAccount is one tenant-owned WhatsApp identity. The access
// credential is deliberately absent from the model; it lives only in the
// secret store, encrypted at rest.
type BusinessAccount struct {
	ID               int64         `json:"id"`
	WorkspaceID      int64         `json:"workspace_id"`
	PlatformID       string        `json:"platform_id"` // WABA id on the platform side
	Name             string        `json:"name"`
	Status           AccountStatus `json:"status"`
	Quality          QualityRating `json:"quality_rating"`
	Tier             MessagingTier `json:"messaging_tier"`
	MarketingEnabled bool          `json:"marketing_enabled"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	DeletedAt        *time.Time    `json:"-"`
}

func (a AccountStatus) CanTransition(to AccountStatus) bool {
	switch a {
	case AccountStatusPending:
		return to == AccountStatusVerified
	case AccountStatusVerified:
		return to == AccountStatusSuspended || to == AccountStatusRestricted
	case AccountStatusRestricted:
		return to == AccountStatusVerified || to == AccountStatusSuspended
	case AccountStatusSuspended:
		return to == AccountStatusVerified
	}
	return false
}
