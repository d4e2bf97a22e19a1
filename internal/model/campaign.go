package model

import (
	"errors"
	"time"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
	CampaignFailed    CampaignStatus = "failed"
)

func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted || s == CampaignCancelled || s == CampaignFailed
}

func (s CampaignStatus) CanEdit() bool {
	return s == CampaignDraft || s == CampaignScheduled
}

func (s CampaignStatus) CanCancel() bool {
	return !s.Terminal()
}

func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	if to == CampaignCancelled {
		return s.CanCancel()
	}
	switch s {
	case CampaignDraft:
		return to == CampaignScheduled || to == CampaignSending
	case CampaignScheduled:
		return to == CampaignSending
	case CampaignSending:
		return to == CampaignCompleted || to == CampaignFailed
	}
	return false
}

// AudienceFilter narrows the active opt-ins included in a campaign audience.
type AudienceFilter struct {
	PhonePrefix  string     `json:"phone_prefix,omitempty"`
	OptedInAfter *time.Time `json:"opted_in_after,omitempty"`
}

// Campaign is a bulk templated send to opted-in recipients.
// Counter invariants, maintained by the dispatcher and webhook rollup:
// sent+failed+skipped+pending == total, delivered <= sent, read <= delivered.
type Campaign struct {
	ID              int64          `json:"id"`
	WorkspaceID     int64          `json:"workspace_id"`
	PhoneNumberID   int64          `json:"phone_number_id"`
	TemplateID      int64          `json:"template_id"`
	Name            string         `json:"name"`
	Status          CampaignStatus `json:"status"`
	AudienceFilter  AudienceFilter `json:"audience_filter"`
	ScheduledAt     *time.Time     `json:"scheduled_at,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	TotalRecipients int            `json:"total_recipients"`
	SentCount       int            `json:"sent_count"`
	DeliveredCount  int            `json:"delivered_count"`
	ReadCount       int            `json:"read_count"`
	FailedCount     int            `json:"failed_count"`
	SkippedCount    int            `json:"skipped_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type CampaignCreateRequest struct {
	WorkspaceID    int64
	PhoneNumberID  int64
	TemplateID     int64
	Name           string
	AudienceFilter AudienceFilter
	ScheduledAt    *time.Time
}

func (p CampaignCreateRequest) Validate() error {
	if p.WorkspaceID == 0 {
		return errors.New("workspace_id is required")
	}
	if p.PhoneNumberID == 0 {
		return errors.New("phone_number_id is required")
	}
	if p.TemplateID == 0 {
		return errors.New("template_id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// CampaignStats is the read-side rollup exposed by the stats endpoint.
type CampaignStats struct {
	CampaignID      int64          `json:"campaign_id"`
	Status          CampaignStatus `json:"status"`
	TotalRecipients int            `json:"total_recipients"`
	PendingCount    int            `json:"pending_count"`
	SentCount       int            `json:"sent_count"`
	DeliveredCount  int            `json:"delivered_count"`
	ReadCount       int            `json:"read_count"`
	FailedCount     int            `json:"failed_count"`
	SkippedCount    int            `json:"skipped_count"`
}

// CampaignFilter controls List queries.
type CampaignFilter struct {
	WorkspaceID *int64
	Statuses    []CampaignStatus
	Limit       int
	Offset      int
	Desc        bool
}
