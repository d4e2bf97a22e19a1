package model

import (
	"errors"
	"time"
)

type TemplateStatus string

const (
	TemplateDraft     TemplateStatus = "draft"
	TemplateSubmitted TemplateStatus = "submitted"
	TemplateApproved  TemplateStatus = "approved"
	TemplateRejected  TemplateStatus = "rejected"
)

type TemplateCategory string

const (
	TemplateCategoryMarketing TemplateCategory = "marketing"
	TemplateCategoryUtility   TemplateCategory = "utility"
	TemplateCategoryAuth      TemplateCategory = "authentication"
)

// Template is a pre-approved message skeleton. Name+language is the natural
// key within a workspace; rejection and resubmission reuse the same row.
type Template struct {
	ID              int64            `json:"id"`
	WorkspaceID     int64            `json:"workspace_id"`
	PhoneNumberID   int64            `json:"phone_number_id"`
	Name            string           `json:"name"`
	Language        string           `json:"language"`
	Category        TemplateCategory `json:"category"`
	Body            string           `json:"body"`
	Status          TemplateStatus   `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	SubmissionCount int              `json:"submission_count"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CanSubmit allows first submission and resubmission after rejection.
func (s TemplateStatus) CanSubmit() bool {
	return s == TemplateDraft || s == TemplateRejected
}

// CanSend is true only for approved templates.
func (s TemplateStatus) CanSend() bool {
	return s == TemplateApproved
}

func (s TemplateStatus) CanEdit() bool {
	return s == TemplateDraft || s == TemplateRejected
}

type TemplateCreateRequest struct {
	WorkspaceID   int64
	PhoneNumberID int64
	Name          string
	Language      string
	Category      TemplateCategory
	Body          string
}

func (p TemplateCreateRequest) Validate() error {
	if p.WorkspaceID == 0 {
		return errors.New("workspace_id is required")
	}
	if p.PhoneNumberID == 0 {
		return errors.New("phone_number_id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Language == "" {
		return errors.New("language is required")
	}
	if p.Body == "" {
		return errors.New("body is required")
	}
	return nil
}
