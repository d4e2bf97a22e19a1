package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
)

var (
	ErrTemplateExists   = errors.New("template with this name and language already exists")
	ErrTemplateNotDraft = errors.New("template cannot be edited in its current status")
	ErrAlreadySubmitted = errors.New("template was already submitted")
	ErrAlreadyDecided   = errors.New("template review was already decided")
)

type TemplateRepository interface {
	Create(ctx context.Context, t *model.Template) (*model.Template, error)
	GetByID(ctx context.Context, id int64) (*model.Template, error)
	FindByNaturalKey(ctx context.Context, workspaceID int64, name, language string) (*model.Template, error)
	List(ctx context.Context, workspaceID int64, statuses []model.TemplateStatus) ([]*model.Template, error)
	UpdateBody(ctx context.Context, id int64, body string, category model.TemplateCategory) error
	MarkSubmitted(ctx context.Context, id int64) error
	ApplyDecision(ctx context.Context, id int64, approved bool, rejectionReason string) error
}

type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*model.BusinessAccount, error)
}

type PhoneNumberLookup interface {
	GetByID(ctx context.Context, id int64) (*model.PhoneNumber, error)
}

type TemplateSubmitter interface {
	SubmitTemplate(ctx context.Context, token, platformAccountID, name, language, category, body string) (string, error)
}

// TemplateService manages the template review lifecycle. The platform owns
// the approve/reject verdict; this service only submits and records it.
type TemplateService struct {
	templates    TemplateRepository
	phoneNumbers PhoneNumberLookup
	accounts     AccountLookup
	tokens       TokenSource
	platform     TemplateSubmitter
}

func NewTemplateService(
	templates TemplateRepository,
	phoneNumbers PhoneNumberLookup,
	accounts AccountLookup,
	tokens TokenSource,
	platform TemplateSubmitter,
) *TemplateService {
	return &TemplateService{
		templates:    templates,
		phoneNumbers: phoneNumbers,
		accounts:     accounts,
		tokens:       tokens,
		platform:     platform,
	}
}

func (s *TemplateService) Create(ctx context.Context, p model.TemplateCreateRequest) (*model.Template, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.templates.FindByNaturalKey(ctx, p.WorkspaceID, p.Name, p.Language)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check natural key: %w", err)
	}
	if existing != nil {
		return nil, ErrTemplateExists
	}

	return s.templates.Create(ctx, &model.Template{
		WorkspaceID:   p.WorkspaceID,
		PhoneNumberID: p.PhoneNumberID,
		Name:          p.Name,
		Language:      p.Language,
		Category:      p.Category,
		Body:          p.Body,
	})
}

// UpdateBody edits a draft or rejected template in place. An edit after
// rejection keeps the row and its submission history.
func (s *TemplateService) UpdateBody(ctx context.Context, id int64, body string, category model.TemplateCategory) (*model.Template, error) {
	err := s.templates.UpdateBody(ctx, id, body, category)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrTemplateNotDraft
	case err != nil:
		return nil, err
	}
	return s.templates.GetByID(ctx, id)
}

// Submit sends the template to the platform for review. The local row moves
// to submitted first; if the platform call fails, the row is flipped back by
// recording a rejection with the transport error so the author can retry.
func (s *TemplateService) Submit(ctx context.Context, id int64) (*model.Template, error) {
	tmpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !tmpl.Status.CanSubmit() {
		return nil, ErrAlreadySubmitted
	}

	number, err := s.phoneNumbers.GetByID(ctx, tmpl.PhoneNumberID)
	if err != nil {
		return nil, fmt.Errorf("load phone number: %w", err)
	}
	account, err := s.accounts.GetByID(ctx, number.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	token, err := s.tokens.Open(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("open credential: %w", err)
	}

	if err := s.templates.MarkSubmitted(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}

	if _, err := s.platform.SubmitTemplate(ctx, token, account.PlatformID, tmpl.Name, tmpl.Language, string(tmpl.Category), tmpl.Body); err != nil {
		logger.Error("Template submission failed", "template_id", id, "error", err)
		if decErr := s.templates.ApplyDecision(ctx, id, false, "submission failed: "+err.Error()); decErr != nil {
			logger.Error("Failed to roll back template submission", "template_id", id, "error", decErr)
		}
		return nil, fmt.Errorf("submit template: %w", err)
	}

	return s.templates.GetByID(ctx, id)
}

// ApplyDecision records the platform verdict, normally delivered through the
// template status webhook.
func (s *TemplateService) ApplyDecision(ctx context.Context, id int64, approved bool, rejectionReason string) (*model.Template, error) {
	err := s.templates.ApplyDecision(ctx, id, approved, rejectionReason)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrAlreadyDecided
	case err != nil:
		return nil, err
	}
	return s.templates.GetByID(ctx, id)
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*model.Template, error) {
	tmpl, err := s.templates.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return tmpl, err
}

func (s *TemplateService) List(ctx context.Context, workspaceID int64, statuses []model.TemplateStatus) ([]*model.Template, error) {
	return s.templates.List(ctx, workspaceID, statuses)
}
