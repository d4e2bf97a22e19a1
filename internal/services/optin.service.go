package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
)

var (
	ErrInvalidPhone = errors.New("phone number must be in E.164 format")

	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

type OptInRepository interface {
	GetByPhone(ctx context.Context, workspaceID int64, phone string) (*model.OptIn, error)
	IsActive(ctx context.Context, workspaceID int64, phone string) (bool, error)
	RecordConsent(ctx context.Context, o *model.OptIn) (*model.OptIn, error)
	Import(ctx context.Context, workspaceID int64, optIns []*model.OptIn) (int64, error)
	OptOut(ctx context.Context, workspaceID int64, phone string) error
	List(ctx context.Context, f model.OptInFilter) ([]*model.OptIn, int64, error)
}

// OptInService owns the consent registry. Campaign code only ever reads it;
// the active flag changes exclusively through the consent events here.
type OptInService struct {
	optIns OptInRepository
}

func NewOptInService(optIns OptInRepository) *OptInService {
	return &OptInService{optIns: optIns}
}

func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

func (s *OptInService) RecordConsent(ctx context.Context, workspaceID int64, phone, name string, source model.OptInSource) (*model.OptIn, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	return s.optIns.RecordConsent(ctx, &model.OptIn{
		WorkspaceID: workspaceID,
		PhoneNumber: phone,
		Name:        name,
		Source:      source,
	})
}

func (s *OptInService) OptOut(ctx context.Context, workspaceID int64, phone string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	err = s.optIns.OptOut(ctx, workspaceID, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Import bulk-loads consent records, skipping malformed numbers rather than
// failing the batch. Returns the number inserted and the rejected inputs.
func (s *OptInService) Import(ctx context.Context, workspaceID int64, optIns []*model.OptIn) (int64, []string, error) {
	valid := make([]*model.OptIn, 0, len(optIns))
	var rejected []string
	for _, o := range optIns {
		phone, err := normalizePhone(o.PhoneNumber)
		if err != nil {
			rejected = append(rejected, o.PhoneNumber)
			continue
		}
		o.PhoneNumber = phone
		valid = append(valid, o)
	}
	inserted, err := s.optIns.Import(ctx, workspaceID, valid)
	return inserted, rejected, err
}

func (s *OptInService) Get(ctx context.Context, workspaceID int64, phone string) (*model.OptIn, error) {
	o, err := s.optIns.GetByPhone(ctx, workspaceID, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *OptInService) List(ctx context.Context, f model.OptInFilter) ([]*model.OptIn, int64, error) {
	return s.optIns.List(ctx, f)
}
