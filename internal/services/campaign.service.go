package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
)

var (
	ErrCampaignNotEditable = errors.New("campaign can no longer be changed")
	ErrCampaignFinished    = errors.New("campaign already reached a terminal status")
	ErrEmptyAudience       = errors.New("audience filter matched no active opt-ins")
	ErrScheduleInPast      = errors.New("scheduled time is in the past")
)

// audienceBatchSize bounds memory during an audience build; large workspaces
// page through the opt-in registry.
const audienceBatchSize = 1000

type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error)
	Schedule(ctx context.Context, id int64, at time.Time) error
	UpdateStatus(ctx context.Context, id int64, to model.CampaignStatus) error
	SetTotalRecipients(ctx context.Context, id int64, total int) error
}

type RecipientRepository interface {
	BulkInsert(ctx context.Context, recipients []*model.CampaignRecipient) (int64, error)
	CountByCampaign(ctx context.Context, campaignID int64) (int64, error)
	CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int64, error)
}

type AudienceSource interface {
	List(ctx context.Context, f model.OptInFilter) ([]*model.OptIn, int64, error)
}

// CampaignService manages bulk sends up to the point the dispatcher takes
// over. Audience membership is frozen at build time; consent changes after
// the build are re-checked per recipient at send time, not here.
type CampaignService struct {
	campaigns  CampaignRepository
	recipients RecipientRepository
	optIns     AudienceSource
	templates  TemplateLookup
	now        func() time.Time
}

func NewCampaignService(
	campaigns CampaignRepository,
	recipients RecipientRepository,
	optIns AudienceSource,
	templates TemplateLookup,
) *CampaignService {
	return &CampaignService{
		campaigns:  campaigns,
		recipients: recipients,
		optIns:     optIns,
		templates:  templates,
		now:        time.Now,
	}
}

// Create registers a draft. The template must already be approved: a
// campaign is never allowed to race its template through review.
func (s *CampaignService) Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ScheduledAt != nil && p.ScheduledAt.Before(s.now()) {
		return nil, ErrScheduleInPast
	}

	tmpl, err := s.templates.GetByID(ctx, p.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tmpl.WorkspaceID != p.WorkspaceID {
		return nil, ErrWorkspaceMismatch
	}
	if !tmpl.Status.CanSend() {
		return nil, ErrTemplateNotApproved
	}

	status := model.CampaignDraft
	if p.ScheduledAt != nil {
		status = model.CampaignScheduled
	}
	return s.campaigns.Create(ctx, &model.Campaign{
		WorkspaceID:    p.WorkspaceID,
		PhoneNumberID:  p.PhoneNumberID,
		TemplateID:     p.TemplateID,
		Name:           p.Name,
		Status:         status,
		AudienceFilter: p.AudienceFilter,
		ScheduledAt:    p.ScheduledAt,
	})
}

// BuildAudience resolves the campaign filter against the active opt-ins and
// materializes recipient rows. Safe to call repeatedly: the unique
// (campaign_id, phone) constraint makes duplicate inserts no-ops, and
// consents recorded between calls are picked up.
func (s *CampaignService) BuildAudience(ctx context.Context, campaignID int64) (int, error) {
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if !c.Status.CanEdit() {
		return 0, ErrCampaignNotEditable
	}

	filter := model.OptInFilter{
		WorkspaceID: &c.WorkspaceID,
		ActiveOnly:  true,
		Limit:       audienceBatchSize,
	}
	if c.AudienceFilter.PhonePrefix != "" {
		filter.PhonePrefix = &c.AudienceFilter.PhonePrefix
	}
	filter.OptedInAfter = c.AudienceFilter.OptedInAfter

	matched := 0
	for offset := 0; ; offset += audienceBatchSize {
		filter.Offset = offset
		optIns, _, err := s.optIns.List(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("list opt-ins: %w", err)
		}
		if len(optIns) == 0 {
			break
		}
		batch := make([]*model.CampaignRecipient, len(optIns))
		for i, o := range optIns {
			batch[i] = &model.CampaignRecipient{
				CampaignID:  campaignID,
				OptInID:     o.ID,
				PhoneNumber: o.PhoneNumber,
			}
		}
		if _, err := s.recipients.BulkInsert(ctx, batch); err != nil {
			return 0, fmt.Errorf("insert recipients: %w", err)
		}
		matched += len(optIns)
		if len(optIns) < audienceBatchSize {
			break
		}
	}

	if matched == 0 {
		return 0, ErrEmptyAudience
	}

	total, err := s.recipients.CountByCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if err := s.campaigns.SetTotalRecipients(ctx, campaignID, int(total)); err != nil {
		return 0, err
	}
	logger.Info("Campaign audience built", "campaign_id", campaignID, "total_recipients", total)
	return int(total), nil
}

func (s *CampaignService) Schedule(ctx context.Context, id int64, at time.Time) (*model.Campaign, error) {
	if at.Before(s.now()) {
		return nil, ErrScheduleInPast
	}
	if _, err := s.requireAudience(ctx, id); err != nil {
		return nil, err
	}
	err := s.campaigns.Schedule(ctx, id, at)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrCampaignNotEditable
	case err != nil:
		return nil, err
	}
	return s.campaigns.GetByID(ctx, id)
}

// SendNow schedules the campaign for immediate pickup by the dispatcher
// rather than dispatching inline; one code path handles both cases.
func (s *CampaignService) SendNow(ctx context.Context, id int64) (*model.Campaign, error) {
	if _, err := s.requireAudience(ctx, id); err != nil {
		return nil, err
	}
	err := s.campaigns.Schedule(ctx, id, s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrCampaignNotEditable
	case err != nil:
		return nil, err
	}
	return s.campaigns.GetByID(ctx, id)
}

func (s *CampaignService) requireAudience(ctx context.Context, id int64) (int64, error) {
	total, err := s.recipients.CountByCampaign(ctx, id)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, ErrEmptyAudience
	}
	return total, nil
}

// Cancel stops a campaign in any non-terminal state. Recipients already
// handed to the platform are not recalled; pending ones will be dropped by
// the dispatcher's per-recipient cancel check.
func (s *CampaignService) Cancel(ctx context.Context, id int64) (*model.Campaign, error) {
	err := s.campaigns.UpdateStatus(ctx, id, model.CampaignCancelled)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrCampaignFinished
	case err != nil:
		return nil, err
	}
	return s.campaigns.GetByID(ctx, id)
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CampaignService) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	return s.campaigns.List(ctx, f)
}

// Stats aggregates live recipient counts; the campaign row's own counters
// are for dashboards, this reads the recipient table directly.
func (s *CampaignService) Stats(ctx context.Context, id int64) (*model.CampaignStats, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	counts, err := s.recipients.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.CampaignStats{
		CampaignID:      c.ID,
		Status:          c.Status,
		TotalRecipients: c.TotalRecipients,
		PendingCount:    int(counts[model.RecipientPending]),
		SentCount:       int(counts[model.RecipientSent]),
		DeliveredCount:  int(counts[model.RecipientDelivered]),
		ReadCount:       int(counts[model.RecipientRead]),
		FailedCount:     int(counts[model.RecipientFailed]),
		SkippedCount:    int(counts[model.RecipientSkipped]),
	}, nil
}
