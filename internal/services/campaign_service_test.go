package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
)

type campaignServiceFixture struct {
	campaigns  *MockCampaignRepository
	recipients *MockRecipientRepository
	optIns     *MockOptInRepository
	templates  *MockTemplateRepository
	service    *CampaignService
	now        time.Time
}

func newCampaignServiceFixture(t *testing.T) *campaignServiceFixture {
	t.Helper()
	f := &campaignServiceFixture{
		campaigns:  new(MockCampaignRepository),
		recipients: new(MockRecipientRepository),
		optIns:     new(MockOptInRepository),
		templates:  new(MockTemplateRepository),
		now:        time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewCampaignService(f.campaigns, f.recipients, f.optIns, f.templates)
	f.service.now = func() time.Time { return f.now }
	return f
}

func approvedTemplate(workspaceID int64) *model.Template {
	return &model.Template{
		ID:          3,
		WorkspaceID: workspaceID,
		Name:        "promo_june",
		Language:    "en_US",
		Status:      model.TemplateApproved,
	}
}

func TestCampaignService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("draft with approved template", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.templates.On("GetByID", ctx, int64(3)).Return(approvedTemplate(1), nil)
		f.campaigns.On("Create", ctx, mock.MatchedBy(func(c *model.Campaign) bool {
			return c.Status == model.CampaignDraft && c.TemplateID == 3
		})).Return(&model.Campaign{ID: 20, Status: model.CampaignDraft}, nil)

		c, err := f.service.Create(ctx, model.CampaignCreateRequest{
			WorkspaceID:   1,
			PhoneNumberID: 5,
			TemplateID:    3,
			Name:          "june promo",
		})
		require.NoError(t, err)
		assert.Equal(t, model.CampaignDraft, c.Status)
	})

	t.Run("unapproved template is rejected", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		tmpl := approvedTemplate(1)
		tmpl.Status = model.TemplateSubmitted
		f.templates.On("GetByID", ctx, int64(3)).Return(tmpl, nil)

		_, err := f.service.Create(ctx, model.CampaignCreateRequest{
			WorkspaceID:   1,
			PhoneNumberID: 5,
			TemplateID:    3,
			Name:          "june promo",
		})
		assert.ErrorIs(t, err, ErrTemplateNotApproved)
		f.campaigns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("scheduled in the past is rejected", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		past := f.now.Add(-time.Hour)

		_, err := f.service.Create(ctx, model.CampaignCreateRequest{
			WorkspaceID:   1,
			PhoneNumberID: 5,
			TemplateID:    3,
			Name:          "june promo",
			ScheduledAt:   &past,
		})
		assert.ErrorIs(t, err, ErrScheduleInPast)
	})

	t.Run("template from another workspace", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.templates.On("GetByID", ctx, int64(3)).Return(approvedTemplate(99), nil)

		_, err := f.service.Create(ctx, model.CampaignCreateRequest{
			WorkspaceID:   1,
			PhoneNumberID: 5,
			TemplateID:    3,
			Name:          "june promo",
		})
		assert.ErrorIs(t, err, ErrWorkspaceMismatch)
	})
}

func TestCampaignService_BuildAudience(t *testing.T) {
	ctx := context.Background()

	draft := func() *model.Campaign {
		return &model.Campaign{
			ID:          20,
			WorkspaceID: 1,
			Status:      model.CampaignDraft,
		}
	}

	t.Run("ten active opt-ins become ten recipients", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.campaigns.On("GetByID", ctx, int64(20)).Return(draft(), nil)

		optIns := make([]*model.OptIn, 10)
		for i := range optIns {
			optIns[i] = &model.OptIn{
				ID:          int64(i + 1),
				WorkspaceID: 1,
				PhoneNumber: fmt.Sprintf("+1555123%04d", i),
				IsActive:    true,
			}
		}
		f.optIns.On("List", ctx, mock.MatchedBy(func(filter model.OptInFilter) bool {
			return filter.ActiveOnly && *filter.WorkspaceID == int64(1)
		})).Return(optIns, int64(10), nil).Once()
		f.optIns.On("List", ctx, mock.Anything).Return([]*model.OptIn{}, int64(10), nil)

		f.recipients.On("BulkInsert", ctx, mock.MatchedBy(func(batch []*model.CampaignRecipient) bool {
			return len(batch) == 10 && batch[0].CampaignID == 20 && batch[0].Status == model.RecipientStatus("")
		})).Return(int64(10), nil)
		f.recipients.On("CountByCampaign", ctx, int64(20)).Return(int64(10), nil)
		f.campaigns.On("SetTotalRecipients", ctx, int64(20), 10).Return(nil)

		total, err := f.service.BuildAudience(ctx, 20)
		require.NoError(t, err)
		assert.Equal(t, 10, total)
	})

	t.Run("empty audience", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.campaigns.On("GetByID", ctx, int64(20)).Return(draft(), nil)
		f.optIns.On("List", ctx, mock.Anything).Return([]*model.OptIn{}, int64(0), nil)

		_, err := f.service.BuildAudience(ctx, 20)
		assert.ErrorIs(t, err, ErrEmptyAudience)
		f.recipients.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
	})

	t.Run("sending campaign cannot be rebuilt", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		c := draft()
		c.Status = model.CampaignSending
		f.campaigns.On("GetByID", ctx, int64(20)).Return(c, nil)

		_, err := f.service.BuildAudience(ctx, 20)
		assert.ErrorIs(t, err, ErrCampaignNotEditable)
	})
}

func TestCampaignService_Schedule(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules a built campaign", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		at := f.now.Add(time.Hour)
		f.recipients.On("CountByCampaign", ctx, int64(20)).Return(int64(10), nil)
		f.campaigns.On("Schedule", ctx, int64(20), at).Return(nil)
		f.campaigns.On("GetByID", ctx, int64(20)).Return(&model.Campaign{ID: 20, Status: model.CampaignScheduled, ScheduledAt: &at}, nil)

		c, err := f.service.Schedule(ctx, 20, at)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignScheduled, c.Status)
	})

	t.Run("refuses without an audience", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.recipients.On("CountByCampaign", ctx, int64(20)).Return(int64(0), nil)

		_, err := f.service.Schedule(ctx, 20, f.now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrEmptyAudience)
	})

	t.Run("refuses past send times", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		_, err := f.service.Schedule(ctx, 20, f.now.Add(-time.Minute))
		assert.ErrorIs(t, err, ErrScheduleInPast)
	})

	t.Run("send now schedules for immediate pickup", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.recipients.On("CountByCampaign", ctx, int64(20)).Return(int64(10), nil)
		f.campaigns.On("Schedule", ctx, int64(20), f.now).Return(nil)
		f.campaigns.On("GetByID", ctx, int64(20)).Return(&model.Campaign{ID: 20, Status: model.CampaignScheduled}, nil)

		_, err := f.service.SendNow(ctx, 20)
		assert.NoError(t, err)
	})
}

func TestCampaignService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a live campaign", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.campaigns.On("UpdateStatus", ctx, int64(20), model.CampaignCancelled).Return(nil)
		f.campaigns.On("GetByID", ctx, int64(20)).Return(&model.Campaign{ID: 20, Status: model.CampaignCancelled}, nil)

		c, err := f.service.Cancel(ctx, 20)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignCancelled, c.Status)
	})

	t.Run("terminal campaigns stay put", func(t *testing.T) {
		f := newCampaignServiceFixture(t)
		f.campaigns.On("UpdateStatus", ctx, int64(20), model.CampaignCancelled).Return(repository.ErrInvalidTransition)

		_, err := f.service.Cancel(ctx, 20)
		assert.ErrorIs(t, err, ErrCampaignFinished)
	})
}

func TestCampaignService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newCampaignServiceFixture(t)
	f.campaigns.On("GetByID", ctx, int64(20)).Return(&model.Campaign{
		ID:              20,
		Status:          model.CampaignSending,
		TotalRecipients: 10,
	}, nil)
	f.recipients.On("CountByStatus", ctx, int64(20)).Return(map[model.RecipientStatus]int64{
		model.RecipientPending:   2,
		model.RecipientSent:      3,
		model.RecipientDelivered: 2,
		model.RecipientRead:      1,
		model.RecipientFailed:    1,
		model.RecipientSkipped:   1,
	}, nil)

	stats, err := f.service.Stats(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalRecipients)
	assert.Equal(t, 2, stats.PendingCount)
	assert.Equal(t, 3, stats.SentCount)
	assert.Equal(t, 1, stats.SkippedCount)
	// sent+failed+skipped+pending plus tracked deliveries covers everyone
	assert.Equal(t, stats.TotalRecipients,
		stats.PendingCount+stats.SentCount+stats.DeliveredCount+stats.ReadCount+stats.FailedCount+stats.SkippedCount)
}
