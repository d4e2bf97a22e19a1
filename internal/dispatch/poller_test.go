package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
)

type MockCampaignPollRepository struct {
	mock.Mock
}

func (m *MockCampaignPollRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func (m *MockCampaignPollRepository) FindSending(ctx context.Context) ([]*model.Campaign, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func (m *MockCampaignPollRepository) UpdateStatus(ctx context.Context, id int64, to model.CampaignStatus) error {
	args := m.Called(ctx, id, to)
	return args.Error(0)
}

type MockRecipientPollRepository struct {
	mock.Mock
}

func (m *MockRecipientPollRepository) ListPending(ctx context.Context, campaignID int64, limit int) ([]*model.CampaignRecipient, error) {
	args := m.Called(ctx, campaignID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CampaignRecipient), args.Error(1)
}

func (m *MockRecipientPollRepository) OpenCount(ctx context.Context, campaignID int64) (int64, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(int64), args.Error(1)
}

type MockJobPublisher struct {
	mock.Mock
}

func (m *MockJobPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}

func TestPoller_Tick(t *testing.T) {
	ctx := context.Background()

	t.Run("due campaign is promoted and its recipients enqueued", func(t *testing.T) {
		campaigns := new(MockCampaignPollRepository)
		recipients := new(MockRecipientPollRepository)
		publisher := new(MockJobPublisher)
		poller := NewPoller(campaigns, recipients, publisher, PollerConfig{})

		due := &model.Campaign{ID: 20, Name: "spring-sale", Status: model.CampaignScheduled}
		campaigns.On("FindDue", ctx, mock.Anything, 500).Return([]*model.Campaign{due}, nil)
		campaigns.On("UpdateStatus", ctx, int64(20), model.CampaignSending).Return(nil)
		recipients.On("ListPending", ctx, int64(20), 500).Return([]*model.CampaignRecipient{
			{ID: 100, CampaignID: 20}, {ID: 101, CampaignID: 20},
		}, nil)
		publisher.On("PublishJSON", ctx, Job{CampaignID: 20, RecipientID: 100}, mock.Anything).Return("1-0", nil)
		publisher.On("PublishJSON", ctx, Job{CampaignID: 20, RecipientID: 101}, mock.Anything).Return("1-1", nil)
		campaigns.On("FindSending", ctx).Return([]*model.Campaign{}, nil)

		poller.Tick(ctx)

		campaigns.AssertExpectations(t)
		publisher.AssertNumberOfCalls(t, "PublishJSON", 2)
	})

	t.Run("campaign claimed by another instance is skipped", func(t *testing.T) {
		campaigns := new(MockCampaignPollRepository)
		recipients := new(MockRecipientPollRepository)
		publisher := new(MockJobPublisher)
		poller := NewPoller(campaigns, recipients, publisher, PollerConfig{})

		due := &model.Campaign{ID: 20, Status: model.CampaignScheduled}
		campaigns.On("FindDue", ctx, mock.Anything, 500).Return([]*model.Campaign{due}, nil)
		campaigns.On("UpdateStatus", ctx, int64(20), model.CampaignSending).Return(repository.ErrInvalidTransition)
		campaigns.On("FindSending", ctx).Return([]*model.Campaign{}, nil)

		poller.Tick(ctx)

		recipients.AssertNotCalled(t, "ListPending", mock.Anything, mock.Anything, mock.Anything)
		publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sending campaign with no open recipients completes", func(t *testing.T) {
		campaigns := new(MockCampaignPollRepository)
		recipients := new(MockRecipientPollRepository)
		publisher := new(MockJobPublisher)
		poller := NewPoller(campaigns, recipients, publisher, PollerConfig{})

		campaigns.On("FindDue", ctx, mock.Anything, 500).Return([]*model.Campaign{}, nil)
		sending := &model.Campaign{ID: 20, Name: "spring-sale", Status: model.CampaignSending}
		campaigns.On("FindSending", ctx).Return([]*model.Campaign{sending}, nil)
		recipients.On("OpenCount", ctx, int64(20)).Return(int64(0), nil)
		campaigns.On("UpdateStatus", ctx, int64(20), model.CampaignCompleted).Return(nil)

		poller.Tick(ctx)

		campaigns.AssertCalled(t, "UpdateStatus", ctx, int64(20), model.CampaignCompleted)
		publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sending campaign with deferred recipients is re-enqueued", func(t *testing.T) {
		campaigns := new(MockCampaignPollRepository)
		recipients := new(MockRecipientPollRepository)
		publisher := new(MockJobPublisher)
		poller := NewPoller(campaigns, recipients, publisher, PollerConfig{})

		campaigns.On("FindDue", ctx, mock.Anything, 500).Return([]*model.Campaign{}, nil)
		sending := &model.Campaign{ID: 20, Status: model.CampaignSending}
		campaigns.On("FindSending", ctx).Return([]*model.Campaign{sending}, nil)
		recipients.On("OpenCount", ctx, int64(20)).Return(int64(1), nil)
		recipients.On("ListPending", ctx, int64(20), 500).Return([]*model.CampaignRecipient{{ID: 100, CampaignID: 20}}, nil)
		publisher.On("PublishJSON", ctx, Job{CampaignID: 20, RecipientID: 100}, mock.Anything).Return("1-0", nil)

		poller.Tick(ctx)

		campaigns.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		publisher.AssertNumberOfCalls(t, "PublishJSON", 1)
	})

	t.Run("default config fills interval and batch size", func(t *testing.T) {
		poller := NewPoller(nil, nil, nil, PollerConfig{})
		require.Equal(t, 500, poller.config.BatchSize)
		require.NotZero(t, poller.config.Interval)
	})
}
