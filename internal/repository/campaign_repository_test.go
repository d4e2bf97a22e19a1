package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
)

func seedCampaignFixtures(t *testing.T, db *testDB) {
	t.Helper()
	ctx := context.Background()
	seedAccount(t, db, 1)
	number := &PhoneNumberEntity{
		ID:             1,
		AccountID:      1,
		PlatformID:     "pn-1",
		DisplayNumber:  "+15550000001",
		Quality:        string(model.QualityGreen),
		DailySendLimit: 1000,
		IsActive:       true,
	}
	require.NoError(t, db.Write(ctx).Create(number).Error)
	template := &TemplateEntity{
		ID:            1,
		WorkspaceID:   1,
		PhoneNumberID: 1,
		Name:          "spring_sale",
		Language:      "en",
		Category:      string(model.TemplateCategoryMarketing),
		Status:        string(model.TemplateApproved),
		Body:          "Spring sale is on, {{1}}!",
	}
	require.NoError(t, db.Write(ctx).Create(template).Error)
}

func newDraftCampaign(t *testing.T, repo *CampaignRepository, name string) *model.Campaign {
	t.Helper()
	c, err := repo.Create(context.Background(), &model.Campaign{
		WorkspaceID:   1,
		PhoneNumberID: 1,
		TemplateID:    1,
		Name:          name,
	})
	require.NoError(t, err)
	return c
}

func TestCampaignRepository_StatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()
	seedCampaignFixtures(t, db)

	t.Run("draft to scheduled to sending to completed", func(t *testing.T) {
		c := newDraftCampaign(t, repo, "happy path")

		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignScheduled))
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignSending))
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignCompleted))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignCompleted, got.Status)
		assert.NotNil(t, got.StartedAt)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("direct send skips scheduled", func(t *testing.T) {
		c := newDraftCampaign(t, repo, "direct send")

		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignSending))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignSending, got.Status)
	})

	t.Run("completed campaign cannot restart", func(t *testing.T) {
		c := newDraftCampaign(t, repo, "finished")
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignSending))
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignCompleted))

		err := repo.UpdateStatus(ctx, c.ID, model.CampaignSending)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancel from scheduled", func(t *testing.T) {
		c := newDraftCampaign(t, repo, "to cancel")
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignScheduled))
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignCancelled))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignCancelled, got.Status)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, 999, model.CampaignSending)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCampaignRepository_FindDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()
	seedCampaignFixtures(t, db)

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := newDraftCampaign(t, repo, "due")
	require.NoError(t, db.Write(ctx).Model(&CampaignEntity{}).Where("id = ?", due.ID).
		Updates(map[string]interface{}{"status": string(model.CampaignScheduled), "scheduled_at": past}).Error)

	notYet := newDraftCampaign(t, repo, "not yet")
	require.NoError(t, db.Write(ctx).Model(&CampaignEntity{}).Where("id = ?", notYet.ID).
		Updates(map[string]interface{}{"status": string(model.CampaignScheduled), "scheduled_at": future}).Error)

	// draft with a past schedule never fires
	idle := newDraftCampaign(t, repo, "idle draft")
	require.NoError(t, db.Write(ctx).Model(&CampaignEntity{}).Where("id = ?", idle.ID).
		Update("scheduled_at", past).Error)

	got, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestCampaignRepository_Counters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()
	seedCampaignFixtures(t, db)

	c := newDraftCampaign(t, repo, "counted")

	require.NoError(t, repo.SetTotalRecipients(ctx, c.ID, 10))
	require.NoError(t, repo.IncrementCounter(ctx, c.ID, "sent_count"))
	require.NoError(t, repo.IncrementCounter(ctx, c.ID, "sent_count"))
	require.NoError(t, repo.IncrementCounter(ctx, c.ID, "delivered_count"))
	require.NoError(t, repo.IncrementCounter(ctx, c.ID, "failed_count"))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TotalRecipients)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.DeliveredCount)
	assert.Equal(t, 1, got.FailedCount)

	t.Run("unknown counter column rejected", func(t *testing.T) {
		err := repo.IncrementCounter(ctx, c.ID, "status")
		assert.Error(t, err)
	})
}
