package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
)

func seedRecipientFixtures(t *testing.T, db *testDB) *model.Campaign {
	t.Helper()
	seedCampaignFixtures(t, db)
	campaigns := NewCampaignRepository(db.DB)
	return newDraftCampaign(t, campaigns, "audience test")
}

func buildRecipients(campaignID int64, n int) []*model.CampaignRecipient {
	recipients := make([]*model.CampaignRecipient, n)
	for i := 0; i < n; i++ {
		recipients[i] = &model.CampaignRecipient{
			CampaignID:  campaignID,
			OptInID:     int64(i + 1),
			PhoneNumber: fmt.Sprintf("+1555000%04d", i+1),
		}
	}
	return recipients
}

func TestCampaignRecipientRepository_BulkInsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRecipientRepository(db.DB)
	ctx := context.Background()
	campaign := seedRecipientFixtures(t, db)

	t.Run("first build inserts everything", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, buildRecipients(campaign.ID, 10))
		require.NoError(t, err)
		assert.Equal(t, int64(10), inserted)

		count, err := repo.CountByCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), count)
	})

	t.Run("repeated build inserts nothing", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, buildRecipients(campaign.ID, 10))
		require.NoError(t, err)
		assert.Zero(t, inserted)

		count, err := repo.CountByCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), count)
	})

	t.Run("grown audience inserts only the new rows", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, buildRecipients(campaign.ID, 12))
		require.NoError(t, err)
		assert.Equal(t, int64(2), inserted)
	})

	t.Run("empty slice is a no-op", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})
}

func TestCampaignRecipientRepository_Marks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRecipientRepository(db.DB)
	ctx := context.Background()
	campaign := seedRecipientFixtures(t, db)

	_, err := repo.BulkInsert(ctx, buildRecipients(campaign.ID, 3))
	require.NoError(t, err)
	pending, err := repo.ListPending(ctx, campaign.ID, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	t.Run("mark sent is single shot", func(t *testing.T) {
		id := pending[0].ID
		require.NoError(t, repo.MarkSent(ctx, id, "wamid.r1"))

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.RecipientSent, got.Status)
		assert.NotNil(t, got.SentAt)

		err = repo.MarkSent(ctx, id, "wamid.r1-again")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("mark failed records the provider error", func(t *testing.T) {
		id := pending[1].ID
		require.NoError(t, repo.MarkFailed(ctx, id, "131026", "recipient unreachable"))

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.RecipientFailed, got.Status)
		assert.Equal(t, "131026", got.ErrorCode)
	})

	t.Run("mark skipped only from pending", func(t *testing.T) {
		id := pending[2].ID
		require.NoError(t, repo.MarkSkipped(ctx, id))

		err := repo.MarkSent(ctx, id, "wamid.r3")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("open count excludes terminal recipients", func(t *testing.T) {
		open, err := repo.OpenCount(ctx, campaign.ID)
		require.NoError(t, err)
		// one sent, one failed, one skipped
		assert.Equal(t, int64(1), open)
	})
}

func TestCampaignRecipientRepository_ApplyStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRecipientRepository(db.DB)
	ctx := context.Background()
	campaign := seedRecipientFixtures(t, db)

	_, err := repo.BulkInsert(ctx, buildRecipients(campaign.ID, 2))
	require.NoError(t, err)
	pending, err := repo.ListPending(ctx, campaign.ID, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, repo.MarkSent(ctx, pending[0].ID, "wamid.cr1"))
	require.NoError(t, repo.MarkSent(ctx, pending[1].ID, "wamid.cr2"))

	t.Run("delivered then read", func(t *testing.T) {
		got, err := repo.ApplyStatus(ctx, "wamid.cr1", model.RecipientDelivered, "", "")
		require.NoError(t, err)
		assert.Equal(t, model.RecipientDelivered, got.Status)

		got, err = repo.ApplyStatus(ctx, "wamid.cr1", model.RecipientRead, "", "")
		require.NoError(t, err)
		assert.Equal(t, model.RecipientRead, got.Status)
	})

	t.Run("late delivered after read is stale", func(t *testing.T) {
		got, err := repo.ApplyStatus(ctx, "wamid.cr1", model.RecipientDelivered, "", "")
		assert.ErrorIs(t, err, ErrStaleStatus)
		assert.Equal(t, model.RecipientRead, got.Status)
	})

	t.Run("read can follow delivered even though delivered counts as done", func(t *testing.T) {
		got, err := repo.ApplyStatus(ctx, "wamid.cr2", model.RecipientDelivered, "", "")
		require.NoError(t, err)
		assert.True(t, got.Status.Terminal())

		got, err = repo.ApplyStatus(ctx, "wamid.cr2", model.RecipientRead, "", "")
		require.NoError(t, err)
		assert.Equal(t, model.RecipientRead, got.Status)
	})

	t.Run("unknown wamid", func(t *testing.T) {
		_, err := repo.ApplyStatus(ctx, "wamid.cr-missing", model.RecipientDelivered, "", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[model.RecipientRead])
	})
}
