package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
)

func seedAccount(t *testing.T, db *testDB, id int64) {
	t.Helper()
	account := &BusinessAccountEntity{
		ID:          id,
		WorkspaceID: 1,
		PlatformID:  "waba-test",
		Name:        "Test Account",
		Status:      string(model.AccountStatusVerified),
		Quality:     string(model.QualityGreen),
		Tier:        string(model.Tier1K),
	}
	require.NoError(t, db.Write(context.Background()).Create(account).Error)
}

func TestPhoneNumberRepository_ReserveSend(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhoneNumberRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	t.Run("reservation consumes quota up to the limit", func(t *testing.T) {
		number := &PhoneNumberEntity{
			ID:             1,
			AccountID:      1,
			PlatformID:     "pn-1",
			DisplayNumber:  "+15550000001",
			Quality:        string(model.QualityGreen),
			DailySendLimit: 2,
			IsActive:       true,
		}
		require.NoError(t, db.Write(ctx).Create(number).Error)

		require.NoError(t, repo.ReserveSend(ctx, 1))
		require.NoError(t, repo.ReserveSend(ctx, 1))

		err := repo.ReserveSend(ctx, 1)
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		got, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, got.DailySendCount)
	})

	t.Run("inactive number", func(t *testing.T) {
		number := &PhoneNumberEntity{
			ID:             2,
			AccountID:      1,
			PlatformID:     "pn-2",
			DisplayNumber:  "+15550000002",
			Quality:        string(model.QualityGreen),
			DailySendLimit: 100,
			IsActive:       false,
		}
		require.NoError(t, db.Write(ctx).Create(number).Error)

		err := repo.ReserveSend(ctx, 2)
		assert.ErrorIs(t, err, ErrPhoneNumberInactive)

		got, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, got.DailySendCount)
	})

	t.Run("number not found", func(t *testing.T) {
		err := repo.ReserveSend(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create persists inactive and zero-limit values", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.PhoneNumber{
			AccountID:      1,
			PlatformID:     "pn-zero",
			DisplayNumber:  "+15550000009",
			Quality:        model.QualityUnknown,
			DailySendLimit: 0,
			IsActive:       false,
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.Equal(t, 0, got.DailySendLimit)

		err = repo.ReserveSend(ctx, created.ID)
		assert.ErrorIs(t, err, ErrPhoneNumberInactive)
	})

	t.Run("zero limit rejects the first send", func(t *testing.T) {
		number := &PhoneNumberEntity{
			ID:             4,
			AccountID:      1,
			PlatformID:     "pn-3",
			DisplayNumber:  "+15550000003",
			Quality:        string(model.QualityUnknown),
			DailySendLimit: 0,
			IsActive:       true,
		}
		require.NoError(t, db.Write(ctx).Create(number).Error)

		err := repo.ReserveSend(ctx, 4)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})
}

func TestPhoneNumberRepository_ResetDaily(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhoneNumberRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	t.Run("reset reopens an exhausted number", func(t *testing.T) {
		number := &PhoneNumberEntity{
			ID:             1,
			AccountID:      1,
			PlatformID:     "pn-1",
			DisplayNumber:  "+15550000001",
			Quality:        string(model.QualityGreen),
			DailySendCount: 1,
			DailySendLimit: 1,
			IsActive:       true,
		}
		require.NoError(t, db.Write(ctx).Create(number).Error)

		err := repo.ReserveSend(ctx, 1)
		require.ErrorIs(t, err, ErrQuotaExceeded)

		require.NoError(t, repo.ResetDaily(ctx, 1))
		assert.NoError(t, repo.ReserveSend(ctx, 1))
	})

	t.Run("reset missing number", func(t *testing.T) {
		err := repo.ResetDaily(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reset all touches only dirty counters", func(t *testing.T) {
		clean := &PhoneNumberEntity{
			ID:             2,
			AccountID:      1,
			PlatformID:     "pn-2",
			DisplayNumber:  "+15550000002",
			Quality:        string(model.QualityYellow),
			DailySendCount: 0,
			DailySendLimit: 10,
			IsActive:       true,
		}
		dirty := &PhoneNumberEntity{
			ID:             3,
			AccountID:      1,
			PlatformID:     "pn-3",
			DisplayNumber:  "+15550000003",
			Quality:        string(model.QualityYellow),
			DailySendCount: 7,
			DailySendLimit: 10,
			IsActive:       true,
		}
		require.NoError(t, db.Write(ctx).Create(clean).Error)
		require.NoError(t, db.Write(ctx).Create(dirty).Error)

		affected, err := repo.ResetAllDaily(ctx)
		require.NoError(t, err)
		// number 1 was consumed in the earlier subtest
		assert.Equal(t, int64(2), affected)

		got, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, got.DailySendCount)
	})
}

func TestPhoneNumberRepository_UpdateQuality(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhoneNumberRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	number := &PhoneNumberEntity{
		ID:             1,
		AccountID:      1,
		PlatformID:     "pn-1",
		DisplayNumber:  "+15550000001",
		Quality:        string(model.QualityGreen),
		DailySendLimit: 100,
		IsActive:       true,
	}
	require.NoError(t, db.Write(ctx).Create(number).Error)

	require.NoError(t, repo.UpdateQuality(ctx, 1, model.QualityRed))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.QualityRed, got.Quality)

	assert.ErrorIs(t, repo.UpdateQuality(ctx, 999, model.QualityRed), ErrNotFound)
}

func TestPhoneNumberRepository_SetDailyLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhoneNumberRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	number := &PhoneNumberEntity{
		ID:             1,
		AccountID:      1,
		PlatformID:     "pn-1",
		DisplayNumber:  "+15550000001",
		Quality:        string(model.QualityGreen),
		DailySendCount: 5,
		DailySendLimit: 100,
		IsActive:       true,
	}
	require.NoError(t, db.Write(ctx).Create(number).Error)

	t.Run("lowering the limit below the count blocks further sends", func(t *testing.T) {
		require.NoError(t, repo.SetDailyLimit(ctx, 1, 3))

		err := repo.ReserveSend(ctx, 1)
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		got, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 5, got.DailySendCount)
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		assert.Error(t, repo.SetDailyLimit(ctx, 1, -1))
	})
}

func TestPhoneNumberRepository_ContextCancellation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhoneNumberRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	number := &PhoneNumberEntity{
		ID:             1,
		AccountID:      1,
		PlatformID:     "pn-1",
		DisplayNumber:  "+15550000001",
		Quality:        string(model.QualityGreen),
		DailySendLimit: 100,
		IsActive:       true,
	}
	require.NoError(t, db.Write(ctx).Create(number).Error)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err := repo.ReserveSend(cancelled, 1)
	assert.Error(t, err)
}
