package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
)

func TestRiskAlertRepository_CreateIfAbsent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRiskAlertRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	alert := &model.AccountRiskAlert{
		AccountID: 1,
		Type:      model.AlertHighFailureRate,
		Severity:  model.SeverityHigh,
		Detail:    "failure ratio 0.42 over the last hour",
	}

	t.Run("first observation creates the alert", func(t *testing.T) {
		created, fresh, err := repo.CreateIfAbsent(ctx, alert)
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.NotZero(t, created.ID)
	})

	t.Run("repeat observation dedups onto the open alert", func(t *testing.T) {
		again, fresh, err := repo.CreateIfAbsent(ctx, alert)
		require.NoError(t, err)
		assert.False(t, fresh)

		open, err := repo.ListOpen(ctx, nil)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, again.ID, open[0].ID)
	})

	t.Run("different type opens a second alert", func(t *testing.T) {
		_, fresh, err := repo.CreateIfAbsent(ctx, &model.AccountRiskAlert{
			AccountID: 1,
			Type:      model.AlertQualityDowngrade,
			Severity:  model.SeverityMedium,
			Detail:    "quality dropped from green to yellow",
		})
		require.NoError(t, err)
		assert.True(t, fresh)

		open, err := repo.ListOpen(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})

	t.Run("resolved alert no longer dedups", func(t *testing.T) {
		open, err := repo.ListOpen(ctx, nil)
		require.NoError(t, err)
		var target *model.AccountRiskAlert
		for _, a := range open {
			if a.Type == model.AlertHighFailureRate {
				target = a
			}
		}
		require.NotNil(t, target)

		_, err = repo.Resolve(ctx, target.ID, time.Now().UTC())
		require.NoError(t, err)

		_, fresh, err := repo.CreateIfAbsent(ctx, alert)
		require.NoError(t, err)
		assert.True(t, fresh)
	})
}

func TestRiskAlertRepository_AcknowledgeAndResolve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRiskAlertRepository(db.DB)
	ctx := context.Background()
	seedAccount(t, db, 1)

	created, _, err := repo.CreateIfAbsent(ctx, &model.AccountRiskAlert{
		AccountID: 1,
		Type:      model.AlertSuspensionRisk,
		Severity:  model.SeverityCritical,
		Detail:    "account restricted by the platform",
	})
	require.NoError(t, err)

	t.Run("acknowledge does not resolve", func(t *testing.T) {
		at := time.Now().UTC()
		got, err := repo.Acknowledge(ctx, created.ID, at)
		require.NoError(t, err)
		assert.NotNil(t, got.AcknowledgedAt)
		assert.True(t, got.Open())
	})

	t.Run("acknowledge is idempotent", func(t *testing.T) {
		_, err := repo.Acknowledge(ctx, created.ID, time.Now().UTC())
		assert.NoError(t, err)
	})

	t.Run("resolve closes the alert", func(t *testing.T) {
		got, err := repo.Resolve(ctx, created.ID, time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, got.Open())

		open, err := repo.ListOpen(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("acknowledge after resolve is rejected", func(t *testing.T) {
		_, err := repo.Acknowledge(ctx, created.ID, time.Now().UTC())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown alert", func(t *testing.T) {
		_, err := repo.Resolve(ctx, 999, time.Now().UTC())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
