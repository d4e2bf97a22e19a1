package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/model"
)

func seedConversation(t *testing.T, db *testDB, id int64) {
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
	conv := &ConversationEntity{
		ID:            id,
		WorkspaceID:   1,
		PhoneNumberID: 1,
		CustomerPhone: "+15551230001",
		Status:        string(model.ConversationActive),
	}
	require.NoError(t, db.Write(ctx).Create(conv).Error)
}

func TestMessageRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	seedConversation(t, db, 1)

	t.Run("create defaults to queued", func(t *testing.T) {
		msg, err := repo.Create(ctx, &model.Message{
			ConversationID: 1,
			Direction:      model.DirectionOutbound,
			Type:           model.MessageTypeText,
			Body:           "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, model.MessageStatusQueued, msg.Status)
		assert.NotZero(t, msg.ID)
	})

	t.Run("get by wamid", func(t *testing.T) {
		msg, err := repo.Create(ctx, &model.Message{
			ConversationID: 1,
			Direction:      model.DirectionOutbound,
			Type:           model.MessageTypeText,
			Wamid:          "wamid.abc",
			Body:           "hi",
		})
		require.NoError(t, err)

		got, err := repo.GetByWamid(ctx, "wamid.abc")
		require.NoError(t, err)
		assert.Equal(t, msg.ID, got.ID)
	})

	t.Run("unknown wamid", func(t *testing.T) {
		_, err := repo.GetByWamid(ctx, "wamid.missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageRepository_MarkSent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	seedConversation(t, db, 1)

	msg, err := repo.Create(ctx, &model.Message{
		ConversationID: 1,
		Direction:      model.DirectionOutbound,
		Type:           model.MessageTypeText,
		Body:           "hello",
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkSent(ctx, msg.ID, "wamid.sent-1"))

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MessageStatusSent, got.Status)
	assert.Equal(t, "wamid.sent-1", got.Wamid)

	// second MarkSent hits a non-queued row
	err = repo.MarkSent(ctx, msg.ID, "wamid.sent-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMessageRepository_ApplyStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	seedConversation(t, db, 1)

	newSent := func(t *testing.T, wamid string) *model.Message {
		msg, err := repo.Create(ctx, &model.Message{
			ConversationID: 1,
			Direction:      model.DirectionOutbound,
			Type:           model.MessageTypeTemplate,
			Body:           "promo",
		})
		require.NoError(t, err)
		require.NoError(t, repo.MarkSent(ctx, msg.ID, wamid))
		return msg
	}

	t.Run("forward progression applies", func(t *testing.T) {
		newSent(t, "wamid.fwd")
		at := time.Now().UTC()

		got, err := repo.ApplyStatus(ctx, "wamid.fwd", model.MessageStatusDelivered, &at, "", "")
		require.NoError(t, err)
		assert.Equal(t, model.MessageStatusDelivered, got.Status)

		got, err = repo.ApplyStatus(ctx, "wamid.fwd", model.MessageStatusRead, &at, "", "")
		require.NoError(t, err)
		assert.Equal(t, model.MessageStatusRead, got.Status)
	})

	t.Run("out of order update is stale", func(t *testing.T) {
		newSent(t, "wamid.ooo")
		at := time.Now().UTC()

		_, err := repo.ApplyStatus(ctx, "wamid.ooo", model.MessageStatusRead, &at, "", "")
		require.NoError(t, err)

		// delivered arrives after read
		got, err := repo.ApplyStatus(ctx, "wamid.ooo", model.MessageStatusDelivered, &at, "", "")
		assert.ErrorIs(t, err, ErrStaleStatus)
		assert.Equal(t, model.MessageStatusRead, got.Status)
	})

	t.Run("duplicate update is stale", func(t *testing.T) {
		newSent(t, "wamid.dup")
		at := time.Now().UTC()

		_, err := repo.ApplyStatus(ctx, "wamid.dup", model.MessageStatusDelivered, &at, "", "")
		require.NoError(t, err)

		got, err := repo.ApplyStatus(ctx, "wamid.dup", model.MessageStatusDelivered, &at, "", "")
		assert.ErrorIs(t, err, ErrStaleStatus)
		assert.Equal(t, model.MessageStatusDelivered, got.Status)
	})

	t.Run("failure records error detail", func(t *testing.T) {
		newSent(t, "wamid.fail")
		at := time.Now().UTC()

		got, err := repo.ApplyStatus(ctx, "wamid.fail", model.MessageStatusFailed, &at, "131049", "per-user marketing limit")
		require.NoError(t, err)
		assert.Equal(t, model.MessageStatusFailed, got.Status)
		assert.Equal(t, "131049", got.ErrorCode)
		assert.Equal(t, "per-user marketing limit", got.ErrorMessage)

		// failed is terminal
		_, err = repo.ApplyStatus(ctx, "wamid.fail", model.MessageStatusDelivered, &at, "", "")
		assert.ErrorIs(t, err, ErrStaleStatus)
	})

	t.Run("queued cannot go straight to queued", func(t *testing.T) {
		_, err := repo.ApplyStatus(ctx, "wamid.fwd", model.MessageStatusQueued, nil, "", "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown wamid", func(t *testing.T) {
		at := time.Now().UTC()
		_, err := repo.ApplyStatus(ctx, "wamid.unknown", model.MessageStatusDelivered, &at, "", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageRepository_OutboundStatsSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	seedConversation(t, db, 1)

	since := time.Now().UTC().Add(-time.Hour)

	seed := []struct {
		wamid  string
		status model.MessageStatus
	}{
		{"wamid.s1", model.MessageStatusSent},
		{"wamid.s2", model.MessageStatusDelivered},
		{"wamid.s3", model.MessageStatusFailed},
		{"wamid.s4", model.MessageStatusFailed},
	}
	for _, s := range seed {
		entity := &MessageEntity{
			ConversationID: 1,
			Direction:      string(model.DirectionOutbound),
			Type:           string(model.MessageTypeTemplate),
			Status:         string(s.status),
			Wamid:          s.wamid,
		}
		require.NoError(t, db.Write(ctx).Create(entity).Error)
	}
	// inbound traffic is excluded from the aggregate
	inbound := &MessageEntity{
		ConversationID: 1,
		Direction:      string(model.DirectionInbound),
		Type:           string(model.MessageTypeText),
		Status:         string(model.MessageStatusDelivered),
	}
	require.NoError(t, db.Write(ctx).Create(inbound).Error)

	stats, err := repo.OutboundStatsSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].PhoneNumberID)
	assert.Equal(t, int64(4), stats[0].Total)
	assert.Equal(t, int64(2), stats[0].Failed)
}
