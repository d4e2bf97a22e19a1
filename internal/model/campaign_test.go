package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatus_Machine(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		assert.True(t, CampaignDraft.CanTransition(CampaignScheduled))
		assert.True(t, CampaignScheduled.CanTransition(CampaignSending))
		assert.True(t, CampaignSending.CanTransition(CampaignCompleted))
	})

	t.Run("direct send from draft", func(t *testing.T) {
		assert.True(t, CampaignDraft.CanTransition(CampaignSending))
	})

	t.Run("cancel from any non-terminal state", func(t *testing.T) {
		assert.True(t, CampaignDraft.CanTransition(CampaignCancelled))
		assert.True(t, CampaignScheduled.CanTransition(CampaignCancelled))
		assert.True(t, CampaignSending.CanTransition(CampaignCancelled))
		assert.False(t, CampaignCompleted.CanTransition(CampaignCancelled))
		assert.False(t, CampaignCancelled.CanTransition(CampaignCancelled))
	})

	t.Run("failed only from sending", func(t *testing.T) {
		assert.True(t, CampaignSending.CanTransition(CampaignFailed))
		assert.False(t, CampaignDraft.CanTransition(CampaignFailed))
		assert.False(t, CampaignScheduled.CanTransition(CampaignFailed))
	})

	t.Run("no backwards moves", func(t *testing.T) {
		assert.False(t, CampaignSending.CanTransition(CampaignScheduled))
		assert.False(t, CampaignCompleted.CanTransition(CampaignSending))
	})
}

func TestCampaignStatus_EditAndCancelGates(t *testing.T) {
	assert.True(t, CampaignDraft.CanEdit())
	assert.True(t, CampaignScheduled.CanEdit())
	assert.False(t, CampaignSending.CanEdit())
	assert.False(t, CampaignCompleted.CanEdit())

	assert.True(t, CampaignSending.CanCancel())
	assert.False(t, CampaignFailed.CanCancel())
}

func TestRecipientStatus_TerminalSet(t *testing.T) {
	assert.False(t, RecipientPending.Terminal())
	assert.False(t, RecipientSent.Terminal())
	assert.True(t, RecipientDelivered.Terminal())
	assert.True(t, RecipientRead.Terminal())
	assert.True(t, RecipientFailed.Terminal())
	assert.True(t, RecipientSkipped.Terminal())
}

func TestRecipientStatus_MonotonicUpdates(t *testing.T) {
	assert.True(t, RecipientPending.CanTransition(RecipientSent))
	assert.True(t, RecipientPending.CanTransition(RecipientSkipped))
	assert.True(t, RecipientSent.CanTransition(RecipientDelivered))
	assert.True(t, RecipientSent.CanTransition(RecipientRead))
	assert.True(t, RecipientDelivered.CanTransition(RecipientRead))
	assert.False(t, RecipientSent.CanTransition(RecipientPending))
	assert.True(t, RecipientSent.CanTransition(RecipientFailed))
	assert.False(t, RecipientSent.CanTransition(RecipientSkipped))
	assert.False(t, RecipientDelivered.CanTransition(RecipientSent))
	assert.False(t, RecipientDelivered.CanTransition(RecipientFailed))
	assert.False(t, RecipientRead.CanTransition(RecipientDelivered))
	assert.False(t, RecipientFailed.CanTransition(RecipientSent))
	assert.False(t, RecipientSkipped.CanTransition(RecipientSent))
}
