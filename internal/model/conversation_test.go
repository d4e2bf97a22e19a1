package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversation_WithinServiceWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no customer message yet", func(t *testing.T) {
		c := &Conversation{}
		assert.False(t, c.WithinServiceWindow(base))
	})

	t.Run("just inside the window", func(t *testing.T) {
		last := base.Add(-ServiceWindow + time.Second)
		c := &Conversation{LastCustomerMessageAt: &last}
		assert.True(t, c.WithinServiceWindow(base))
	})

	t.Run("exactly 24h", func(t *testing.T) {
		last := base.Add(-ServiceWindow)
		c := &Conversation{LastCustomerMessageAt: &last}
		assert.True(t, c.WithinServiceWindow(base))
	})

	t.Run("window closes as the clock advances, no write needed", func(t *testing.T) {
		last := base
		c := &Conversation{LastCustomerMessageAt: &last}
		assert.True(t, c.WithinServiceWindow(base.Add(ServiceWindow)))
		assert.False(t, c.WithinServiceWindow(base.Add(ServiceWindow+time.Second)))
	})
}

func TestConversationStatus_Machine(t *testing.T) {
	assert.True(t, ConversationActive.CanTransition(ConversationPending))
	assert.True(t, ConversationActive.CanTransition(ConversationResolved))
	assert.True(t, ConversationPending.CanTransition(ConversationActive))
	assert.True(t, ConversationPending.CanTransition(ConversationResolved))

	// resolved reopens to active only, through an explicit reopen
	assert.True(t, ConversationResolved.CanTransition(ConversationActive))
	assert.False(t, ConversationResolved.CanTransition(ConversationPending))
}
