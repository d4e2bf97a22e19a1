package model

import "time"

const ServiceWindow = 24 * time.Hour

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationPending  ConversationStatus = "pending"
	ConversationResolved ConversationStatus = "resolved"
)

// Conversation is a customer-business thread, unique per
// (phone_number_id, customer_phone). A resolved conversation is reused and
// reopened on the next inbound message, never duplicated.
type Conversation struct {
	ID                    int64              `json:"id"`
	WorkspaceID           int64              `json:"workspace_id"`
	PhoneNumberID         int64              `json:"phone_number_id"`
	CustomerPhone         string             `json:"customer_phone"`
	CustomerName          string             `json:"customer_name,omitempty"`
	Status                ConversationStatus `json:"status"`
	AssignedUserID        *int64             `json:"assigned_user_id,omitempty"`
	AssignedTeamID        *int64             `json:"assigned_team_id,omitempty"`
	LastCustomerMessageAt *time.Time         `json:"last_customer_message_at,omitempty"`
	ExpiresAt             *time.Time         `json:"conversation_expires_at,omitempty"`
	MessageCount          int                `json:"message_count"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// WithinServiceWindow recomputes from LastCustomerMessageAt on every call.
// It is never cached: the window silently closes as the clock advances.
func (c *Conversation) WithinServiceWindow(now time.Time) bool {
	if c.LastCustomerMessageAt == nil {
		return false
	}
	return now.Sub(*c.LastCustomerMessageAt) <= ServiceWindow
}

func (s ConversationStatus) CanTransition(to ConversationStatus) bool {
	switch s {
	case ConversationActive:
		return to == ConversationPending || to == ConversationResolved
	case ConversationPending:
		return to == ConversationActive || to == ConversationResolved
	case ConversationResolved:
		// only through an explicit reopen
		return to == ConversationActive
	}
	return false
}

// ConversationFilter controls List queries.
type ConversationFilter struct {
	WorkspaceID    *int64
	PhoneNumberID  *int64
	Statuses       []ConversationStatus
	AssignedUserID *int64
	AssignedTeamID *int64
	Limit          int
	Offset         int
	Desc           bool
}
