package model

import (
	"errors"
	"time"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeTemplate MessageType = "template"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVideo    MessageType = "video"
)

// MessageStatus is the delivery lifecycle state of a message.
type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// Rank orders the happy-path states: queued < sent < delivered < read.
// Failed has no rank; it is handled separately.
func (s MessageStatus) Rank() int {
	switch s {
	case MessageStatusQueued:
		return 0
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return -1
}

func (s MessageStatus) Terminal() bool {
	return s == MessageStatusRead || s == MessageStatusFailed
}

// CanTransition reports whether a status update to `to` is forward progress.
// Webhook transport gives no ordering guarantee, so a reported status is
// applied only if it ranks above the recorded one. Failed is reachable from
// queued or sent; once failed (or read) the message never moves again.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == MessageStatusFailed {
		return s == MessageStatusQueued || s == MessageStatusSent
	}
	return to.Rank() > s.Rank()
}

type Message struct {
	ID              int64            `json:"id"`
	ConversationID  int64            `json:"conversation_id"`
	Direction       MessageDirection `json:"direction"`
	Type            MessageType      `json:"type"`
	Status          MessageStatus    `json:"status"`
	Wamid           string           `json:"wamid,omitempty"`
	Body            string           `json:"body,omitempty"`
	MediaURL        string           `json:"media_url,omitempty"`
	TemplateID      *int64           `json:"template_id,omitempty"`
	ErrorCode       string           `json:"error_code,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	PlatformTime    *time.Time       `json:"platform_timestamp,omitempty"`
	StatusUpdatedAt time.Time        `json:"status_updated_at"`
	CreatedAt       time.Time        `json:"created_at"`
}

// SendMessageRequest is the input for an outbound send.
type SendMessageRequest struct {
	ConversationID int64
	Type           MessageType
	Body           string
	MediaURL       string
	TemplateID     *int64
}

func (p SendMessageRequest) Validate() error {
	if p.ConversationID == 0 {
		return errors.New("conversation_id is required")
	}
	switch p.Type {
	case MessageTypeText:
		if p.Body == "" {
			return errors.New("body is required for text messages")
		}
	case MessageTypeTemplate:
		if p.TemplateID == nil {
			return errors.New("template_id is required for template messages")
		}
	case MessageTypeImage, MessageTypeDocument, MessageTypeAudio, MessageTypeVideo:
		if p.MediaURL == "" {
			return errors.New("media_url is required for media messages")
		}
	default:
		return errors.New("unknown message type")
	}
	return nil
}

// MessageFilter controls List queries.
type MessageFilter struct {
	ConversationID *int64
	Direction      *MessageDirection
	Statuses       []MessageStatus
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
	Desc           bool
}
