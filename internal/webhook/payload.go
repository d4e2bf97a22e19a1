package webhook

import (
	"strconv"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
)

// Payload is the top-level webhook delivery. One delivery can batch events
// for several phone numbers of the same business account.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`

	// phone_number_quality_update events carry these instead.
	DisplayPhoneNumber string `json:"display_phone_number,omitempty"`
	Event              string `json:"event,omitempty"`
	CurrentLimit       string `json:"current_limit,omitempty"`
}

// QualityRating maps a quality-update event onto a rating. FLAGGED means
// the number went red, WARNED yellow, UNFLAGGED back to green.
func (v ChangeValue) QualityRating() (model.QualityRating, bool) {
	switch v.Event {
	case "FLAGGED":
		return model.QualityRed, true
	case "WARNED":
		return model.QualityYellow, true
	case "UNFLAGGED":
		return model.QualityGreen, true
	}
	return "", false
}

// MessagingTier maps the current_limit field of a quality update.
func (v ChangeValue) MessagingTier() (model.MessagingTier, bool) {
	switch v.CurrentLimit {
	case "TIER_250":
		return model.TierUnverified, true
	case "TIER_1K":
		return model.Tier1K, true
	case "TIER_10K":
		return model.Tier10K, true
	case "TIER_100K":
		return model.Tier100K, true
	case "TIER_UNLIMITED":
		return model.TierUnlimited, true
	}
	return "", false
}

// Metadata identifies the receiving phone number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

type ContactProfile struct {
	Name string `json:"name"`
}

// Message is an inbound customer message.
type Message struct {
	From      string       `json:"from"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
	Image     *MediaRef    `json:"image,omitempty"`
	Document  *MediaRef    `json:"document,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type MediaRef struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Status is a delivery status update for an outbound message. Deliveries
// are at-least-once and unordered; the tracker sorts that out.
type Status struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Timestamp   string        `json:"timestamp"`
	RecipientID string        `json:"recipient_id"`
	Errors      []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// PlatformTime converts the unix-seconds string the platform sends. A zero
// time with ok=false means the field was absent or malformed.
func (s Status) PlatformTime() (time.Time, bool) {
	secs, err := strconv.ParseInt(s.Timestamp, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

func (m Message) PlatformTime() (time.Time, bool) {
	secs, err := strconv.ParseInt(m.Timestamp, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// MessageStatus maps the wire status name onto the delivery state machine.
func (s Status) MessageStatus() (model.MessageStatus, bool) {
	switch s.Status {
	case "sent":
		return model.MessageStatusSent, true
	case "delivered":
		return model.MessageStatusDelivered, true
	case "read":
		return model.MessageStatusRead, true
	case "failed":
		return model.MessageStatusFailed, true
	}
	return "", false
}

// RecipientStatus maps the wire status onto the campaign recipient machine.
func (s Status) RecipientStatus() (model.RecipientStatus, bool) {
	switch s.Status {
	case "sent":
		return model.RecipientSent, true
	case "delivered":
		return model.RecipientDelivered, true
	case "read":
		return model.RecipientRead, true
	case "failed":
		return model.RecipientFailed, true
	}
	return "", false
}

// FirstError returns the leading error detail on a failed status.
func (s Status) FirstError() (code, message string) {
	if len(s.Errors) == 0 {
		return "", ""
	}
	e := s.Errors[0]
	msg := e.Message
	if msg == "" {
		msg = e.Title
	}
	return strconv.Itoa(e.Code), msg
}

// MessageType maps the wire message type; unsupported types fall back to
// text so the conversation still records that something arrived.
func (m Message) MessageType() model.MessageType {
	switch m.Type {
	case "text":
		return model.MessageTypeText
	case "image":
		return model.MessageTypeImage
	case "document":
		return model.MessageTypeDocument
	case "audio":
		return model.MessageTypeAudio
	case "video":
		return model.MessageTypeVideo
	}
	return model.MessageTypeText
}

// Body extracts the display text for the stored message.
func (m Message) Body() string {
	if m.Text != nil {
		return m.Text.Body
	}
	if m.Image != nil {
		return m.Image.Caption
	}
	if m.Document != nil {
		return m.Document.Caption
	}
	return ""
}
