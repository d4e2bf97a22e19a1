package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
	"github.com/waplatform/messaging-core/pkg/prom"
	"github.com/waplatform/messaging-core/pkg/redis"
)

const statusSeenTTL = 24 * time.Hour

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) (*model.Message, error)
	ApplyStatus(ctx context.Context, wamid string, to model.MessageStatus, platformTime *time.Time, errCode, errMsg string) (*model.Message, error)
}

type RecipientRepository interface {
	ApplyStatus(ctx context.Context, wamid string, to model.RecipientStatus, errCode, errMsg string) (*model.CampaignRecipient, error)
}

type CampaignRepository interface {
	IncrementCounter(ctx context.Context, id int64, column string) error
}

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, workspaceID, phoneNumberID int64, customerPhone, customerName string) (*model.Conversation, error)
	RecordCustomerMessage(ctx context.Context, id int64, at time.Time) error
}

type PhoneNumberRepository interface {
	GetByPlatformID(ctx context.Context, platformID string) (*model.PhoneNumber, error)
	GetByDisplayNumber(ctx context.Context, display string) (*model.PhoneNumber, error)
	UpdateQuality(ctx context.Context, id int64, q model.QualityRating) error
	SetDailyLimit(ctx context.Context, id int64, limit int) error
}

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*model.BusinessAccount, error)
}

// InboundHook receives each stored inbound message, after the conversation
// bookkeeping is done. The automation evaluator hangs off this.
type InboundHook interface {
	OnInbound(ctx context.Context, conv *model.Conversation, msg *model.Message)
}

// Tracker turns raw webhook deliveries into state changes. It is the only
// writer of delivery statuses, and it assumes nothing about ordering: the
// platform redelivers, batches, and reorders events freely.
type Tracker struct {
	messages      MessageRepository
	recipients    RecipientRepository
	campaigns     CampaignRepository
	conversations ConversationRepository
	phoneNumbers  PhoneNumberRepository
	accounts      AccountRepository
	cache         redis.RedisAdapter
	hook          InboundHook
}

func NewTracker(
	messages MessageRepository,
	recipients RecipientRepository,
	campaigns CampaignRepository,
	conversations ConversationRepository,
	phoneNumbers PhoneNumberRepository,
	accounts AccountRepository,
	cache redis.RedisAdapter,
) *Tracker {
	return &Tracker{
		messages:      messages,
		recipients:    recipients,
		campaigns:     campaigns,
		conversations: conversations,
		phoneNumbers:  phoneNumbers,
		accounts:      accounts,
		cache:         cache,
	}
}

// SetInboundHook wires the automation evaluator. Optional; without it
// inbound messages are stored and nothing else happens.
func (t *Tracker) SetInboundHook(hook InboundHook) {
	t.hook = hook
}

// Process walks one webhook delivery. Every event is handled independently;
// a bad event is logged and skipped so one malformed status cannot poison
// the batch. The platform retries the whole delivery on non-2xx, so partial
// failures must not bubble up as errors.
func (t *Tracker) Process(ctx context.Context, payload *Payload) {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			switch change.Field {
			case "messages":
				for _, status := range value.Statuses {
					t.HandleStatus(ctx, status)
				}
				for _, message := range value.Messages {
					t.HandleInbound(ctx, value.Metadata, value.Contacts, message)
				}
			case "phone_number_quality_update":
				t.HandleQualityUpdate(ctx, value)
			}
		}
	}
}

// HandleStatus applies one delivery status event. A redis marker keyed on
// (wamid, status) short-circuits exact redeliveries; out-of-order events
// that slip past the marker are rejected by the monotonic update in the
// repositories, so the marker is an optimization, not the correctness
// boundary.
func (t *Tracker) HandleStatus(ctx context.Context, status Status) {
	msgStatus, ok := status.MessageStatus()
	if !ok {
		logger.Warn("Unknown delivery status", "wamid", status.ID, "status", status.Status)
		return
	}

	if t.seen(status.ID, status.Status) {
		logger.Debug("Duplicate status delivery skipped", "wamid", status.ID, "status", status.Status)
		return
	}
	prom.IncWebhookStatusEvent(status.Status)

	errCode, errMsg := status.FirstError()
	var platformTime *time.Time
	if at, ok := status.PlatformTime(); ok {
		platformTime = &at
	}

	_, err := t.messages.ApplyStatus(ctx, status.ID, msgStatus, platformTime, errCode, errMsg)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStaleStatus):
		logger.Debug("Stale message status discarded", "wamid", status.ID, "status", status.Status)
	case errors.Is(err, repository.ErrNotFound):
		// not a conversation message; campaign sends live in their own table
	default:
		logger.Error("Failed to apply message status", "wamid", status.ID, "status", status.Status, "error", err)
		return
	}

	t.applyRecipientStatus(ctx, status)
}

func (t *Tracker) applyRecipientStatus(ctx context.Context, status Status) {
	recStatus, ok := status.RecipientStatus()
	if !ok || recStatus == model.RecipientSent {
		// sent is recorded synchronously at dispatch time
		return
	}

	errCode, errMsg := status.FirstError()
	recipient, err := t.recipients.ApplyStatus(ctx, status.ID, recStatus, errCode, errMsg)
	switch {
	case err == nil:
		if column, ok := campaignCounterFor(recStatus); ok {
			if err := t.campaigns.IncrementCounter(ctx, recipient.CampaignID, column); err != nil {
				logger.Error("Failed to roll up campaign counter", "campaign_id", recipient.CampaignID, "column", column, "error", err)
			}
		}
	case errors.Is(err, repository.ErrStaleStatus):
		logger.Debug("Stale recipient status discarded", "wamid", status.ID, "status", status.Status)
	case errors.Is(err, repository.ErrNotFound):
		// plain conversation message, no campaign rollup
	default:
		logger.Error("Failed to apply recipient status", "wamid", status.ID, "status", status.Status, "error", err)
	}
}

// campaignCounterFor maps a recipient state onto its campaign rollup
// column. The counter moves exactly once per (wamid, status) because the
// monotonic recipient update admits each status at most once.
func campaignCounterFor(s model.RecipientStatus) (string, bool) {
	switch s {
	case model.RecipientDelivered:
		return "delivered_count", true
	case model.RecipientRead:
		return "read_count", true
	case model.RecipientFailed:
		return "failed_count", true
	}
	return "", false
}

// HandleQualityUpdate records a platform-reported quality or tier change on
// the affected phone number. The compliance monitor picks the new rating up
// on its next pass; nothing is alerted from here.
func (t *Tracker) HandleQualityUpdate(ctx context.Context, value ChangeValue) {
	number, err := t.phoneNumbers.GetByDisplayNumber(ctx, value.DisplayPhoneNumber)
	if err != nil {
		logger.Warn("Quality update for unknown phone number", "display_number", value.DisplayPhoneNumber, "error", err)
		return
	}

	if rating, ok := value.QualityRating(); ok && rating != number.Quality {
		if err := t.phoneNumbers.UpdateQuality(ctx, number.ID, rating); err != nil {
			logger.Error("Failed to update phone number quality", "phone_number_id", number.ID, "error", err)
			return
		}
		logger.Info("Phone number quality updated",
			"phone_number_id", number.ID, "from", string(number.Quality), "to", string(rating))
	}

	if tier, ok := value.MessagingTier(); ok {
		if limit := tier.DailyLimit(); limit != number.DailySendLimit {
			if err := t.phoneNumbers.SetDailyLimit(ctx, number.ID, limit); err != nil {
				logger.Error("Failed to update daily send limit", "phone_number_id", number.ID, "error", err)
				return
			}
			logger.Info("Daily send limit updated", "phone_number_id", number.ID, "limit", limit)
		}
	}
}

// HandleInbound stores a customer message, creating or reopening its
// conversation and restarting the service window.
func (t *Tracker) HandleInbound(ctx context.Context, metadata Metadata, contacts []Contact, message Message) {
	if t.seen(message.ID, "inbound") {
		logger.Debug("Duplicate inbound delivery skipped", "wamid", message.ID)
		return
	}

	number, err := t.phoneNumbers.GetByPlatformID(ctx, metadata.PhoneNumberID)
	if err != nil {
		logger.Error("Inbound message for unknown phone number", "platform_phone_id", metadata.PhoneNumberID, "error", err)
		return
	}

	account, err := t.accounts.GetByID(ctx, number.AccountID)
	if err != nil {
		logger.Error("Inbound message for unknown account", "account_id", number.AccountID, "error", err)
		return
	}

	customerName := ""
	for _, contact := range contacts {
		if contact.WaID == message.From {
			customerName = contact.Profile.Name
			break
		}
	}

	conv, err := t.conversations.FindOrCreate(ctx, account.WorkspaceID, number.ID, message.From, customerName)
	if err != nil {
		logger.Error("Failed to resolve conversation", "customer", message.From, "error", err)
		return
	}

	at, ok := message.PlatformTime()
	if !ok {
		at = time.Now().UTC()
	}
	if err := t.conversations.RecordCustomerMessage(ctx, conv.ID, at); err != nil {
		logger.Error("Failed to record customer message", "conversation_id", conv.ID, "error", err)
		return
	}

	stored, err := t.messages.Create(ctx, &model.Message{
		ConversationID: conv.ID,
		Direction:      model.DirectionInbound,
		Type:           message.MessageType(),
		Status:         model.MessageStatusDelivered,
		Wamid:          message.ID,
		Body:           message.Body(),
		PlatformTime:   &at,
	})
	if err != nil {
		logger.Error("Failed to store inbound message", "wamid", message.ID, "error", err)
		return
	}

	logger.Info("Inbound message stored", "conversation_id", conv.ID, "wamid", message.ID, "type", string(stored.Type))

	if t.hook != nil {
		t.hook.OnInbound(ctx, conv, stored)
	}
}

// seen marks and tests the redelivery cache. Cache trouble means the event
// is treated as new; the database guards still hold.
func (t *Tracker) seen(wamid, status string) bool {
	if t.cache == nil {
		return false
	}
	key := fmt.Sprintf("webhook:seen:%s:%s", wamid, status)
	fresh, err := t.cache.SetNX(key, []byte("1"), statusSeenTTL)
	if err != nil {
		logger.Warn("Webhook dedup cache unavailable", "error", err)
		return false
	}
	return !fresh
}
