package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	gateway "github.com/waplatform/messaging-core/internal/gateways"
	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/queue"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
	"github.com/waplatform/messaging-core/pkg/prom"
)

// Job is the unit of work the poller enqueues, one per campaign recipient.
type Job struct {
	CampaignID  int64 `json:"campaign_id"`
	RecipientID int64 `json:"recipient_id"`
}

type RecipientRepository interface {
	GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error)
	MarkSent(ctx context.Context, id int64, wamid string) error
	MarkFailed(ctx context.Context, id int64, errCode, errMsg string) error
	MarkSkipped(ctx context.Context, id int64) error
}

type CampaignStore interface {
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	IncrementCounter(ctx context.Context, id int64, column string) error
}

type ConsentChecker interface {
	IsActive(ctx context.Context, workspaceID int64, phone string) (bool, error)
}

type QuotaReserver interface {
	GetByID(ctx context.Context, id int64) (*model.PhoneNumber, error)
	ReserveSend(ctx context.Context, id int64) error
}

type TemplateStore interface {
	GetByID(ctx context.Context, id int64) (*model.Template, error)
}

type TokenSource interface {
	Open(ctx context.Context, accountID int64) (string, error)
}

type TemplateSender interface {
	SendTemplate(ctx context.Context, token, platformPhoneID, to, name, language string, components []gateway.TemplateComponent) (string, error)
}

// RecipientProcessor delivers one campaign recipient per queue message.
// Consent and quota are re-checked here, at send time, because both can
// change between audience build and dispatch.
type RecipientProcessor struct {
	recipients   RecipientRepository
	campaigns    CampaignStore
	optIns       ConsentChecker
	phoneNumbers QuotaReserver
	templates    TemplateStore
	tokens       TokenSource
	platform     TemplateSender
	idempotency  *IdempotencyService
}

func NewRecipientProcessor(
	recipients RecipientRepository,
	campaigns CampaignStore,
	optIns ConsentChecker,
	phoneNumbers QuotaReserver,
	templates TemplateStore,
	tokens TokenSource,
	platform TemplateSender,
	idempotency *IdempotencyService,
) *RecipientProcessor {
	return &RecipientProcessor{
		recipients:   recipients,
		campaigns:    campaigns,
		optIns:       optIns,
		phoneNumbers: phoneNumbers,
		templates:    templates,
		tokens:       tokens,
		platform:     platform,
		idempotency:  idempotency,
	}
}

func (p *RecipientProcessor) GetType() string {
	return "campaign_recipient"
}

// Process handles one recipient. Return values follow queue semantics: nil
// ACKs the message, an error leaves it pending for redelivery.
func (p *RecipientProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var job Job
	if err := json.Unmarshal(queueMessage.Data, &job); err != nil {
		logger.Error("Failed to unmarshal dispatch job", "error", err)
		return err // move to DLQ after retries
	}

	recipientID := strconv.FormatInt(job.RecipientID, 10)

	dc, err := p.idempotency.AcquireDispatchLock(ctx, recipientID)
	if err != nil {
		if errors.Is(err, ErrAlreadyDispatched) {
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// Give up on this recipient and count it against the campaign
			p.failRecipient(ctx, job, "", "dispatch retries exhausted")
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		return err
	}
	defer func() {
		if dc.lockAcquired {
			p.idempotency.ReleaseLock(ctx, dc)
		}
	}()

	recipient, err := p.recipients.GetByID(ctx, job.RecipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Error("Dispatch job for unknown recipient", "recipient_id", recipientID)
			return nil
		}
		return err
	}
	if recipient.Status != model.RecipientPending {
		// already handled by an earlier delivery of this job
		return p.idempotency.MarkDispatched(ctx, dc)
	}

	campaign, err := p.campaigns.GetByID(ctx, job.CampaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignSending {
		// Cancelled (or otherwise stopped) mid-flight; drop without sending.
		logger.Info("Dropping recipient of inactive campaign",
			"campaign_id", campaign.ID, "recipient_id", recipientID, "campaign_status", string(campaign.Status))
		return p.idempotency.MarkDispatched(ctx, dc)
	}

	// Consent re-check: an opt-out after the audience build wins.
	active, err := p.optIns.IsActive(ctx, campaign.WorkspaceID, recipient.PhoneNumber)
	if err != nil {
		return err
	}
	if !active {
		if err := p.recipients.MarkSkipped(ctx, job.RecipientID); err != nil && !errors.Is(err, repository.ErrInvalidTransition) {
			return err
		}
		p.countOnce(ctx, campaign.ID, "skipped_count")
		logger.Info("Recipient skipped, consent withdrawn", "campaign_id", campaign.ID, "recipient_id", recipientID)
		return p.idempotency.MarkDispatched(ctx, dc)
	}

	// Quota: a reservation failure leaves the recipient pending; the next
	// poller sweep re-enqueues it after the daily reset.
	if err := p.phoneNumbers.ReserveSend(ctx, campaign.PhoneNumberID); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			logger.Warn("Daily quota exhausted, deferring recipient",
				"campaign_id", campaign.ID, "recipient_id", recipientID)
			return err
		}
		if errors.Is(err, repository.ErrPhoneNumberInactive) {
			p.failRecipient(ctx, job, "", "sender phone number inactive")
			return p.idempotency.MarkDispatched(ctx, dc)
		}
		return err
	}

	number, err := p.phoneNumbers.GetByID(ctx, campaign.PhoneNumberID)
	if err != nil {
		return err
	}
	tmpl, err := p.templates.GetByID(ctx, campaign.TemplateID)
	if err != nil {
		return err
	}
	token, err := p.tokens.Open(ctx, number.AccountID)
	if err != nil {
		return err
	}

	start := time.Now()
	wamid, err := p.platform.SendTemplate(ctx, token, number.PlatformID, recipient.PhoneNumber, tmpl.Name, tmpl.Language, nil)
	if err != nil {
		var platformErr *gateway.PlatformError
		if errors.As(err, &platformErr) && !platformErr.Transient() {
			// Permanent rejection: record and move on, no retry.
			prom.AddCampaignSendDuration(time.Since(start).Seconds(), "rejected")
			p.failRecipient(ctx, job, strconv.Itoa(platformErr.Code), platformErr.Message)
			return p.idempotency.MarkDispatched(ctx, dc)
		}
		prom.AddCampaignSendDuration(time.Since(start).Seconds(), "error")
		logger.Error("Failed to send campaign message", "recipient_id", recipientID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, dc, err); markErr != nil {
			logger.Error("Failed to mark dispatch failure", "recipient_id", recipientID, "error", markErr)
		}
		return err
	}
	prom.AddCampaignSendDuration(time.Since(start).Seconds(), "sent")

	if err := p.recipients.MarkSent(ctx, job.RecipientID, wamid); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			// lost a race with a duplicate delivery that already sent it
			return p.idempotency.MarkDispatched(ctx, dc)
		}
		logger.Error("Sent but failed to record", "recipient_id", recipientID, "wamid", wamid, "error", err)
		return p.idempotency.MarkDispatched(ctx, dc)
	}
	p.countOnce(ctx, campaign.ID, "sent_count")

	logger.Info("Campaign message sent",
		"campaign_id", campaign.ID,
		"recipient_id", recipientID,
		"wamid", wamid,
		"retry_count", dc.RetryCount)

	return p.idempotency.MarkDispatched(ctx, dc)
}

func (p *RecipientProcessor) failRecipient(ctx context.Context, job Job, code, message string) {
	if err := p.recipients.MarkFailed(ctx, job.RecipientID, code, message); err != nil {
		if !errors.Is(err, repository.ErrInvalidTransition) {
			logger.Error("Failed to record recipient failure", "recipient_id", job.RecipientID, "error", err)
		}
		return
	}
	p.countOnce(ctx, job.CampaignID, "failed_count")
}

// countOnce bumps a campaign counter and only logs on failure; counters are
// best-effort rollups, recipient rows are the source of truth.
func (p *RecipientProcessor) countOnce(ctx context.Context, campaignID int64, column string) {
	if err := p.campaigns.IncrementCounter(ctx, campaignID, column); err != nil {
		logger.Error("Failed to bump campaign counter", "campaign_id", campaignID, "counter", column, "error", err)
	}
}
