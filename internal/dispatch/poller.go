package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
)

type CampaignPollRepository interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error)
	FindSending(ctx context.Context) ([]*model.Campaign, error)
	UpdateStatus(ctx context.Context, id int64, to model.CampaignStatus) error
}

type RecipientPollRepository interface {
	ListPending(ctx context.Context, campaignID int64, limit int) ([]*model.CampaignRecipient, error)
	OpenCount(ctx context.Context, campaignID int64) (int64, error)
}

type JobPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type PollerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Poller is the campaign-side half of the dispatcher. Each tick it promotes
// due campaigns to sending, fans their pending recipients out onto the
// queue, and completes campaigns with no open recipients left. Multiple
// instances can run at once: the scheduled-to-sending transition admits a
// single winner and the per-recipient idempotency lock covers the rest.
type Poller struct {
	campaigns  CampaignPollRepository
	recipients RecipientPollRepository
	publisher  JobPublisher
	config     PollerConfig
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

func NewPoller(campaigns CampaignPollRepository, recipients RecipientPollRepository, publisher JobPublisher, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &Poller{
		campaigns:  campaigns,
		recipients: recipients,
		publisher:  publisher,
		config:     config,
	}
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.Tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.Info("Campaign poller started", "interval", p.config.Interval, "batch_size", p.config.BatchSize)
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	logger.Info("Campaign poller stopped")
}

// Tick runs one poll pass. Exported so tests and the CLI can drive it
// without the ticker.
func (p *Poller) Tick(ctx context.Context) {
	p.promoteDue(ctx)
	p.sweepSending(ctx)
}

func (p *Poller) promoteDue(ctx context.Context) {
	due, err := p.campaigns.FindDue(ctx, time.Now().UTC(), p.config.BatchSize)
	if err != nil {
		logger.Error("Failed to poll due campaigns", "error", err)
		return
	}
	for _, c := range due {
		err := p.campaigns.UpdateStatus(ctx, c.ID, model.CampaignSending)
		if err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				// another instance claimed it first
				continue
			}
			logger.Error("Failed to start campaign", "campaign_id", c.ID, "error", err)
			continue
		}
		logger.Info("Campaign started", "campaign_id", c.ID, "name", c.Name)
		p.enqueuePending(ctx, c.ID)
	}
}

// sweepSending re-enqueues recipients still pending (quota deferrals, missed
// deliveries) and closes out campaigns with nothing open.
func (p *Poller) sweepSending(ctx context.Context) {
	sending, err := p.campaigns.FindSending(ctx)
	if err != nil {
		logger.Error("Failed to poll sending campaigns", "error", err)
		return
	}
	for _, c := range sending {
		open, err := p.recipients.OpenCount(ctx, c.ID)
		if err != nil {
			logger.Error("Failed to count open recipients", "campaign_id", c.ID, "error", err)
			continue
		}
		if open == 0 {
			if err := p.campaigns.UpdateStatus(ctx, c.ID, model.CampaignCompleted); err != nil {
				if !errors.Is(err, repository.ErrInvalidTransition) {
					logger.Error("Failed to complete campaign", "campaign_id", c.ID, "error", err)
				}
				continue
			}
			logger.Info("Campaign completed", "campaign_id", c.ID, "name", c.Name)
			continue
		}
		p.enqueuePending(ctx, c.ID)
	}
}

func (p *Poller) enqueuePending(ctx context.Context, campaignID int64) {
	pending, err := p.recipients.ListPending(ctx, campaignID, p.config.BatchSize)
	if err != nil {
		logger.Error("Failed to list pending recipients", "campaign_id", campaignID, "error", err)
		return
	}
	enqueued := 0
	for _, r := range pending {
		_, err := p.publisher.PublishJSON(ctx, Job{CampaignID: campaignID, RecipientID: r.ID}, map[string]string{
			"campaign_id": strconv.FormatInt(campaignID, 10),
		})
		if err != nil {
			logger.Error("Failed to enqueue recipient", "campaign_id", campaignID, "recipient_id", r.ID, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		logger.Info("Recipients enqueued", "campaign_id", campaignID, "count", enqueued)
	}
}
