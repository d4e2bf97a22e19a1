package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/waplatform/messaging-core/internal/model"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/logger"
)

type AccountDirectory interface {
	ListActive(ctx context.Context) ([]*model.BusinessAccount, error)
	UpdateQuality(ctx context.Context, id int64, q model.QualityRating) error
}

type PhoneNumberDirectory interface {
	ListByAccount(ctx context.Context, accountID int64) ([]*model.PhoneNumber, error)
}

type StatsSource interface {
	OutboundStatsSince(ctx context.Context, since time.Time) ([]repository.OutboundStats, error)
}

type AlertSink interface {
	CreateIfAbsent(ctx context.Context, alert *model.AccountRiskAlert) (*model.AccountRiskAlert, bool, error)
}

type MonitorConfig struct {
	Interval time.Duration

	// Window is how far back outbound failure ratios are aggregated.
	Window time.Duration

	// FailureThreshold is the failed/total ratio that opens an alert.
	FailureThreshold float64

	// MinSample suppresses ratio alerts on numbers with too few sends to
	// mean anything.
	MinSample int64
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:         5 * time.Minute,
		Window:           24 * time.Hour,
		FailureThreshold: 0.10,
		MinSample:        50,
	}
}

// Monitor derives account risk alerts from message outcomes and recorded
// quality ratings. It only observes message and campaign state; the alert
// table is the one thing it writes, plus the account-level quality rollup.
type Monitor struct {
	accounts     AccountDirectory
	phoneNumbers PhoneNumberDirectory
	stats        StatsSource
	alerts       AlertSink
	config       MonitorConfig
	wg           sync.WaitGroup
	cancel       context.CancelFunc
}

func NewMonitor(
	accounts AccountDirectory,
	phoneNumbers PhoneNumberDirectory,
	stats StatsSource,
	alerts AlertSink,
	config MonitorConfig,
) *Monitor {
	defaults := DefaultMonitorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.MinSample <= 0 {
		config.MinSample = defaults.MinSample
	}
	return &Monitor{
		accounts:     accounts,
		phoneNumbers: phoneNumbers,
		stats:        stats,
		alerts:       alerts,
		config:       config,
	}
}

func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.Info("Compliance monitor started",
		"interval", m.config.Interval,
		"window", m.config.Window,
		"failure_threshold", m.config.FailureThreshold)
}

func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	logger.Info("Compliance monitor stopped")
}

// Sweep runs one evaluation pass over all active accounts. Exported so
// tests and the CLI can drive it without the ticker.
func (m *Monitor) Sweep(ctx context.Context) {
	accounts, err := m.accounts.ListActive(ctx)
	if err != nil {
		logger.Error("Failed to list accounts for compliance sweep", "error", err)
		return
	}

	since := time.Now().UTC().Add(-m.config.Window)
	stats, err := m.stats.OutboundStatsSince(ctx, since)
	if err != nil {
		logger.Error("Failed to aggregate outbound stats", "error", err)
		return
	}
	byNumber := make(map[int64]repository.OutboundStats, len(stats))
	for _, s := range stats {
		byNumber[s.PhoneNumberID] = s
	}

	for _, account := range accounts {
		m.evaluateAccount(ctx, account, byNumber)
	}
}

func (m *Monitor) evaluateAccount(ctx context.Context, account *model.BusinessAccount, byNumber map[int64]repository.OutboundStats) {
	numbers, err := m.phoneNumbers.ListByAccount(ctx, account.ID)
	if err != nil {
		logger.Error("Failed to list phone numbers", "account_id", account.ID, "error", err)
		return
	}

	worst := model.QualityGreen
	failing := false

	for _, number := range numbers {
		if number.Quality != model.QualityUnknown && number.Quality.WorseThan(worst) {
			worst = number.Quality
		}
		if alert := m.qualityAlert(account, number); alert != nil {
			m.raise(ctx, alert)
		}
		if alert := m.failureAlert(account, number, byNumber[number.ID]); alert != nil {
			failing = true
			m.raise(ctx, alert)
		}
	}

	// Roll the worst number rating up to the account so list views and the
	// suspension check see one figure.
	if len(numbers) > 0 && worst != account.Quality {
		if err := m.accounts.UpdateQuality(ctx, account.ID, worst); err != nil {
			logger.Error("Failed to roll up account quality", "account_id", account.ID, "error", err)
		}
	}

	if alert := suspensionAlert(account, worst, failing); alert != nil {
		m.raise(ctx, alert)
	}
}

// qualityAlert opens an alert when a number's recorded rating has sunk
// below green.
func (m *Monitor) qualityAlert(account *model.BusinessAccount, number *model.PhoneNumber) *model.AccountRiskAlert {
	var severity model.AlertSeverity
	switch number.Quality {
	case model.QualityYellow:
		severity = model.SeverityMedium
	case model.QualityRed:
		severity = model.SeverityHigh
	default:
		return nil
	}
	id := number.ID
	return &model.AccountRiskAlert{
		AccountID:     account.ID,
		PhoneNumberID: &id,
		Type:          model.AlertQualityDowngrade,
		Severity:      severity,
		Detail:        fmt.Sprintf("phone number %s quality rating is %s", number.DisplayNumber, number.Quality),
	}
}

// failureAlert opens an alert when the failure ratio over the window
// crosses the threshold, given enough sends to judge.
func (m *Monitor) failureAlert(account *model.BusinessAccount, number *model.PhoneNumber, stats repository.OutboundStats) *model.AccountRiskAlert {
	if stats.Total < m.config.MinSample {
		return nil
	}
	ratio := float64(stats.Failed) / float64(stats.Total)
	if ratio < m.config.FailureThreshold {
		return nil
	}

	severity := model.SeverityMedium
	switch {
	case ratio >= 0.5:
		severity = model.SeverityCritical
	case ratio >= 2*m.config.FailureThreshold:
		severity = model.SeverityHigh
	}

	id := number.ID
	return &model.AccountRiskAlert{
		AccountID:     account.ID,
		PhoneNumberID: &id,
		Type:          model.AlertHighFailureRate,
		Severity:      severity,
		Detail: fmt.Sprintf("phone number %s failed %d of %d outbound messages (%.0f%%) over the window",
			number.DisplayNumber, stats.Failed, stats.Total, ratio*100),
	}
}

// suspensionAlert flags accounts at risk of platform suspension: a red
// rating combined with a live failure alert, or a platform restriction
// already in force.
func suspensionAlert(account *model.BusinessAccount, worst model.QualityRating, failing bool) *model.AccountRiskAlert {
	restricted := account.Status == model.AccountStatusRestricted
	if !restricted && !(worst == model.QualityRed && failing) {
		return nil
	}
	detail := "account quality is red with a failure rate above threshold"
	if restricted {
		detail = "account is restricted by the platform"
	}
	return &model.AccountRiskAlert{
		AccountID: account.ID,
		Type:      model.AlertSuspensionRisk,
		Severity:  model.SeverityCritical,
		Detail:    detail,
	}
}

func (m *Monitor) raise(ctx context.Context, alert *model.AccountRiskAlert) {
	stored, created, err := m.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		logger.Error("Failed to record risk alert",
			"account_id", alert.AccountID, "type", string(alert.Type), "error", err)
		return
	}
	if created {
		logger.Warn("Risk alert opened",
			"alert_id", stored.ID,
			"account_id", stored.AccountID,
			"type", string(stored.Type),
			"severity", string(stored.Severity),
			"detail", stored.Detail)
	}
}
