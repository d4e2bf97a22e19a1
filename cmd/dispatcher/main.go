package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/waplatform/messaging-core/internal/compliance"
	"github.com/waplatform/messaging-core/internal/config"
	"github.com/waplatform/messaging-core/internal/dispatch"
	gateway "github.com/waplatform/messaging-core/internal/gateways"
	"github.com/waplatform/messaging-core/internal/queue"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/internal/secrets"
	"github.com/waplatform/messaging-core/pkg/logger"
	"github.com/waplatform/messaging-core/pkg/pg"
	"github.com/waplatform/messaging-core/pkg/prom"
	"github.com/waplatform/messaging-core/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	platform, err := gateway.NewClient(&gateway.Config{
		BaseURL:    config.Get().PlatformBaseUrl,
		Timeout:    config.Get().PlatformTimeout,
		MaxRetries: config.Get().PlatformMaxRetries,
	})
	if err != nil {
		logger.Error("failed creating platform client", "error", err)
		return
	}

	messageRepo := repository.NewMessageRepository(db)
	phoneNumberRepo := repository.NewPhoneNumberRepository(db)
	accountRepo := repository.NewBusinessAccountRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	optInRepo := repository.NewOptInRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	recipientRepo := repository.NewCampaignRecipientRepository(db)
	alertRepo := repository.NewRiskAlertRepository(db)

	tokens, err := secrets.New(config.Get().CredentialKey, accountRepo)
	if err != nil {
		logger.Error("failed opening credential store", "error", err)
		return
	}

	service, err := dispatch.NewDispatcherService(redisAdap)
	if err != nil {
		logger.Error("failed creating dispatcher", "error", err)
		return
	}
	idempotency := dispatch.NewIdempotencyService(redisAdap, dispatch.DefaultIdempotencyConfig())
	service.RegisterProcessor(dispatch.NewRecipientProcessor(
		recipientRepo,
		campaignRepo,
		optInRepo,
		phoneNumberRepo,
		templateRepo,
		tokens,
		platform,
		idempotency,
	))

	// The poller publishes onto the same stream the consumers read; a
	// publish-only queue handle is enough here.
	jobs, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:          config.Get().QueueName,
		ConsumerGroup: config.Get().QueueConsumerGroup,
		ConsumerName:  config.Get().QueueConsumerName + "-poller",
		MaxLen:        config.Get().QueueMaxLen,
	})
	if err != nil {
		logger.Error("failed creating job queue", "error", err)
		return
	}
	poller := dispatch.NewPoller(campaignRepo, recipientRepo, jobs, dispatch.PollerConfig{
		Interval:  config.Get().DispatchPollInterval,
		BatchSize: config.Get().DispatchBatchSize,
	})

	monitor := compliance.NewMonitor(accountRepo, phoneNumberRepo, messageRepo, alertRepo, compliance.MonitorConfig{
		Interval:         config.Get().ComplianceCheckInterval,
		Window:           config.Get().ComplianceWindow,
		FailureThreshold: config.Get().ComplianceFailureThreshold,
		MinSample:        int64(config.Get().ComplianceMinSample),
	})

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed creating metrics registry", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		if err := service.Start(); err != nil {
			logger.Error("failed to start dispatcher", "error", err)
		}
	}()
	poller.Start()
	monitor.Start()

	select {
	case <-c:
		poller.Stop()
		monitor.Stop()
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
