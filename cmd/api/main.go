package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/waplatform/messaging-core/internal/config"
	gateway "github.com/waplatform/messaging-core/internal/gateways"
	"github.com/waplatform/messaging-core/internal/handlers"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/internal/secrets"
	"github.com/waplatform/messaging-core/internal/services"
	"github.com/waplatform/messaging-core/internal/webhook"
	xhttp "github.com/waplatform/messaging-core/pkg/http"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed creating metrics registry", "error", err)
		return
	}

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
	conversationRepo := repository.NewConversationRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	phoneNumberRepo := repository.NewPhoneNumberRepository(db)
	accountRepo := repository.NewBusinessAccountRepository(db)
	optInRepo := repository.NewOptInRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	recipientRepo := repository.NewCampaignRecipientRepository(db)
	ruleRepo := repository.NewAutomationRuleRepository(db)
	alertRepo := repository.NewRiskAlertRepository(db)

	tokens, err := secrets.New(config.Get().CredentialKey, accountRepo)
	if err != nil {
		logger.Error("failed opening credential store", "error", err)
		return
	}

	// services
	messageService := services.NewMessageService(messageRepo, conversationRepo, templateRepo, phoneNumberRepo, tokens, platform)
	conversationService := services.NewConversationService(conversationRepo)
	templateService := services.NewTemplateService(templateRepo, phoneNumberRepo, accountRepo, tokens, platform)
	optInService := services.NewOptInService(optInRepo)
	campaignService := services.NewCampaignService(campaignRepo, recipientRepo, optInRepo, templateRepo)

	location, err := time.LoadLocation(config.Get().BusinessTimezone)
	if err != nil {
		logger.Error("unknown business timezone, using UTC", "timezone", config.Get().BusinessTimezone)
		location = time.UTC
	}
	automationService := services.NewAutomationService(ruleRepo, conversationRepo, messageRepo, messageService, services.BusinessHours{
		OpenHour:  config.Get().BusinessOpenHour,
		CloseHour: config.Get().BusinessCloseHour,
		Location:  location,
	})

	// webhook ingest
	verifier := webhook.NewVerifier(config.Get().WebhookAppSecret, config.Get().WebhookVerifyToken)
	tracker := webhook.NewTracker(messageRepo, recipientRepo, campaignRepo, conversationRepo, phoneNumberRepo, accountRepo, redisAdap)
	tracker.SetInboundHook(automationService)

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterMessageRoutes(g, handlers.NewMessageHandler(messageService))
	handlers.RegisterConversationRoutes(g, handlers.NewConversationHandler(conversationService))
	handlers.RegisterTemplateRoutes(g, handlers.NewTemplateHandler(templateService))
	handlers.RegisterCampaignRoutes(g, handlers.NewCampaignHandler(campaignService))
	handlers.RegisterOptInRoutes(g, handlers.NewOptInHandler(optInService))
	handlers.RegisterAutomationRoutes(g, handlers.NewAutomationHandler(automationService))
	handlers.RegisterAlertRoutes(g, handlers.NewAlertHandler(alertRepo))
	handlers.RegisterWebhookRoutes(g, handlers.NewWebhookHandler(tracker, verifier))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.Pinger{
		"redis": redisPinger{redisAdap},
	}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

type redisPinger struct {
	adapter redis.RedisAdapter
}

func (p redisPinger) Ping() error {
	return p.adapter.Client().Ping(context.Background()).Err()
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
