package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/waplatform/messaging-core/internal/config"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/internal/secrets"
	"github.com/waplatform/messaging-core/pkg/logger"
	"github.com/waplatform/messaging-core/pkg/pg"
)

// Subcommands:
//
//	main.go migrate --dir=./migrations
//	main.go quota-reset
//	main.go seal-token --account=<id> --token=<platform token>
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
	}

	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	switch subcommand() {
	case "quota-reset":
		runQuotaReset(pgConf)
	case "seal-token":
		runSealToken(pgConf)
	default:
		err = pg.Migrate(pgConf, getMigrationPath())
		if err != nil {
			logger.Error("migration: error running migrations", "error", err)
		}
	}
}

// runQuotaReset zeroes every phone number's daily send counter. Meant to be
// run from cron at each number's local midnight.
func runQuotaReset(pgConf pg.Config) {
	db, err := pg.CreateReadWrite(pgConf, pgConf, false)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	repo := repository.NewPhoneNumberRepository(db)
	n, err := repo.ResetAllDaily(context.Background())
	if err != nil {
		logger.Error("quota-reset failed", "error", err)
		return
	}
	logger.Info("Daily quotas reset", "phone_numbers", n)
}

// runSealToken encrypts a platform access token and stores it on the
// business account. The plaintext token never touches the database or logs.
func runSealToken(pgConf pg.Config) {
	accountID, err := strconv.ParseInt(argValue("--account="), 10, 64)
	if err != nil {
		logger.Error("seal-token: --account=<id> is required")
		return
	}
	token := argValue("--token=")
	if token == "" {
		logger.Error("seal-token: --token=<platform token> is required")
		return
	}

	db, err := pg.CreateReadWrite(pgConf, pgConf, false)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	store, err := secrets.New(config.Get().CredentialKey, repository.NewBusinessAccountRepository(db))
	if err != nil {
		logger.Error("failed opening credential store", "error", err)
		return
	}
	if err := store.Seal(context.Background(), accountID, token); err != nil {
		logger.Error("seal-token failed", "error", err)
		return
	}
	logger.Info("Credential sealed", "account_id", accountID)
}

func subcommand() string {
	for _, v := range os.Args[1:] {
		if !strings.HasPrefix(v, "--") {
			return v
		}
	}
	return "migrate"
}

func argValue(prefix string) string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

func getEnvPath() string {
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
	if _, err := os.Open(".env"); err != nil {
		logger.Error("failed to open the passed env file, got error" + err.Error())
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--dir=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Open("./migrations"); err != nil {
		logger.Error("failed to open the passed env file, got error" + err.Error())
		return ""
	}
	return "./migrations"
}
