package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/waplatform/messaging-core/internal/repository"
	"github.com/waplatform/messaging-core/pkg/pg"
	"github.com/waplatform/messaging-core/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.BusinessAccountEntity{},
		&repository.PhoneNumberEntity{},
		&repository.ConversationEntity{},
		&repository.MessageEntity{},
		&repository.TemplateEntity{},
		&repository.OptInEntity{},
		&repository.CampaignEntity{},
		&repository.CampaignRecipientEntity{},
		&repository.RiskAlertEntity{},
		&repository.AutomationRuleEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestAccount(t *testing.T, db *pg.DB, id, workspaceID int64) *repository.BusinessAccountEntity {
	ctx := context.Background()
	account := &repository.BusinessAccountEntity{
		ID:          id,
		WorkspaceID: workspaceID,
		PlatformID:  RandomPlatformID("waba"),
		Name:        "Test Business",
		Status:      "verified",
		Quality:     "green",
		Tier:        "tier_1k",
	}
	err := db.Write(ctx).Create(account).Error
	require.NoError(t, err)
	return account
}

func CreateTestPhoneNumber(t *testing.T, db *pg.DB, id, accountID int64, dailyLimit int) *repository.PhoneNumberEntity {
	ctx := context.Background()
	number := &repository.PhoneNumberEntity{
		ID:             id,
		AccountID:      accountID,
		PlatformID:     RandomPlatformID("pn"),
		DisplayNumber:  "+15550000001",
		Quality:        "green",
		DailySendLimit: dailyLimit,
		IsActive:       true,
		IsPrimary:      true,
	}
	err := db.Write(ctx).Create(number).Error
	require.NoError(t, err)
	return number
}

func CreateTestTemplate(t *testing.T, db *pg.DB, id, workspaceID, phoneNumberID int64, status string) *repository.TemplateEntity {
	ctx := context.Background()
	tmpl := &repository.TemplateEntity{
		ID:            id,
		WorkspaceID:   workspaceID,
		PhoneNumberID: phoneNumberID,
		Name:          "order_update",
		Language:      "en_US",
		Category:      "utility",
		Body:          "Your order {{1}} has shipped.",
		Status:        status,
	}
	err := db.Write(ctx).Create(tmpl).Error
	require.NoError(t, err)
	return tmpl
}

func CreateTestOptIn(t *testing.T, db *pg.DB, workspaceID int64, phone string) *repository.OptInEntity {
	ctx := context.Background()
	optIn := &repository.OptInEntity{
		WorkspaceID: workspaceID,
		PhoneNumber: phone,
		Source:      "website",
		IsActive:    true,
		OptedInAt:   time.Now().UTC(),
	}
	err := db.Write(ctx).Create(optIn).Error
	require.NoError(t, err)
	return optIn
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func RandomPlatformID(prefix string) string {
	return prefix + "-" + time.Now().Format("20060102150405.000000000")
}

func Ptr[T any](v T) *T {
	return &v
}
