package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waplatform/messaging-core/pkg/logger"
	"github.com/waplatform/messaging-core/pkg/redis"
)

var (
	ErrAlreadyDispatched  = errors.New("recipient already dispatched")
	ErrLockAcquireFailed  = errors.New("failed to acquire dispatch lock")
	ErrMaxRetriesExceeded = errors.New("maximum dispatch retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	DispatchedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	DispatchedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:             30 * time.Second,
		DispatchedTTL:       24 * time.Hour,
		MaxRetries:          3,
		RetryKeyPrefix:      "dispatch:retry:",
		LockKeyPrefix:       "dispatch:lock:",
		DispatchedKeyPrefix: "dispatch:done:",
	}
}

// IdempotencyService guards each campaign recipient against double delivery
// when a queue message is redelivered or two consumers claim it. The redis
// markers are an optimization layer; the recipient row's pending-only
// transitions in the database are the hard guarantee.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type DispatchContext struct {
	RecipientID  string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireDispatchLock(ctx context.Context, recipientID string) (*DispatchContext, error) {
	// Step 1: Check if already dispatched (long-term marker)
	doneKey := s.config.DispatchedKeyPrefix + recipientID
	exists, err := s.redis.Exist(doneKey)
	if err != nil {
		logger.Warn("Failed to check dispatched status", "recipient_id", recipientID, "error", err)
		// Continue even if check fails - the pending-only DB update still blocks a duplicate send
	} else if exists > 0 {
		logger.Info("Recipient already dispatched, skipping", "recipient_id", recipientID)
		return nil, ErrAlreadyDispatched
	}

	// Step 2: Get current retry count
	retryKey := s.config.RetryKeyPrefix + recipientID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	// Step 3: Check if max retries exceeded
	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for recipient", "recipient_id", recipientID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: recipient_id=%s, retries=%d", ErrMaxRetriesExceeded, recipientID, retryCount)
	}

	// Step 4: Acquire short-term lock (prevents concurrent dispatch)
	lockKey := s.config.LockKeyPrefix + recipientID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "recipient_id", recipientID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if !acquired {
		logger.Info("Lock already held by another consumer", "recipient_id", recipientID)
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("Dispatch lock acquired",
		"recipient_id", recipientID,
		"retry_count", retryCount,
		"lock_ttl", s.config.LockTTL)

	return &DispatchContext{
		RecipientID:  recipientID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkDispatched(ctx context.Context, dc *DispatchContext) error {
	recipientID := dc.RecipientID

	// Step 1: Set long-term dispatched marker
	doneKey := s.config.DispatchedKeyPrefix + recipientID
	err := s.redis.Set(doneKey, []byte("1"), s.config.DispatchedTTL)
	if err != nil {
		logger.Error("Failed to mark recipient as dispatched", "recipient_id", recipientID, "error", err)
		return fmt.Errorf("failed to mark as dispatched: %w", err)
	}

	// Step 2: Clean up lock and retry counter
	s.cleanup(ctx, dc)

	logger.Debug("Recipient marked as dispatched",
		"recipient_id", recipientID,
		"retry_count", dc.RetryCount)

	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, dc *DispatchContext, reason error) error {
	recipientID := dc.RecipientID

	// Step 1: Increment retry counter
	retryKey := s.config.RetryKeyPrefix + recipientID
	newRetryCount := dc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// Keep retry counter for longer to track across retries
	err := s.redis.Set(retryKey, retryValue, s.config.DispatchedTTL)
	if err != nil {
		logger.Error("Failed to increment retry counter", "recipient_id", recipientID, "error", err)
	}

	// Step 2: Remove lock to allow retry
	lockKey := s.config.LockKeyPrefix + recipientID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "recipient_id", recipientID, "error", err)
	}

	logger.Warn("Recipient dispatch failed, will retry",
		"recipient_id", recipientID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, dc *DispatchContext) error {
	if dc == nil || !dc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + dc.RecipientID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "recipient_id", dc.RecipientID, "error", err)
		return err
	}

	dc.lockAcquired = false
	logger.Debug("Dispatch lock released", "recipient_id", dc.RecipientID)
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, dc *DispatchContext) {
	recipientID := dc.RecipientID

	// Remove lock
	lockKey := s.config.LockKeyPrefix + recipientID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "recipient_id", recipientID, "error", err)
	}

	// Remove retry counter (no longer needed)
	retryKey := s.config.RetryKeyPrefix + recipientID
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "recipient_id", recipientID, "error", err)
	}

	dc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, recipientID string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + recipientID
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsDispatched(ctx context.Context, recipientID string) (bool, error) {
	doneKey := s.config.DispatchedKeyPrefix + recipientID
	exists, err := s.redis.Exist(doneKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
