package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrQuotaExceeded means the phone number has no daily quota left. It is
	// recoverable: callers leave the recipient pending and retry after the
	// daily reset.
	ErrQuotaExceeded = errors.New("daily send quota exceeded")

	// ErrPhoneNumberInactive means the sender number is disabled.
	ErrPhoneNumberInactive = errors.New("phone number is not active")

	// ErrStaleStatus means a webhook reported a status older than the one
	// already recorded. Discarded, never surfaced to the webhook caller.
	ErrStaleStatus = errors.New("stale status update")

	// ErrInvalidTransition means a requested lifecycle change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentUpdate is a transient conflict; callers may retry.
	ErrConcurrentUpdate = errors.New("concurrent update detected")

	// ErrMaxRetriesExceeded wraps a transient error that survived all retry
	// attempts.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
