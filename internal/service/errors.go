package service

import "errors"

var (
	// ErrInvalidFeedback rejects submissions the engine should never see.
	ErrInvalidFeedback = errors.New("invalid feedback submission")

	// ErrInvalidRule rejects rule definitions whose condition tree or
	// severity does not validate.
	ErrInvalidRule = errors.New("invalid alert rule")

	ErrNotificationNotFound = errors.New("notification not found")

	// ErrAlreadyAcknowledged preserves first-responder attribution: a second
	// acknowledge by a different user is refused.
	ErrAlreadyAcknowledged = errors.New("notification already acknowledged by another user")

	ErrMissingUser = errors.New("userId is required")
)
