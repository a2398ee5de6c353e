package errors

import "errors"

var (
	ErrBackendUnavailable          = errors.New("backend unavailable")
	ErrInvalidConnectionDescriptor = errors.New("invalid connection descriptor")
	ErrMessageLockLost             = errors.New("message lock lost")

	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrUnknownStage            = errors.New("unknown stage")

	ErrInvalidEvent  = errors.New("invalid event")
	ErrInvalidFilter = errors.New("invalid event filter")
	ErrInvalidOrder  = errors.New("invalid order")
)
