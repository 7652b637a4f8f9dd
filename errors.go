package authguard

import "errors"

var (
	// ErrBuilderReused is returned when Build is called twice on one Builder.
	ErrBuilderReused = errors.New("builder already used")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid guard configuration")
	// ErrGuardClosed is returned by operations on a closed guard.
	ErrGuardClosed = errors.New("guard closed")
)
