package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolUnavailable is returned when the pool was never initialized or
	// has already been destroyed.
	ErrPoolUnavailable = errors.New("window pool unavailable")
	// ErrAlreadyInitialized is returned by Manager.Initialize when a pool is
	// already live.
	ErrAlreadyInitialized = errors.New("window pool already initialized")
	// ErrInvalidOptions is returned by Acquire for malformed open requests.
	ErrInvalidOptions = errors.New("invalid open window options")
)

// ConfigError describes an invalid pool configuration field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("pool config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
