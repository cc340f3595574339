package devicelink

import "errors"

// Errors returned by the device link.
var (
	// ErrMQTTRequired is returned by New when no MQTT client is supplied.
	ErrMQTTRequired = errors.New("devicelink: MQTT client is required")

	// ErrNotStarted is returned when a command is sent before Start.
	ErrNotStarted = errors.New("devicelink: not started")

	// ErrStopped is returned for commands interrupted by Stop.
	ErrStopped = errors.New("devicelink: stopped")

	// ErrCommandTimeout is returned when the link does not acknowledge a command in time.
	ErrCommandTimeout = errors.New("devicelink: command not acknowledged")

	// ErrCommandRejected is returned when the link acknowledges a command as failed.
	ErrCommandRejected = errors.New("devicelink: command rejected")

	// ErrUnknownSignal is returned for a signal topic the link does not define.
	ErrUnknownSignal = errors.New("devicelink: unknown signal")

	// ErrSignalQueueFull is returned when signals arrive faster than they are handled.
	ErrSignalQueueFull = errors.New("devicelink: signal queue full")

	// ErrInvalidMessage is returned for a payload that cannot be parsed.
	ErrInvalidMessage = errors.New("devicelink: invalid message")
)
