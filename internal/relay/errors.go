package relay

import "errors"

var (
	// ErrMQTTRequired is returned by New without an MQTT client.
	ErrMQTTRequired = errors.New("relay: MQTT client is required")

	// ErrControllerRequired is returned by New without a controller.
	ErrControllerRequired = errors.New("relay: controller is required")

	// ErrUnknownAction is returned for a command action the relay does not define.
	ErrUnknownAction = errors.New("relay: unknown action")

	// ErrInvalidValue is returned when a command value cannot be parsed.
	ErrInvalidValue = errors.New("relay: invalid value")

	// ErrActionFailed is returned when the monitor reports the action did not take effect.
	ErrActionFailed = errors.New("relay: action failed")

	// ErrQueueFull is returned when jobs arrive faster than the worker runs them.
	ErrQueueFull = errors.New("relay: job queue full")
)
