package devicelink

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command names sent to the link bridge.
const (
	CommandArm              = "arm"
	CommandDisarm           = "disarm"
	CommandSetMode          = "set_mode"
	CommandSetHandedness    = "set_handedness"
	CommandPauseLink        = "pause_link"
	CommandSoftResetNetwork = "soft_reset_network"
	CommandGetHandedness    = "get_handedness"
)

// Signal names reported by the link bridge.
const (
	SignalDeviceReady  = "device_ready"
	SignalConnected    = "connected"
	SignalDisconnected = "disconnected"
	SignalReady        = "ready"
	SignalShot         = "shot"
)

// CommandMessage is sent from the core to the link bridge.
// Topic: {prefix}/command/{command}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement.
	ID string `json:"id"`

	// Command is the command name, repeated from the topic.
	Command string `json:"command"`

	// Value carries the argument, if the command takes one.
	Value any `json:"value,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// AckStatus is the outcome reported for a command.
type AckStatus string

const (
	// AckAccepted indicates the device carried out the command.
	AckAccepted AckStatus = "ok"

	// AckFailed indicates the device or vendor library refused the command.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from the link bridge to acknowledge a command.
// Topic: {prefix}/ack/{id}
type AckMessage struct {
	ID        string    `json:"id"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
	Value     string    `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *AckError) Error() string {
	if e == nil {
		return "unknown error"
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ReadyPayload is the body of the ready signal.
type ReadyPayload struct {
	Ready bool `json:"ready"`
}

// HealthStatus is the link health value published by the core.
type HealthStatus string

// Health status values.
const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopped  HealthStatus = "stopped"
)

// HealthMessage is published retained on {prefix}/health.
type HealthMessage struct {
	Status          HealthStatus `json:"status"`
	Reason          string       `json:"reason,omitempty"`
	MQTTConnected   bool         `json:"mqtt_connected"`
	LastSignal      *time.Time   `json:"last_signal,omitempty"`
	PendingCommands int          `json:"pending_commands"`
	UptimeSeconds   int64        `json:"uptime_seconds"`
	Timestamp       time.Time    `json:"timestamp"`
}

// parseAck decodes an acknowledgement. The ID falls back to the topic's
// last segment for bridges that leave it out of the body.
func parseAck(payload []byte, topicID string) (AckMessage, error) {
	var ack AckMessage
	if err := json.Unmarshal(payload, &ack); err != nil {
		return AckMessage{}, fmt.Errorf("%w: ack: %w", ErrInvalidMessage, err)
	}
	if ack.ID == "" {
		ack.ID = topicID
	}
	if ack.ID == "" {
		return AckMessage{}, fmt.Errorf("%w: ack without id", ErrInvalidMessage)
	}
	return ack, nil
}
