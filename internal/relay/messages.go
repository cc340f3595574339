package relay

import (
	"encoding/json"
	"time"
)

// Command actions accepted on skylink/command/{action}.
const (
	ActionStatus           = "status"
	ActionArm              = "arm"
	ActionDisarm           = "disarm"
	ActionReady            = "ready"
	ActionSetMode          = "set_mode"
	ActionSetHandedness    = "set_handedness"
	ActionToggleHandedness = "toggle_handedness"
	ActionLastShot         = "last_shot"
	ActionReplayLastShot   = "replay_last_shot"
	ActionDisconnect       = "disconnect"
	ActionRefresh          = "refresh"
	ActionSoftReset        = "soft_reset"
)

// CommandRequest is the body of a plugin command.
type CommandRequest struct {
	// ID names the response topic. Generated when empty.
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value,omitempty"`
}

// CommandResponse is published on skylink/response/{id}.
type CommandResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Announcement is the body of a plugin announcement. The plugin name comes
// from the topic.
type Announcement struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}
