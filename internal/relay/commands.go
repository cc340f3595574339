package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/skylink-core/internal/monitor"
)

// Execute runs one plugin action against the controller and returns the
// result to report.
func (r *Relay) Execute(ctx context.Context, action string, value json.RawMessage) (any, error) {
	c := r.ctrl

	switch action {
	case ActionStatus:
		return c.Status(), nil

	case ActionArm:
		return nil, boolResult(c.Arm(ctx), action)
	case ActionDisarm:
		return nil, boolResult(c.Disarm(ctx), action)
	case ActionReady:
		return nil, boolResult(c.ReadyForNextShot(ctx), action)

	case ActionSetMode:
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		target, err := monitor.ParseShotMode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		got := c.SetShotMode(ctx, target)
		if got != target {
			return map[string]any{"mode": got}, fmt.Errorf("%w: mode is %s", ErrActionFailed, got)
		}
		return map[string]any{"mode": got}, nil

	case ActionSetHandedness:
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		target, err := monitor.ParseHandedness(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		got := c.SetHandedness(ctx, target)
		if got != target {
			return map[string]any{"handedness": got}, fmt.Errorf("%w: handedness is %s", ErrActionFailed, got)
		}
		return map[string]any{"handedness": got}, nil

	case ActionToggleHandedness:
		return map[string]any{"handedness": c.ToggleHandedness(ctx)}, nil

	case ActionLastShot:
		shot, ok := c.LastShot()
		if !ok {
			return nil, monitor.ErrNoLastShot
		}
		return shot, nil
	case ActionReplayLastShot:
		return nil, c.ReplayLastShot()

	case ActionDisconnect:
		return nil, c.Disconnect(ctx)
	case ActionRefresh:
		return nil, c.RefreshConnection(ctx, false)
	case ActionSoftReset:
		return nil, c.SoftNetworkReset(ctx)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func boolResult(ok bool, action string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActionFailed, action)
}

// stringValue decodes a JSON string value.
func stringValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: value is required", ErrInvalidValue)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: value must be a string", ErrInvalidValue)
	}
	return s, nil
}
