package monitor

import (
	"context"
	"time"
)

// ModeController switches shot mode and handedness.
//
// Both switches disarm the device before the change and restore the prior
// armed state afterwards, whether or not the change itself succeeded.
type ModeController struct {
	state  *State
	link   DeviceLink
	arm    *ArmController
	logger Logger

	refreshAfterSwitch bool
	refreshDelay       time.Duration
}

// NewModeController creates a ModeController over the shared state.
func NewModeController(state *State, link DeviceLink, arm *ArmController, logger Logger, refreshAfterSwitch bool, refreshDelay time.Duration) *ModeController {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ModeController{
		state:              state,
		link:               link,
		arm:                arm,
		logger:             logger,
		refreshAfterSwitch: refreshAfterSwitch,
		refreshDelay:       refreshDelay,
	}
}

// SetShotMode switches the device to target and returns the mode in effect
// afterwards: target on success, the previous mode if the device refused.
//
// The mode command is always sent, even when target is already active.
// Once started the switch runs to completion: cancelling ctx does not stop
// it, so the armed state is always restored.
func (m *ModeController) SetShotMode(ctx context.Context, target ShotMode) ShotMode {
	ctx = context.WithoutCancel(ctx)
	wasArmed := m.state.Armed.IsArmed()
	previous := m.state.Mode

	m.arm.Disarm(ctx)

	err := m.link.SetMode(ctx, target)
	if err != nil {
		m.logger.Error("shot mode change failed", "from", previous, "to", target, "error", err)
	} else {
		m.state.Mode = target
		m.logger.Info("shot mode changed", "from", previous, "to", target)
	}

	if m.refreshAfterSwitch {
		if rerr := m.RefreshConnection(ctx, false); rerr != nil {
			m.logger.Warn("link refresh after mode change failed", "error", rerr)
		}
	}

	if wasArmed {
		m.arm.Arm(ctx)
	}

	if err != nil {
		return previous
	}
	return target
}

// SetHandedness switches the device handedness and returns the value in
// effect afterwards. Asking for the current value is a no-op. Like
// SetShotMode it ignores cancellation of ctx once started.
func (m *ModeController) SetHandedness(ctx context.Context, target Handedness) Handedness {
	if target == m.state.Handedness {
		return target
	}
	ctx = context.WithoutCancel(ctx)

	wasArmed := m.state.Armed.IsArmed()
	m.arm.Disarm(ctx)

	if err := m.link.SetHandedness(ctx, target); err != nil {
		m.logger.Error("handedness change failed", "to", target, "error", err)
	} else {
		m.logger.Info("handedness changed", "from", m.state.Handedness, "to", target)
		m.state.Handedness = target
	}

	if wasArmed {
		m.arm.Arm(ctx)
	}
	return m.state.Handedness
}

// RefreshConnection pauses the device link. Unless disconnectOnly is set it
// waits the refresh delay and resumes the link.
//
// Cancelling ctx neither shortens the wait nor stops the resume, so the link
// is never left paused by an abandoned request.
func (m *ModeController) RefreshConnection(ctx context.Context, disconnectOnly bool) error {
	ctx = context.WithoutCancel(ctx)
	if err := m.link.PauseLink(ctx, true); err != nil {
		return err
	}
	if disconnectOnly {
		return nil
	}

	if m.refreshDelay > 0 {
		time.Sleep(m.refreshDelay)
	}

	return m.link.PauseLink(ctx, false)
}
