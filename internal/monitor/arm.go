package monitor

import "context"

// ArmController owns the armed flag and wraps the link's arm primitives.
//
// Neither Arm nor Disarm short-circuits when the device is already in the
// requested state: the command is always sent so the hardware can resync.
type ArmController struct {
	state  *State
	link   DeviceLink
	bus    *Bus
	logger Logger

	// onResult is told the new armed value after each successful request.
	onResult func(ctx context.Context, armed bool)
}

// NewArmController creates an ArmController over the shared state.
func NewArmController(state *State, link DeviceLink, bus *Bus, logger Logger) *ArmController {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ArmController{state: state, link: link, bus: bus, logger: logger}
}

// Arm asks the device to start listening for a shot.
// It returns false and leaves the state unchanged if the link fails.
func (a *ArmController) Arm(ctx context.Context) bool {
	if err := a.link.Arm(ctx); err != nil {
		a.logger.Warn("arm failed", "error", err)
		return false
	}
	a.state.Armed = ArmArmed
	a.bus.emit(a.bus.Armed)
	if a.onResult != nil {
		a.onResult(ctx, true)
	}
	return true
}

// Disarm asks the device to stop listening.
// It returns false and leaves the state unchanged if the link fails.
func (a *ArmController) Disarm(ctx context.Context) bool {
	if err := a.link.Disarm(ctx); err != nil {
		a.logger.Warn("disarm failed", "error", err)
		return false
	}
	a.state.Armed = ArmDisarmed
	a.bus.emit(a.bus.Disarmed)
	if a.onResult != nil {
		a.onResult(ctx, false)
	}
	return true
}
