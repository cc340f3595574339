package monitor

import "context"

// ConnectionTracker turns link signals into connected and ready events.
// Repeated signals that do not change a flag have no side effects.
type ConnectionTracker struct {
	state  *State
	arm    *ArmController
	bus    *Bus
	logger Logger
}

// NewConnectionTracker creates a tracker over the shared state.
func NewConnectionTracker(state *State, arm *ArmController, bus *Bus, logger Logger) *ConnectionTracker {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ConnectionTracker{state: state, arm: arm, bus: bus, logger: logger}
}

// OnDeviceConnectedSignal handles a connect report from the link.
//
// On the first report the device is disarmed unless it is known to be
// armed, so a device whose armed state was never confirmed starts out in a
// known state. The disarm happens before the connected event is published.
func (c *ConnectionTracker) OnDeviceConnectedSignal(ctx context.Context) {
	if c.state.Connected {
		return
	}
	c.state.Connected = true
	c.logger.Info("launch monitor connected")

	if !c.state.Armed.IsArmed() {
		c.arm.Disarm(ctx)
	}
	c.bus.emit(c.bus.Connected)
}

// OnDeviceDisconnectedSignal handles a disconnect report from the link.
func (c *ConnectionTracker) OnDeviceDisconnectedSignal(_ context.Context) {
	if !c.state.Connected {
		return
	}
	c.state.Connected = false
	c.logger.Info("launch monitor disconnected")
	c.bus.emit(c.bus.Disconnected)
}

// OnDeviceReadySignal records the device readiness flag and publishes
// ready or not-ready when it flips.
func (c *ConnectionTracker) OnDeviceReadySignal(_ context.Context, isReady bool) {
	if c.state.Ready == isReady {
		return
	}
	c.state.Ready = isReady
	if isReady {
		c.logger.Debug("launch monitor ready")
		c.bus.emit(c.bus.Ready)
		return
	}
	c.logger.Debug("launch monitor not ready")
	c.bus.emit(c.bus.NotReady)
}
