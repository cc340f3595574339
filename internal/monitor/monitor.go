package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultRefreshDelay is the pause between link pause and resume during a refresh.
const DefaultRefreshDelay = 200 * time.Millisecond

// Options configures a Monitor.
type Options struct {
	// Link is the device link. Required.
	Link DeviceLink

	// Bus receives every event. A new bus is created if nil.
	Bus *Bus

	// Logger receives structured log output. Optional.
	Logger Logger

	// Confidence is the shot acceptance level. Defaults to ConfidenceNormal.
	Confidence ConfidenceMode

	// RefreshAfterModeSwitch pauses and resumes the link after each mode change.
	RefreshAfterModeSwitch bool

	// RefreshDelay is the wait inside a link refresh.
	RefreshDelay time.Duration

	// DefaultHandedness is used until the device reports its own value.
	DefaultHandedness Handedness

	// Store persists the last accepted shot. Optional.
	Store ShotStore

	// Recorder receives every classification. Optional.
	Recorder ClassificationRecorder
}

// Monitor is the launch monitor control core and the surface exposed to
// plugins, the HTTP API and the MQTT relay.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Operations are serialised:
//     a mode switch, including its link refresh wait, runs to completion
//     before the next signal or command is processed.
//   - Bus handlers run while the Monitor is locked and must not call back
//     into it.
type Monitor struct {
	mu sync.Mutex

	state      *State
	link       DeviceLink
	bus        *Bus
	logger     Logger
	store      ShotStore
	loaded     bool
	tracker    *ConnectionTracker
	arm        *ArmController
	mode       *ModeController
	classifier *ShotClassifier
}

// New creates a Monitor with its controllers wired to one shared State.
//
// Returns:
//   - *Monitor: Ready to receive signals; call Load once at startup
//   - error: ErrLinkRequired if opts.Link is nil
func New(opts Options) (*Monitor, error) {
	if opts.Link == nil {
		return nil, ErrLinkRequired
	}
	if opts.Bus == nil {
		opts.Bus = NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	state := NewState(opts.DefaultHandedness)
	arm := NewArmController(state, opts.Link, opts.Bus, opts.Logger)
	tracker := NewConnectionTracker(state, arm, opts.Bus, opts.Logger)
	arm.onResult = tracker.OnDeviceReadySignal

	m := &Monitor{
		state:   state,
		link:    opts.Link,
		bus:     opts.Bus,
		logger:  opts.Logger,
		store:   opts.Store,
		tracker: tracker,
		arm:     arm,
		mode: NewModeController(state, opts.Link, arm, opts.Logger,
			opts.RefreshAfterModeSwitch, opts.RefreshDelay),
		classifier: NewShotClassifier(state, opts.Link, arm, opts.Bus, opts.Logger,
			opts.Confidence, opts.Store, opts.Recorder),
	}

	opts.Bus.SetPanicHandler(func(topic string, r any) {
		m.logger.Error("event handler panicked", "topic", topic, "panic", r)
	})

	return m, nil
}

// Bus returns the event bus the Monitor publishes on.
func (m *Monitor) Bus() *Bus {
	return m.bus
}

// Load restores the persisted last shot and publishes api-loaded.
// Only the first call has any effect.
func (m *Monitor) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return nil
	}

	if m.store != nil {
		shot, ok, err := m.store.LoadLastShot(ctx)
		if err != nil {
			return fmt.Errorf("restoring last shot: %w", err)
		}
		if ok {
			m.classifier.restoreLastShot(shot)
			m.logger.Info("restored last shot", "captured_at", shot.CapturedAt)
		}
	}

	m.loaded = true
	m.logger.Info("launch monitor api loaded",
		"api_version", APIVersion,
		"device_version", SupportedDeviceVersion,
	)
	m.bus.emit(m.bus.APILoaded)
	return nil
}

// OnLinkAvailable handles the link runtime becoming available. It publishes
// device-ready and, when the link can report it, adopts the device's
// handedness as the current value.
func (m *Monitor) OnLinkAvailable(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.link.(HandednessReader); ok {
		h, err := r.ReadHandedness(ctx)
		switch {
		case err != nil:
			m.logger.Warn("reading device handedness failed", "error", err)
		case h != m.state.Handedness:
			m.logger.Info("adopting device handedness", "handedness", h)
			m.state.Handedness = h
		}
	}
	m.bus.emit(m.bus.DeviceReady)
}

// OnDeviceConnectedSignal forwards a link connect report to the tracker.
func (m *Monitor) OnDeviceConnectedSignal(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.OnDeviceConnectedSignal(ctx)
}

// OnDeviceDisconnectedSignal forwards a link disconnect report to the tracker.
func (m *Monitor) OnDeviceDisconnectedSignal(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.OnDeviceDisconnectedSignal(ctx)
}

// OnDeviceReadySignal forwards a link readiness report to the tracker.
func (m *Monitor) OnDeviceReadySignal(ctx context.Context, isReady bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.OnDeviceReadySignal(ctx, isReady)
}

// ReceiveRawShot classifies a shot reported by the link.
func (m *Monitor) ReceiveRawShot(ctx context.Context, payload []byte) (Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifier.ReceiveRawShot(ctx, payload)
}

// Arm arms the device. See ArmController.Arm.
func (m *Monitor) Arm(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arm.Arm(ctx)
}

// Disarm disarms the device. See ArmController.Disarm.
func (m *Monitor) Disarm(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arm.Disarm(ctx)
}

// ReadyForNextShot arms the device if it is not already armed and reports
// whether it is now ready for a shot.
func (m *Monitor) ReadyForNextShot(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Armed.IsArmed() {
		return true
	}
	if !m.arm.Arm(ctx) {
		return false
	}
	return m.state.Ready
}

// SetShotMode switches the shot mode and returns the mode now in effect.
func (m *Monitor) SetShotMode(ctx context.Context, target ShotMode) ShotMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode.SetShotMode(ctx, target)
}

// SetNormalMode switches to full-swing mode and reports whether it took effect.
func (m *Monitor) SetNormalMode(ctx context.Context) bool {
	return m.SetShotMode(ctx, ModeNormal) == ModeNormal
}

// SetPuttingMode switches to putting mode and reports whether it took effect.
func (m *Monitor) SetPuttingMode(ctx context.Context) bool {
	return m.SetShotMode(ctx, ModePutting) == ModePutting
}

// SetHandedness switches handedness and returns the value now in effect.
func (m *Monitor) SetHandedness(ctx context.Context, target Handedness) Handedness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode.SetHandedness(ctx, target)
}

// ToggleHandedness switches between left and right handed.
func (m *Monitor) ToggleHandedness(ctx context.Context) Handedness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode.SetHandedness(ctx, m.state.Handedness.Opposite())
}

// RefreshConnection pauses the link and, unless disconnectOnly, resumes it
// after the refresh delay.
func (m *Monitor) RefreshConnection(ctx context.Context, disconnectOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.mode.RefreshConnection(ctx, disconnectOnly); err != nil {
		m.logger.Warn("link refresh failed", "disconnect_only", disconnectOnly, "error", err)
		return err
	}
	return nil
}

// Disconnect pauses the link without resuming it.
func (m *Monitor) Disconnect(ctx context.Context) error {
	return m.RefreshConnection(ctx, true)
}

// SoftNetworkReset asks the link to reset its network stack.
func (m *Monitor) SoftNetworkReset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.link.SoftResetNetwork(ctx); err != nil {
		m.logger.Warn("soft network reset failed", "error", err)
		return err
	}
	m.logger.Info("soft network reset sent")
	return nil
}

// LastShot returns the most recently accepted shot and whether there is one.
func (m *Monitor) LastShot() (ShotRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifier.LastShot()
}

// ReplayLastShot publishes the last accepted shot again.
// It returns ErrNoLastShot if no shot has been accepted yet.
func (m *Monitor) ReplayLastShot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifier.ReplayLastShot()
}

// AnnouncePlugin publishes plugin-loaded for a plugin that has attached.
func (m *Monitor) AnnouncePlugin(info PluginInfo) {
	if info.Timestamp.IsZero() {
		info.Timestamp = m.bus.now()
	}
	m.logger.Info("plugin loaded", "plugin", info.Name, "version", info.Version, "api_version", info.APIVersion)
	m.bus.PluginLoaded.Publish(info)
}

// IsConnected reports whether the device link is connected.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Connected
}

// IsReady reports whether the device is ready for a shot.
func (m *Monitor) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Ready
}

// ArmState returns the current armed flag.
func (m *Monitor) ArmState() ArmState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Armed
}

// ShotMode returns the current shot mode.
func (m *Monitor) ShotMode() ShotMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Mode
}

// Handedness returns the current handedness.
func (m *Monitor) Handedness() Handedness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Handedness
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Connected:   m.state.Connected,
		Ready:       m.state.Ready,
		Armed:       m.state.Armed,
		Mode:        m.state.Mode,
		Handedness:  m.state.Handedness,
		HasLastShot: m.state.HasLastShot,
		APIVersion:  APIVersion,
		Loaded:      m.loaded,
	}
}
