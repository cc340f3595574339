package devicelink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylink-core/internal/monitor"
)

// Default link settings.
const (
	DefaultCommandTimeout = 2 * time.Second
	DefaultQueueSize      = 64
)

// MQTTClient is the subset of the MQTT client the link uses.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	mqtt.Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// SignalHandler receives device signals in arrival order.
// *monitor.Monitor satisfies it.
type SignalHandler interface {
	OnLinkAvailable(ctx context.Context)
	OnDeviceConnectedSignal(ctx context.Context)
	OnDeviceDisconnectedSignal(ctx context.Context)
	OnDeviceReadySignal(ctx context.Context, isReady bool)
	ReceiveRawShot(ctx context.Context, payload []byte) (monitor.Classification, error)
}

// Logger defines the logging interface used by the link.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Link.
type Options struct {
	// MQTT is the broker connection. Required.
	MQTT MQTTClient

	// Topics locates the link topics. Zero value uses mqtt.DefaultLinkPrefix.
	Topics mqtt.LinkTopics

	// CommandTimeout bounds how long a command waits for its ack.
	// Default: DefaultCommandTimeout.
	CommandTimeout time.Duration

	// QoS for command publishes and subscriptions.
	QoS byte

	// QueueSize is the number of signals buffered ahead of dispatch.
	// Default: DefaultQueueSize.
	QueueSize int

	Logger Logger
}

// signal is one queued device report.
type signal struct {
	name    string
	ready   bool
	payload []byte
}

// Link is the MQTT implementation of monitor.DeviceLink. Commands are
// correlated with acknowledgements by ID; signals are queued and handed to
// the SignalHandler on a single goroutine.
type Link struct {
	mqtt    MQTTClient
	topics  mqtt.LinkTopics
	timeout time.Duration
	qos     byte

	pendingMu sync.Mutex
	pending   map[string]chan AckMessage

	signals    chan signal
	handler    SignalHandler
	started    atomic.Bool
	lastSignal atomic.Int64

	ctx       context.Context
	ctxCancel context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once

	logger Logger
}

// New creates a link. Call Start to subscribe and begin dispatching.
func New(opts Options) (*Link, error) {
	if opts.MQTT == nil {
		return nil, ErrMQTTRequired
	}

	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Link{
		mqtt:      opts.MQTT,
		topics:    opts.Topics,
		timeout:   timeout,
		qos:       opts.QoS,
		pending:   make(map[string]chan AckMessage),
		signals:   make(chan signal, queue),
		ctx:       ctx,
		ctxCancel: cancel,
		done:      make(chan struct{}),
		logger:    logger,
	}, nil
}

// Start subscribes to acknowledgements and signals and starts dispatching
// signals to handler.
func (l *Link) Start(handler SignalHandler) error {
	if handler == nil {
		return fmt.Errorf("devicelink: signal handler is required")
	}
	if l.started.Load() {
		return nil
	}
	l.handler = handler

	if err := l.mqtt.Subscribe(l.topics.AllAcks(), l.qos, l.handleAck); err != nil {
		return fmt.Errorf("subscribing to acks: %w", err)
	}
	if err := l.mqtt.Subscribe(l.topics.AllSignals(), l.qos, l.handleSignal); err != nil {
		return fmt.Errorf("subscribing to signals: %w", err)
	}

	l.wg.Add(1)
	go l.dispatchLoop()
	l.started.Store(true)

	l.logger.Info("device link started", "prefix", l.topics.AllSignals())
	return nil
}

// Stop unsubscribes, fails outstanding commands with ErrStopped and waits
// for the dispatch loop to exit. Safe to call more than once.
func (l *Link) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.ctxCancel()

		if l.started.Load() {
			for _, topic := range []string{l.topics.AllAcks(), l.topics.AllSignals()} {
				if err := l.mqtt.Unsubscribe(topic); err != nil {
					l.logger.Warn("unsubscribing link topic", "topic", topic, "error", err)
				}
			}
		}

		l.wg.Wait()
		l.started.Store(false)
		l.logger.Info("device link stopped")
	})
}

// Arm asks the device to arm for the next shot.
func (l *Link) Arm(ctx context.Context) error {
	_, err := l.send(ctx, CommandArm, nil)
	return err
}

// Disarm asks the device to disarm.
func (l *Link) Disarm(ctx context.Context) error {
	_, err := l.send(ctx, CommandDisarm, nil)
	return err
}

// SetMode switches the device shot mode.
func (l *Link) SetMode(ctx context.Context, mode monitor.ShotMode) error {
	_, err := l.send(ctx, CommandSetMode, string(mode))
	return err
}

// SetHandedness switches the device handedness calibration.
func (l *Link) SetHandedness(ctx context.Context, h monitor.Handedness) error {
	_, err := l.send(ctx, CommandSetHandedness, string(h))
	return err
}

// PauseLink pauses or resumes the device connection.
func (l *Link) PauseLink(ctx context.Context, paused bool) error {
	_, err := l.send(ctx, CommandPauseLink, paused)
	return err
}

// SoftResetNetwork resets the device network stack.
func (l *Link) SoftResetNetwork(ctx context.Context) error {
	_, err := l.send(ctx, CommandSoftResetNetwork, nil)
	return err
}

// ReadHandedness asks the device for its configured handedness.
func (l *Link) ReadHandedness(ctx context.Context) (monitor.Handedness, error) {
	ack, err := l.send(ctx, CommandGetHandedness, nil)
	if err != nil {
		return "", err
	}
	return monitor.ParseHandedness(ack.Value)
}

// PendingCommands returns the number of commands awaiting an ack.
func (l *Link) PendingCommands() int {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return len(l.pending)
}

// LastSignal returns when the last signal was received, or the zero time.
func (l *Link) LastSignal() time.Time {
	ns := l.lastSignal.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// IsConnected reports whether the underlying broker connection is up.
func (l *Link) IsConnected() bool {
	return l.mqtt.IsConnected()
}

// send publishes a command and waits for its acknowledgement.
func (l *Link) send(ctx context.Context, command string, value any) (AckMessage, error) {
	if !l.started.Load() {
		return AckMessage{}, ErrNotStarted
	}

	msg := CommandMessage{
		ID:        uuid.NewString(),
		Command:   command,
		Value:     value,
		Timestamp: time.Now().UTC(),
	}

	ch := make(chan AckMessage, 1)
	l.pendingMu.Lock()
	l.pending[msg.ID] = ch
	l.pendingMu.Unlock()
	defer func() {
		l.pendingMu.Lock()
		delete(l.pending, msg.ID)
		l.pendingMu.Unlock()
	}()

	if err := mqtt.PublishJSON(l.mqtt, l.topics.Command(command), msg, l.qos, false); err != nil {
		return AckMessage{}, fmt.Errorf("publishing %s: %w", command, err)
	}
	l.logger.Debug("link command sent", "command", command, "id", msg.ID)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case ack := <-ch:
		if ack.Status != AckAccepted {
			return ack, fmt.Errorf("%w: %s: %s", ErrCommandRejected, command, ack.Error.Error())
		}
		return ack, nil
	case <-timer.C:
		return AckMessage{}, fmt.Errorf("%w: %s after %s", ErrCommandTimeout, command, l.timeout)
	case <-ctx.Done():
		return AckMessage{}, ctx.Err()
	case <-l.done:
		return AckMessage{}, ErrStopped
	}
}

// handleAck runs on the MQTT callback goroutine and must not block.
func (l *Link) handleAck(topic string, payload []byte) error {
	ack, err := parseAck(payload, mqtt.LastSegment(topic))
	if err != nil {
		return err
	}

	l.pendingMu.Lock()
	ch, ok := l.pending[ack.ID]
	l.pendingMu.Unlock()
	if !ok {
		l.logger.Debug("ack for unknown command", "id", ack.ID)
		return nil
	}

	select {
	case ch <- ack:
	default:
		l.logger.Debug("duplicate ack dropped", "id", ack.ID)
	}
	return nil
}

// handleSignal runs on the MQTT callback goroutine. It validates and
// queues the signal; the dispatch loop does the work.
func (l *Link) handleSignal(topic string, payload []byte) error {
	s := signal{name: mqtt.LastSegment(topic)}

	switch s.name {
	case SignalDeviceReady, SignalConnected, SignalDisconnected:
	case SignalReady:
		var p ReadyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("%w: ready: %w", ErrInvalidMessage, err)
		}
		s.ready = p.Ready
	case SignalShot:
		s.payload = append([]byte(nil), payload...)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSignal, s.name)
	}

	l.lastSignal.Store(time.Now().UnixNano())

	select {
	case l.signals <- s:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrSignalQueueFull, s.name)
	}
}

func (l *Link) dispatchLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			return
		case s := <-l.signals:
			l.dispatch(s)
		}
	}
}

func (l *Link) dispatch(s signal) {
	ctx := l.ctx
	l.logger.Debug("link signal", "signal", s.name)

	switch s.name {
	case SignalDeviceReady:
		l.handler.OnLinkAvailable(ctx)
	case SignalConnected:
		l.handler.OnDeviceConnectedSignal(ctx)
	case SignalDisconnected:
		l.handler.OnDeviceDisconnectedSignal(ctx)
	case SignalReady:
		l.handler.OnDeviceReadySignal(ctx, s.ready)
	case SignalShot:
		c, err := l.handler.ReceiveRawShot(ctx, s.payload)
		if err != nil {
			l.logger.Warn("shot not processed", "error", err)
			return
		}
		l.logger.Debug("shot dispatched", "accepted", c.Accepted, "score", c.Score)
	}
}
