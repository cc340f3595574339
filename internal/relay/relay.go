package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylink-core/internal/monitor"
)

const (
	defaultQueueSize     = 256
	defaultActionTimeout = 15 * time.Second
)

// MQTTClient is the subset of the MQTT client the relay uses.
type MQTTClient interface {
	mqtt.Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Controller is the monitor surface the relay drives. *monitor.Monitor
// satisfies it.
type Controller interface {
	Status() monitor.Status
	LastShot() (monitor.ShotRecord, bool)
	Arm(ctx context.Context) bool
	Disarm(ctx context.Context) bool
	ReadyForNextShot(ctx context.Context) bool
	SetShotMode(ctx context.Context, target monitor.ShotMode) monitor.ShotMode
	SetHandedness(ctx context.Context, target monitor.Handedness) monitor.Handedness
	ToggleHandedness(ctx context.Context) monitor.Handedness
	ReplayLastShot() error
	Disconnect(ctx context.Context) error
	RefreshConnection(ctx context.Context, disconnectOnly bool) error
	SoftNetworkReset(ctx context.Context) error
	AnnouncePlugin(info monitor.PluginInfo)
}

// Logger defines the logging interface used by the relay.
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

// Options configures a Relay.
type Options struct {
	MQTT       MQTTClient
	Controller Controller
	QoS        byte

	// QueueSize bounds pending jobs. Default 256.
	QueueSize int

	// ActionTimeout bounds each plugin command. Default 15s.
	ActionTimeout time.Duration

	Logger Logger
}

type job func(ctx context.Context)

// Relay bridges the monitor bus and plugin commands to MQTT.
type Relay struct {
	mqtt          MQTTClient
	ctrl          Controller
	topics        mqtt.Topics
	qos           byte
	actionTimeout time.Duration
	logger        Logger

	jobs   chan job
	unsubs []func()

	statusMu   sync.Mutex
	lastStatus *monitor.Status

	ctx       context.Context
	ctxCancel context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a relay. Call Start to attach it.
func New(opts Options) (*Relay, error) {
	if opts.MQTT == nil {
		return nil, ErrMQTTRequired
	}
	if opts.Controller == nil {
		return nil, ErrControllerRequired
	}

	queue := opts.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		mqtt:          opts.MQTT,
		ctrl:          opts.Controller,
		qos:           opts.QoS,
		actionTimeout: timeout,
		logger:        logger,
		jobs:          make(chan job, queue),
		ctx:           ctx,
		ctxCancel:     cancel,
		done:          make(chan struct{}),
	}, nil
}

// Start subscribes to bus and the plugin topics, starts the worker and
// queues an initial status publish.
func (r *Relay) Start(bus *monitor.Bus) error {
	if err := r.mqtt.Subscribe(r.topics.AllCommands(), r.qos, r.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	if err := r.mqtt.Subscribe(r.topics.AllPluginAnnouncements(), r.qos, r.handleAnnouncement); err != nil {
		return fmt.Errorf("subscribing to plugin announcements: %w", err)
	}

	for _, t := range bus.StatusTopics() {
		r.unsubs = append(r.unsubs, t.Subscribe(func(ev monitor.StatusChange) {
			r.forward(string(ev.Event), ev)
		}))
	}
	r.unsubs = append(r.unsubs,
		bus.ShotReceived.Subscribe(func(ev monitor.ShotEvent) {
			r.forward(string(monitor.EventShotReceived), ev)
		}),
		bus.PluginLoaded.Subscribe(func(info monitor.PluginInfo) {
			r.forward(string(monitor.EventPluginLoaded), info)
		}),
	)

	r.wg.Add(1)
	go r.worker()

	if err := r.enqueue(r.publishStatus); err != nil {
		r.logger.Warn("initial status not queued", "error", err)
	}
	r.logger.Info("plugin relay started", "commands", r.topics.AllCommands())
	return nil
}

// Stop detaches from the bus and MQTT and waits for the running job.
// Queued jobs are discarded.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		for _, unsub := range r.unsubs {
			unsub()
		}
		for _, topic := range []string{r.topics.AllCommands(), r.topics.AllPluginAnnouncements()} {
			if err := r.mqtt.Unsubscribe(topic); err != nil {
				r.logger.Debug("unsubscribe failed", "topic", topic, "error", err)
			}
		}
		close(r.done)
		r.ctxCancel()
		r.wg.Wait()
		r.logger.Info("plugin relay stopped")
	})
}

func (r *Relay) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case j := <-r.jobs:
			j(r.ctx)
		}
	}
}

func (r *Relay) enqueue(j job) error {
	select {
	case r.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// forward runs inside a bus handler, under the monitor lock.
func (r *Relay) forward(kind string, payload any) {
	err := r.enqueue(func(context.Context) {
		if err := mqtt.PublishJSON(r.mqtt, r.topics.Event(kind), payload, r.qos, false); err != nil {
			r.logger.Warn("publishing event failed", "event", kind, "error", err)
		}
		r.publishStatus(r.ctx)
	})
	if err != nil {
		r.logger.Warn("event dropped", "event", kind, "error", err)
	}
}

// publishStatus publishes the retained status when it has changed.
func (r *Relay) publishStatus(context.Context) {
	status := r.ctrl.Status()

	r.statusMu.Lock()
	unchanged := r.lastStatus != nil && *r.lastStatus == status
	r.statusMu.Unlock()
	if unchanged {
		return
	}

	if err := mqtt.PublishJSON(r.mqtt, r.topics.Status(), status, r.qos, true); err != nil {
		r.logger.Warn("publishing status failed", "error", err)
		return
	}
	r.statusMu.Lock()
	r.lastStatus = &status
	r.statusMu.Unlock()
}

// handleCommand runs on the MQTT router goroutine.
func (r *Relay) handleCommand(topic string, payload []byte) error {
	action := mqtt.LastSegment(topic)

	var req CommandRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return fmt.Errorf("%w: command %s: %w", ErrInvalidValue, action, err)
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	return r.enqueue(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, r.actionTimeout)
		defer cancel()

		resp := CommandResponse{ID: req.ID, Action: action}
		result, err := r.Execute(ctx, action, req.Value)
		resp.Timestamp = time.Now().UTC()
		if err != nil {
			resp.Error = err.Error()
			r.logger.Info("plugin command failed", "action", action, "id", req.ID, "error", err)
		} else {
			resp.Success = true
			resp.Result = result
			r.logger.Debug("plugin command", "action", action, "id", req.ID)
		}
		r.publishResponse(resp)
	})
}

func (r *Relay) publishResponse(resp CommandResponse) {
	if err := mqtt.PublishJSON(r.mqtt, r.topics.Response(resp.ID), resp, r.qos, false); err != nil {
		r.logger.Warn("publishing response failed", "id", resp.ID, "error", err)
	}
}

// handleAnnouncement runs on the MQTT router goroutine.
func (r *Relay) handleAnnouncement(topic string, payload []byte) error {
	name := pluginName(topic)
	if name == "" {
		return fmt.Errorf("%w: announcement topic %q", ErrInvalidValue, topic)
	}

	var a Announcement
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("%w: announcement from %s: %w", ErrInvalidValue, name, err)
		}
	}

	return r.enqueue(func(context.Context) {
		r.ctrl.AnnouncePlugin(monitor.PluginInfo{
			Name:       name,
			Version:    a.Version,
			APIVersion: a.APIVersion,
		})
	})
}

// pluginName extracts {name} from skylink/plugin/{name}/announce.
func pluginName(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
