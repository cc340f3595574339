package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/skylink-core/internal/infrastructure/config"
)

// Client wraps a paho client for the core's two MQTT conversations: the
// device link bridge and the plugin surface.
//
// It tracks subscriptions so they survive reconnects, announces presence on
// Topics.SystemStatus and recovers panics in message handlers. Counters for
// /metrics are available through Stats.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected  atomic.Bool
	everOnline atomic.Bool

	reconnects    atomic.Uint64
	published     atomic.Uint64
	publishErrors atomic.Uint64
	handlerErrors atomic.Uint64

	hooksMu      sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Logger is satisfied by logging.Logger and *slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives a message with its concrete topic. A returned
// error is logged and counted; it does not affect delivery.
type MessageHandler func(topic string, payload []byte) error

// Stats is a snapshot of client activity.
type Stats struct {
	Connected     bool   `json:"connected"`
	Subscriptions int    `json:"subscriptions"`
	Reconnects    uint64 `json:"reconnects"`
	Published     uint64 `json:"published"`
	PublishErrors uint64 `json:"publish_errors"`
	HandlerErrors uint64 `json:"handler_errors"`
}

// Connect dials the broker from cfg and waits for the first connection.
// The last will marks the core offline if it disappears without Close.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) }).
		SetReconnectingHandler(func(_ pahomqtt.Client, o *pahomqtt.ClientOptions) {
			c.logWarn("mqtt reconnecting", "client_id", o.ClientID)
		})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The on-connect handler runs asynchronously; callers may publish as
	// soon as Connect returns.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	if c.everOnline.Swap(true) {
		c.reconnects.Add(1)
		c.restoreSubscriptions()
	}
	c.announce(true, "")

	c.hooksMu.RLock()
	fn := c.onConnect
	c.hooksMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)

	c.hooksMu.RLock()
	fn := c.onDisconnect
	c.hooksMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// announce publishes retained presence without going through the counters.
func (c *Client) announce(online bool, reason string) {
	payload := presencePayload(c.cfg.Broker.ClientID, online, reason)
	token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload) //nolint:gosec // QoS validated 0..2
	if err := waitToken(token, ErrPublishFailed); err != nil {
		c.logWarn("publishing presence failed", "online", online, "error", err)
	}
}

// Close announces a graceful shutdown and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.announce(false, ReasonGracefulShutdown)
	}
	c.client.Disconnect(disconnectQuiesceMS)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// Stats returns the current counters.
func (c *Client) Stats() Stats {
	c.subMu.RLock()
	subs := len(c.subscriptions)
	c.subMu.RUnlock()

	return Stats{
		Connected:     c.IsConnected(),
		Subscriptions: subs,
		Reconnects:    c.reconnects.Load(),
		Published:     c.published.Load(),
		PublishErrors: c.publishErrors.Load(),
		HandlerErrors: c.handlerErrors.Load(),
	}
}

// SetOnConnect registers a callback for every successful (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.hooksMu.Lock()
	c.onConnect = fn
	c.hooksMu.Unlock()
}

// SetOnDisconnect registers a callback for lost connections.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hooksMu.Lock()
	c.onDisconnect = fn
	c.hooksMu.Unlock()
}

// SetLogger sets the logger for handler failures and reconnects.
func (c *Client) SetLogger(logger Logger) {
	c.hooksMu.Lock()
	c.logger = logger
	c.hooksMu.Unlock()
}

func (c *Client) logWarn(msg string, args ...any) {
	c.hooksMu.RLock()
	l := c.logger
	c.hooksMu.RUnlock()
	if l != nil {
		l.Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	c.hooksMu.RLock()
	l := c.logger
	c.hooksMu.RUnlock()
	if l != nil {
		l.Error(msg, args...)
	}
}

// wrapHandler adapts a MessageHandler to paho, counting errors and
// recovering panics so one bad payload cannot stop the router.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.handlerErrors.Add(1)
				c.logError("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.handlerErrors.Add(1)
			c.logWarn("mqtt handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
