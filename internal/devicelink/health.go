package devicelink

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
)

// DefaultHealthInterval is how often link health is published.
const DefaultHealthInterval = 30 * time.Second

// HealthPublisher is the interface for publishing health messages.
type HealthPublisher interface {
	mqtt.Publisher
	IsConnected() bool
}

// LinkStats provides the link figures reported in health messages.
// *Link satisfies it.
type LinkStats interface {
	LastSignal() time.Time
	PendingCommands() int
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Topic is the retained health topic.
	Topic string

	// Interval is how often to publish. Default: DefaultHealthInterval.
	Interval time.Duration

	Publisher HealthPublisher
	Stats     LinkStats
	Logger    Logger
}

// HealthReporter publishes link health at a fixed interval.
type HealthReporter struct {
	topic     string
	interval  time.Duration
	publisher HealthPublisher
	stats     LinkStats
	startTime time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}

	return &HealthReporter{
		topic:     cfg.Topic,
		interval:  interval,
		publisher: cfg.Publisher,
		stats:     cfg.Stats,
		startTime: time.Now(),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final stopped status.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		if err := h.publishStatus(HealthStopped, ""); err != nil {
			h.logger.Debug("final link health not published", "error", err)
		}
	})
}

// PublishStarting publishes a starting status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "link starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Warn("publishing link health failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Warn("publishing link health failed", "error", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Status:        status,
		Reason:        reason,
		MQTTConnected: h.publisher.IsConnected(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC(),
	}
	if h.stats != nil {
		msg.PendingCommands = h.stats.PendingCommands()
		if last := h.stats.LastSignal(); !last.IsZero() {
			last = last.UTC()
			msg.LastSignal = &last
		}
	}

	return mqtt.PublishJSON(h.publisher, h.topic, msg, 1, true)
}
