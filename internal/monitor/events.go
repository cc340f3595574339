package monitor

import (
	"time"

	"github.com/nerrad567/skylink-core/internal/eventbus"
)

// EventKind names one bus channel.
type EventKind string

// Event kinds published on the Bus.
const (
	EventDeviceReady  EventKind = "device_ready"
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventReady        EventKind = "ready"
	EventNotReady     EventKind = "not_ready"
	EventArmed        EventKind = "armed"
	EventDisarmed     EventKind = "disarmed"
	EventShotReceived EventKind = "shot_received"
	EventAPILoaded    EventKind = "api_loaded"
	EventPluginLoaded EventKind = "plugin_loaded"
)

// StatusChange is the payload of every state-change event.
type StatusChange struct {
	Event     EventKind `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// ShotEvent is the payload of shot-received.
type ShotEvent struct {
	Shot      ShotRecord `json:"shot"`
	Replay    bool       `json:"replay"`
	Timestamp time.Time  `json:"timestamp"`
}

// PluginInfo is the payload of plugin-loaded.
type PluginInfo struct {
	Name       string    `json:"name"`
	Version    string    `json:"version,omitempty"`
	APIVersion string    `json:"api_version,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Bus holds one typed topic per event kind.
//
// Delivery is synchronous and ordered; see package eventbus. Handlers must
// not call back into the Monitor that publishes on this bus from inside the
// handler, because the Monitor holds its lock while publishing.
type Bus struct {
	DeviceReady  *eventbus.Topic[StatusChange]
	Connected    *eventbus.Topic[StatusChange]
	Disconnected *eventbus.Topic[StatusChange]
	Ready        *eventbus.Topic[StatusChange]
	NotReady     *eventbus.Topic[StatusChange]
	Armed        *eventbus.Topic[StatusChange]
	Disarmed     *eventbus.Topic[StatusChange]
	ShotReceived *eventbus.Topic[ShotEvent]
	APILoaded    *eventbus.Topic[StatusChange]
	PluginLoaded *eventbus.Topic[PluginInfo]

	now func() time.Time
}

// NewBus creates a bus with an empty topic for every event kind.
func NewBus() *Bus {
	return &Bus{
		DeviceReady:  eventbus.NewTopic[StatusChange](string(EventDeviceReady)),
		Connected:    eventbus.NewTopic[StatusChange](string(EventConnected)),
		Disconnected: eventbus.NewTopic[StatusChange](string(EventDisconnected)),
		Ready:        eventbus.NewTopic[StatusChange](string(EventReady)),
		NotReady:     eventbus.NewTopic[StatusChange](string(EventNotReady)),
		Armed:        eventbus.NewTopic[StatusChange](string(EventArmed)),
		Disarmed:     eventbus.NewTopic[StatusChange](string(EventDisarmed)),
		ShotReceived: eventbus.NewTopic[ShotEvent](string(EventShotReceived)),
		APILoaded:    eventbus.NewTopic[StatusChange](string(EventAPILoaded)),
		PluginLoaded: eventbus.NewTopic[PluginInfo](string(EventPluginLoaded)),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StatusTopics returns every topic carrying a StatusChange.
func (b *Bus) StatusTopics() []*eventbus.Topic[StatusChange] {
	return []*eventbus.Topic[StatusChange]{
		b.DeviceReady, b.Connected, b.Disconnected, b.Ready, b.NotReady,
		b.Armed, b.Disarmed, b.APILoaded,
	}
}

// SetPanicHandler installs h on every topic.
func (b *Bus) SetPanicHandler(h eventbus.PanicHandler) {
	for _, t := range b.StatusTopics() {
		t.SetPanicHandler(h)
	}
	b.ShotReceived.SetPanicHandler(h)
	b.PluginLoaded.SetPanicHandler(h)
}

func (b *Bus) emit(t *eventbus.Topic[StatusChange]) {
	t.Publish(StatusChange{Event: EventKind(t.Name()), Timestamp: b.now()})
}

func (b *Bus) emitShot(shot ShotRecord, replay bool) {
	b.ShotReceived.Publish(ShotEvent{Shot: shot, Replay: replay, Timestamp: b.now()})
}
