package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylink-core/internal/monitor"
)

type published struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// mockMQTT records publishes and routes simulated messages to handlers.
type mockMQTT struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]mqtt.MessageHandler
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, _ byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{Topic: topic, Payload: append([]byte(nil), payload...), Retained: retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = h
	return nil
}

func (m *mockMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func (m *mockMQTT) simulate(filter, topic string, payload []byte) error {
	m.mu.Lock()
	h := m.handlers[filter]
	m.mu.Unlock()
	if h == nil {
		return errors.New("no handler for " + filter)
	}
	return h(topic, payload)
}

// waitFor polls until a message on topic has been published.
func (m *mockMQTT) waitFor(t *testing.T, topic string) published {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		for i := len(m.published) - 1; i >= 0; i-- {
			if m.published[i].Topic == topic {
				p := m.published[i]
				m.mu.Unlock()
				return p
			}
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("nothing published on %s", topic)
	return published{}
}

func (m *mockMQTT) count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.published {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

// fakeController records calls and returns canned results.
type fakeController struct {
	mu         sync.Mutex
	calls      []string
	status     monitor.Status
	armOK      bool
	mode       monitor.ShotMode
	handedness monitor.Handedness
	lastShot   *monitor.ShotRecord
	plugins    []monitor.PluginInfo
	refreshErr error
}

func newFakeController() *fakeController {
	return &fakeController{
		armOK:      true,
		mode:       monitor.ModeNormal,
		handedness: monitor.RightHanded,
		status:     monitor.Status{Mode: monitor.ModeNormal, Handedness: monitor.RightHanded, APIVersion: monitor.APIVersion},
	}
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeController) Status() monitor.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) LastShot() (monitor.ShotRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastShot == nil {
		return monitor.ShotRecord{}, false
	}
	return *f.lastShot, true
}

func (f *fakeController) Arm(context.Context) bool              { f.record("arm"); return f.armOK }
func (f *fakeController) Disarm(context.Context) bool           { f.record("disarm"); return true }
func (f *fakeController) ReadyForNextShot(context.Context) bool { f.record("ready"); return f.armOK }

func (f *fakeController) SetShotMode(_ context.Context, m monitor.ShotMode) monitor.ShotMode {
	f.record("mode:" + string(m))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
	return f.mode
}

func (f *fakeController) SetHandedness(_ context.Context, h monitor.Handedness) monitor.Handedness {
	f.record("handedness:" + string(h))
	return f.handedness
}

func (f *fakeController) ToggleHandedness(context.Context) monitor.Handedness {
	f.record("toggle")
	return monitor.LeftHanded
}

func (f *fakeController) ReplayLastShot() error {
	f.record("replay")
	if _, ok := f.LastShot(); !ok {
		return monitor.ErrNoLastShot
	}
	return nil
}

func (f *fakeController) Disconnect(context.Context) error { f.record("disconnect"); return nil }

func (f *fakeController) RefreshConnection(context.Context, bool) error {
	f.record("refresh")
	return f.refreshErr
}

func (f *fakeController) SoftNetworkReset(context.Context) error { f.record("reset"); return nil }

func (f *fakeController) AnnouncePlugin(info monitor.PluginInfo) {
	f.mu.Lock()
	f.plugins = append(f.plugins, info)
	f.mu.Unlock()
}

func startRelay(t *testing.T) (*Relay, *mockMQTT, *fakeController, *monitor.Bus) {
	t.Helper()
	client := newMockMQTT()
	ctrl := newFakeController()
	r, err := New(Options{MQTT: client, Controller: ctrl, QoS: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	bus := monitor.NewBus()
	if err := r.Start(bus); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(r.Stop)
	return r, client, ctrl, bus
}

func decodeResponse(t *testing.T, p published) CommandResponse {
	t.Helper()
	var resp CommandResponse
	if err := json.Unmarshal(p.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Controller: newFakeController()}); !errors.Is(err, ErrMQTTRequired) {
		t.Errorf("New() without MQTT error = %v", err)
	}
	if _, err := New(Options{MQTT: newMockMQTT()}); !errors.Is(err, ErrControllerRequired) {
		t.Errorf("New() without controller error = %v", err)
	}
}

func TestStartPublishesRetainedStatus(t *testing.T) {
	_, client, _, _ := startRelay(t)

	p := client.waitFor(t, mqtt.Topics{}.Status())
	if !p.Retained {
		t.Error("status should be retained")
	}
	var st monitor.Status
	if err := json.Unmarshal(p.Payload, &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.APIVersion != monitor.APIVersion {
		t.Errorf("APIVersion = %q", st.APIVersion)
	}
}

func TestBusEventsPublished(t *testing.T) {
	_, client, ctrl, bus := startRelay(t)
	topics := mqtt.Topics{}
	client.waitFor(t, topics.Status())

	ctrl.mu.Lock()
	ctrl.status.Armed = monitor.ArmArmed
	ctrl.mu.Unlock()
	bus.Armed.Publish(monitor.StatusChange{Event: monitor.EventArmed, Timestamp: time.Now()})

	p := client.waitFor(t, topics.Event("armed"))
	if p.Retained {
		t.Error("events should not be retained")
	}
	var ev monitor.StatusChange
	if err := json.Unmarshal(p.Payload, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Event != monitor.EventArmed {
		t.Errorf("Event = %q, want armed", ev.Event)
	}

	// Status changed, so a second retained status follows.
	deadline := time.Now().Add(2 * time.Second)
	for client.count(topics.Status()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := client.count(topics.Status()); got != 2 {
		t.Errorf("status publishes = %d, want 2", got)
	}

	bus.ShotReceived.Publish(monitor.ShotEvent{Replay: true})
	p = client.waitFor(t, topics.Event("shot_received"))
	var shot monitor.ShotEvent
	if err := json.Unmarshal(p.Payload, &shot); err != nil {
		t.Fatalf("unmarshal shot: %v", err)
	}
	if !shot.Replay {
		t.Error("Replay flag lost")
	}
	// Status unchanged, no extra retained publish.
	if got := client.count(topics.Status()); got != 2 {
		t.Errorf("status publishes after shot = %d, want 2", got)
	}
}

func TestCommands(t *testing.T) {
	shot := monitor.ShotRecord{BallPosition: monitor.BallOK}

	tests := []struct {
		name        string
		action      string
		body        string
		setup       func(*fakeController)
		wantSuccess bool
		wantCall    string
		wantErr     string
	}{
		{name: "arm", action: ActionArm, body: `{"id":"a1"}`, wantSuccess: true, wantCall: "arm"},
		{name: "arm refused", action: ActionArm, body: `{"id":"a2"}`, setup: func(f *fakeController) { f.armOK = false }, wantCall: "arm", wantErr: "action failed"},
		{name: "disarm", action: ActionDisarm, body: `{"id":"a3"}`, wantSuccess: true, wantCall: "disarm"},
		{name: "ready", action: ActionReady, body: `{"id":"a4"}`, wantSuccess: true, wantCall: "ready"},
		{name: "set mode", action: ActionSetMode, body: `{"id":"m1","value":"putting"}`, wantSuccess: true, wantCall: "mode:putting"},
		{name: "set mode invalid", action: ActionSetMode, body: `{"id":"m2","value":"chipping"}`, wantErr: "invalid value"},
		{name: "set mode missing value", action: ActionSetMode, body: `{"id":"m3"}`, wantErr: "value is required"},
		{name: "set handedness kept", action: ActionSetHandedness, body: `{"id":"h1","value":"left"}`, wantCall: "handedness:left", wantErr: "handedness is right"},
		{name: "toggle", action: ActionToggleHandedness, body: `{"id":"h2"}`, wantSuccess: true, wantCall: "toggle"},
		{name: "last shot missing", action: ActionLastShot, body: `{"id":"s1"}`, wantErr: "no accepted shot"},
		{name: "last shot", action: ActionLastShot, body: `{"id":"s2"}`, setup: func(f *fakeController) { f.lastShot = &shot }, wantSuccess: true},
		{name: "replay", action: ActionReplayLastShot, body: `{"id":"s3"}`, setup: func(f *fakeController) { f.lastShot = &shot }, wantSuccess: true, wantCall: "replay"},
		{name: "disconnect", action: ActionDisconnect, body: `{"id":"l1"}`, wantSuccess: true, wantCall: "disconnect"},
		{name: "refresh error", action: ActionRefresh, body: `{"id":"l2"}`, setup: func(f *fakeController) { f.refreshErr = errors.New("link down") }, wantCall: "refresh", wantErr: "link down"},
		{name: "soft reset", action: ActionSoftReset, body: `{"id":"l3"}`, wantSuccess: true, wantCall: "reset"},
		{name: "status", action: ActionStatus, body: `{"id":"st"}`, wantSuccess: true},
		{name: "unknown", action: "launch", body: `{"id":"u1"}`, wantErr: "unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client, ctrl, _ := startRelay(t)
			if tt.setup != nil {
				tt.setup(ctrl)
			}
			topics := mqtt.Topics{}

			if err := client.simulate(topics.AllCommands(), topics.Command(tt.action), []byte(tt.body)); err != nil {
				t.Fatalf("command handler error = %v", err)
			}

			var req CommandRequest
			_ = json.Unmarshal([]byte(tt.body), &req)
			resp := decodeResponse(t, client.waitFor(t, topics.Response(req.ID)))

			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v (error %q)", resp.Success, tt.wantSuccess, resp.Error)
			}
			if resp.Action != tt.action {
				t.Errorf("Action = %q, want %q", resp.Action, tt.action)
			}
			if tt.wantErr != "" && !strings.Contains(resp.Error, tt.wantErr) {
				t.Errorf("Error = %q, want it to contain %q", resp.Error, tt.wantErr)
			}
			if tt.wantCall != "" {
				ctrl.mu.Lock()
				calls := strings.Join(ctrl.calls, ",")
				ctrl.mu.Unlock()
				if !strings.Contains(calls, tt.wantCall) {
					t.Errorf("calls = %q, want %q", calls, tt.wantCall)
				}
			}
		})
	}
}

func TestCommandWithoutIDGetsOne(t *testing.T) {
	_, client, _, _ := startRelay(t)
	topics := mqtt.Topics{}

	if err := client.simulate(topics.AllCommands(), topics.Command(ActionStatus), nil); err != nil {
		t.Fatalf("command handler error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		client.mu.Lock()
		for _, p := range client.published {
			if strings.HasPrefix(p.Topic, "skylink/response/") && len(p.Topic) > len("skylink/response/") {
				client.mu.Unlock()
				return
			}
		}
		client.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no response published for a command without id")
}

func TestCommandInvalidJSON(t *testing.T) {
	_, client, _, _ := startRelay(t)
	topics := mqtt.Topics{}

	err := client.simulate(topics.AllCommands(), topics.Command(ActionArm), []byte("{"))
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("handler error = %v, want ErrInvalidValue", err)
	}
}

func TestPluginAnnouncement(t *testing.T) {
	_, client, ctrl, _ := startRelay(t)
	topics := mqtt.Topics{}

	err := client.simulate(topics.AllPluginAnnouncements(), topics.PluginAnnounce("overlay"),
		[]byte(`{"version":"2.1.0","api_version":"1.0"}`))
	if err != nil {
		t.Fatalf("announcement handler error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ctrl.mu.Lock()
		n := len(ctrl.plugins)
		ctrl.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.plugins) != 1 {
		t.Fatalf("plugins = %d, want 1", len(ctrl.plugins))
	}
	got := ctrl.plugins[0]
	if got.Name != "overlay" || got.Version != "2.1.0" || got.APIVersion != "1.0" {
		t.Errorf("plugin = %+v", got)
	}
}

func TestPluginName(t *testing.T) {
	tests := map[string]string{
		"skylink/plugin/overlay/announce": "overlay",
		"announce":                        "",
	}
	for topic, want := range tests {
		if got := pluginName(topic); got != want {
			t.Errorf("pluginName(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestStopDetaches(t *testing.T) {
	r, client, _, bus := startRelay(t)
	client.waitFor(t, mqtt.Topics{}.Status())

	r.Stop()

	if bus.Armed.Len() != 0 || bus.ShotReceived.Len() != 0 {
		t.Error("bus handlers still attached after Stop")
	}
	client.mu.Lock()
	n := len(client.handlers)
	client.mu.Unlock()
	if n != 0 {
		t.Errorf("MQTT handlers after Stop = %d, want 0", n)
	}
}
