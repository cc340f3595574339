package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var errLinkDown = errors.New("link down")

// mockLink is a DeviceLink that records every call and can be told to fail.
type mockLink struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error

	handedness    Handedness
	handednessErr error

	// honourCtx makes every primitive fail with ctx.Err() once ctx is done,
	// as the MQTT link does.
	honourCtx bool
}

func newMockLink() *mockLink {
	return &mockLink{fail: make(map[string]error)}
}

// SetError makes the named primitive fail with err (nil clears it).
func (l *mockLink) SetError(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, op)
		return
	}
	l.fail[op] = err
}

// Calls returns a copy of the call log.
func (l *mockLink) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// Reset clears the call log.
func (l *mockLink) Reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

func (l *mockLink) record(ctx context.Context, call, op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.honourCtx && ctx.Err() != nil {
		l.calls = append(l.calls, call+"(cancelled)")
		return ctx.Err()
	}
	l.calls = append(l.calls, call)
	return l.fail[op]
}

func (l *mockLink) Arm(ctx context.Context) error    { return l.record(ctx, "arm", "arm") }
func (l *mockLink) Disarm(ctx context.Context) error { return l.record(ctx, "disarm", "disarm") }

func (l *mockLink) SetMode(ctx context.Context, mode ShotMode) error {
	return l.record(ctx, "mode:"+string(mode), "mode")
}

func (l *mockLink) SetHandedness(ctx context.Context, h Handedness) error {
	return l.record(ctx, "handedness:"+string(h), "handedness")
}

func (l *mockLink) PauseLink(ctx context.Context, paused bool) error {
	if paused {
		return l.record(ctx, "pause", "pause")
	}
	return l.record(ctx, "resume", "resume")
}

func (l *mockLink) SoftResetNetwork(ctx context.Context) error {
	return l.record(ctx, "reset", "reset")
}

// DecodeShot accepts a JSON-encoded ShotRecord.
func (l *mockLink) DecodeShot(payload []byte) (ShotRecord, error) {
	var shot ShotRecord
	if err := json.Unmarshal(payload, &shot); err != nil {
		return ShotRecord{}, fmt.Errorf("decoding: %w", err)
	}
	return shot, nil
}

// handednessLink adds HandednessReader to mockLink.
type handednessLink struct {
	*mockLink
}

func (l handednessLink) ReadHandedness(context.Context) (Handedness, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "read_handedness")
	return l.handedness, l.handednessErr
}

// eventLog subscribes to every topic on a bus and records event names in order.
type eventLog struct {
	mu     sync.Mutex
	events []EventKind
	shots  []ShotEvent
}

func watchBus(b *Bus) *eventLog {
	log := &eventLog{}
	for _, t := range b.StatusTopics() {
		t.Subscribe(func(s StatusChange) {
			log.mu.Lock()
			log.events = append(log.events, s.Event)
			log.mu.Unlock()
		})
	}
	b.ShotReceived.Subscribe(func(e ShotEvent) {
		log.mu.Lock()
		log.events = append(log.events, EventShotReceived)
		log.shots = append(log.shots, e)
		log.mu.Unlock()
	})
	b.PluginLoaded.Subscribe(func(PluginInfo) {
		log.mu.Lock()
		log.events = append(log.events, EventPluginLoaded)
		log.mu.Unlock()
	})
	return log
}

func (e *eventLog) Events() []EventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]EventKind, len(e.events))
	copy(out, e.events)
	return out
}

func (e *eventLog) Count(kind EventKind) int {
	n := 0
	for _, k := range e.Events() {
		if k == kind {
			n++
		}
	}
	return n
}

func (e *eventLog) Shots() []ShotEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ShotEvent, len(e.shots))
	copy(out, e.shots)
	return out
}

func (e *eventLog) Reset() {
	e.mu.Lock()
	e.events = nil
	e.shots = nil
	e.mu.Unlock()
}

// mustJSON encodes a shot for ReceiveRawShot.
func mustJSON(shot ShotRecord) []byte {
	b, err := json.Marshal(shot)
	if err != nil {
		panic(err)
	}
	return b
}

// recordingLogger keeps error-level messages with their first attribute value.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (*recordingLogger) Debug(string, ...any) {}
func (*recordingLogger) Info(string, ...any)  {}
func (*recordingLogger) Warn(string, ...any)  {}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(args) >= 2 {
		msg = fmt.Sprintf("%s %v", msg, args[1])
	}
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}
