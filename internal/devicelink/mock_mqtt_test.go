package devicelink

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
)

// publishedMessage records a message published through mockMQTT.
type publishedMessage struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// mockMQTT is an in-memory MQTTClient. onPublish, when set, runs after each
// publish outside the lock so it may simulate replies.
type mockMQTT struct {
	mu         sync.Mutex
	connected  bool
	published  []publishedMessage
	handlers   map[string]mqtt.MessageHandler
	publishErr error
	onPublish  func(topic string, payload []byte)
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	if m.publishErr != nil {
		err := m.publishErr
		m.mu.Unlock()
		return err
	}
	m.published = append(m.published, publishedMessage{
		Topic:    topic,
		Payload:  append([]byte(nil), payload...),
		QoS:      qos,
		Retained: retained,
	})
	hook := m.onPublish
	m.mu.Unlock()

	if hook != nil {
		hook(topic, payload)
	}
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func (m *mockMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTT) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *mockMQTT) setOnPublish(fn func(topic string, payload []byte)) {
	m.mu.Lock()
	m.onPublish = fn
	m.mu.Unlock()
}

func (m *mockMQTT) getPublished() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

func (m *mockMQTT) subscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// simulateMessage delivers payload to the handler whose filter matches topic.
func (m *mockMQTT) simulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range m.handlers {
		if topicMatches(filter, topic) {
			handler = h
			break
		}
	}
	m.mu.Unlock()

	if handler == nil {
		return errors.New("no subscriber for " + topic)
	}
	return handler(topic, payload)
}

// topicMatches supports the single-level wildcard only.
func topicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	if len(f) != len(t) {
		return false
	}
	for i := range f {
		if f[i] != "+" && f[i] != t[i] {
			return false
		}
	}
	return true
}

// autoAck answers every command with status and value.
func autoAck(m *mockMQTT, topics mqtt.LinkTopics, status AckStatus, value string) {
	m.setOnPublish(func(topic string, payload []byte) {
		var cmd CommandMessage
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return
		}
		ack := AckMessage{ID: cmd.ID, Status: status, Value: value}
		if status == AckFailed {
			ack.Error = &AckError{Code: "device_busy", Message: "device busy"}
		}
		data, _ := json.Marshal(ack)
		_ = m.simulateMessage(topics.Ack(cmd.ID), data)
	})
}
