package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps a single message at 1MB.
const maxPayloadSize = 1 << 20

// Publisher is the publishing half of Client. Components that only send
// accept it so tests can substitute an in-memory client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Publish sends payload on topic and waits for the broker to accept it.
//
// Retain status-style topics (monitor status, link health, presence) so new
// subscribers see the current value. Never retain commands or events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	err := c.publish(topic, payload, qos, retained)
	if err != nil {
		c.publishErrors.Add(1)
		return err
	}
	c.published.Add(1)
	return nil
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}
	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishJSON encodes v as JSON and publishes it through p. Link commands,
// plugin events, command responses and health reports all go out this way.
//
//	err := mqtt.PublishJSON(client, mqtt.Topics{}.Status(), status, 1, true)
func PublishJSON(p Publisher, topic string, v any, qos byte, retained bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w for %s: %w", ErrEncodePayload, topic, err)
	}
	return p.Publish(topic, data, qos, retained)
}
