package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/skylink-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultTokenTimeout   = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second

	// disconnectQuiesceMS is how long Disconnect waits for in-flight work.
	disconnectQuiesceMS = 1000

	maxQoS = 2
)

// Presence reasons carried on the system status topic.
const (
	ReasonGracefulShutdown     = "graceful_shutdown"
	ReasonUnexpectedDisconnect = "unexpected_disconnect"
)

// Presence is the retained message on Topics.SystemStatus. The broker
// publishes the offline variant as the last will if the core vanishes.
type Presence struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func presencePayload(clientID string, online bool, reason string) []byte {
	p := Presence{
		Status:    "offline",
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	if online {
		p.Status = "online"
		p.Reason = ""
	}
	data, _ := json.Marshal(p) //nolint:errcheck // plain struct, cannot fail
	return data
}

func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// buildClientOptions maps the mqtt config section onto paho options.
// Sessions are clean: the link bridge and plugins resend on reconnect and
// the client restores its own subscriptions.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetBinaryWill(Topics{}.SystemStatus(),
		presencePayload(cfg.Broker.ClientID, false, ReasonUnexpectedDisconnect), 1, true)
	return opts
}

// waitToken waits for a paho token and wraps its failure in kind.
func waitToken(t pahomqtt.Token, kind error) error {
	if !t.WaitTimeout(defaultTokenTimeout) {
		return fmt.Errorf("%w: timeout after %v", kind, defaultTokenTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}
