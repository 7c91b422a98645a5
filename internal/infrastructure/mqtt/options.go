package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// operationTimeout bounds waiting for a PUBACK, SUBACK or UNSUBACK.
	operationTimeout = 5 * time.Second

	disconnectQuiesceMillis = 1000

	keepAlive = 60 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions maps the mqtt config section onto paho options:
// broker address, optional credentials, TLS 1.2+, a clean session and
// auto-reconnect using the configured backoff bounds.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(seconds(cfg.Reconnect.InitialDelay)).
		SetMaxReconnectInterval(seconds(cfg.Reconnect.MaxDelay)).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// configureLWT registers w retained at QoS 1 so late subscribers still see
// that the client went away.
func configureLWT(opts *pahomqtt.ClientOptions, w Will) {
	opts.SetBinaryWill(w.Topic, w.Payload, 1, true)
}

func defaultWill(clientID string) Will {
	return Will{
		Topic: SystemStatus(),
		Payload: fmt.Appendf(nil,
			`{"status":"offline","client_id":%q,"reason":"unexpected_disconnect","timestamp":%q}`,
			clientID, time.Now().UTC().Format(time.RFC3339)),
	}
}
