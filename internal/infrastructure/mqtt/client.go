package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
)

// Client is the bridge's connection to the broker.
//
// It wraps paho with input validation, replay of subscriptions after a
// reconnect, a configurable Last Will and panic-safe handler dispatch.
// All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig
	will Will
	subs *registry

	connected atomic.Bool

	mu           sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(error)
}

// Logger is the subset of logging.Logger the client reports through.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Will is the Last Will the broker publishes, QoS 1 and retained, when the
// client vanishes without a clean disconnect.
type Will struct {
	Topic   string
	Payload []byte
}

// MessageHandler receives one message. A returned error is logged only; it
// never affects acknowledgement.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker described by cfg and waits for the first CONNACK.
//
// will is registered as the Last Will; the Z-Wave bridge passes its offline
// health message. A nil will falls back to an offline notice on
// graylogic/system/status.
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed if the broker is unreachable or refuses
func Connect(cfg config.MQTTConfig, will *Will) (*Client, error) {
	c := &Client{cfg: cfg, subs: newRegistry()}
	c.will = defaultWill(cfg.Broker.ClientID)
	if will != nil && will.Topic != "" {
		c.will = *will
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.will)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connectionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.connectionDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.warn("MQTT reconnecting", "client_id", cfg.Broker.ClientID)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := awaitConnect(c.paho.Connect()); err != nil {
		return nil, err
	}

	// The OnConnect handler runs on its own goroutine; do not make callers
	// race it for IsConnected.
	c.connected.Store(true)
	return c, nil
}

func awaitConnect(token pahomqtt.Token) error {
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

func (c *Client) connectionUp() {
	c.connected.Store(true)

	for filter, s := range c.subs.snapshot() {
		// A failure here resurfaces on the next reconnect.
		c.paho.Subscribe(filter, s.qos, c.deliver(s.handler))
	}

	c.mu.RLock()
	hook := c.onConnect
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) connectionDown(err error) {
	c.connected.Store(false)
	c.warn("MQTT connection lost", "error", err)

	c.mu.RLock()
	hook := c.onDisconnect
	c.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// Close disconnects cleanly. The broker discards the Last Will on a clean
// disconnect, so the bridge publishes its own offline health first.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	c.paho.Disconnect(disconnectQuiesceMillis)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected is true between a CONNACK and the next connection loss.
func (c *Client) IsConnected() bool {
	if c == nil || c.paho == nil {
		return false
	}
	return c.connected.Load() && c.paho.IsConnected()
}

// SetOnConnect runs fn after the initial connection and every reconnect,
// once subscriptions have been replayed.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect runs fn whenever the connection is lost.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger enables logging of handler failures and connection changes.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Client) warn(msg string, args ...any) {
	if l := c.log(); l != nil {
		l.Warn(msg, args...)
	}
}

// deliver adapts handler to paho's callback signature.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

// dispatch runs handler for one message and contains panics.
func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if l := c.log(); l != nil {
				l.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
			}
		}
	}()

	if err := handler(topic, payload); err != nil {
		c.warn("MQTT handler returned error", "topic", topic, "error", err)
	}
}
