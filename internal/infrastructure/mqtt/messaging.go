package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps a single message at 1MB, well above the largest
// node state document.
const maxPayloadSize = 1 << 20

// Publish sends payload to a concrete topic and waits for the broker.
//
// Node state and bridge health are published retained so a restarted Core
// sees the last known picture; acks, responses and discovery are not.
//
// Parameters:
//   - topic: A topic without wildcards, e.g. graylogic/state/zwave/0xc0ffee01.5
//   - payload: JSON document; nil with retained=true clears the topic
//   - qos: 0, 1 or 2
//   - retained: Whether the broker keeps the message for late subscribers
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if !Concrete(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if n := len(payload); n > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, n, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.paho.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// Subscribe installs handler for every message matching filter. The
// subscription is replayed on each reconnect until Unsubscribe is called.
//
// Handlers run on paho's delivery goroutine; a returned error is logged and
// a panic is recovered.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subs.put(filter, subscription{qos: qos, handler: handler})
	if err := await(c.paho.Subscribe(filter, qos, c.deliver(handler)), ErrSubscribeFailed); err != nil {
		c.subs.remove(filter)
		return err
	}
	return nil
}

// Unsubscribe drops filter. Messages already in flight may still arrive.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.subs.remove(filter)
	return await(c.paho.Unsubscribe(filter), ErrUnsubscribeFailed)
}

// Subscriptions lists the active filters in sorted order.
func (c *Client) Subscriptions() []string {
	if c.subs == nil {
		return nil
	}
	return c.subs.filters()
}

// await blocks on token for operationTimeout and tags any failure with op.
func await(token pahomqtt.Token, op error) error {
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %w after %v", op, ErrTimeout, operationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}
