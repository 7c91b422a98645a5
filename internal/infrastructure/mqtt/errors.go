package mqtt

import "errors"

// Sentinel errors returned by Client. Match them with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: client not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects anything above QoS 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics, and wildcards where a concrete
	// topic is required.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrTimeout is wrapped together with the operation's own error when
	// the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
