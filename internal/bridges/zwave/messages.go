package zwave

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// MQTT message types exchanged between Gray Logic Core and the Z-Wave bridge.

// Protocol is the protocol segment of every bridge topic.
const Protocol = "zwave"

var topics = mqtt.Topics{Protocol: Protocol}

// CommandMessage is sent from Core to Bridge to change a value on a node.
// Topic: graylogic/command/zwave/{home}.{node}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name. Only "set_value" is understood.
	Command string `json:"command"`

	// Parameters contains command-specific values.
	//   {"value_id": "0xc0ffee01:0x0000000005...", "value": true}
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// Commands understood by the bridge.
const (
	CommandSetValue = "set_value"
	CommandRefresh  = "refresh"
)

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the engine took the write.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from Bridge to Core to acknowledge a command.
// Topic: graylogic/ack/zwave/{home}.{node}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Address   string    `json:"address"`
	ValueID   string    `json:"value_id,omitempty"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command and request failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeRejected          = "REJECTED"
	ErrCodeUnknownValue      = "UNKNOWN_VALUE"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateValue is one value of a node as carried in a StateMessage.
type StateValue struct {
	Label        string         `json:"label"`
	Units        string         `json:"units,omitempty"`
	CommandClass string         `json:"command_class"`
	Instance     uint8          `json:"instance"`
	Index        uint8          `json:"index"`
	Type         ozw.ValueType  `json:"type"`
	Genre        ozw.ValueGenre `json:"genre"`
	Value        any            `json:"value"`
	ReadOnly     bool           `json:"read_only,omitempty"`
	WriteOnly    bool           `json:"write_only,omitempty"`
}

// Node statuses carried in StateMessage.Status.
const (
	NodeStatusAlive  = "alive"
	NodeStatusDead   = "dead"
	NodeStatusAwake  = "awake"
	NodeStatusAsleep = "asleep"
)

// StateMessage is sent from Bridge to Core with every current value of a node.
// Topic: graylogic/state/zwave/{home}.{node}
// QoS: 1, Retained: Yes
type StateMessage struct {
	Address   string    `json:"address"`
	HomeID    string    `json:"home_id"`
	NodeID    uint8     `json:"node_id"`
	Name      string    `json:"name,omitempty"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
	Status    string    `json:"status"`

	// Values is keyed by the value id string.
	Values map[string]StateValue `json:"values"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthOffline is published by the broker from the will message.
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is sent from Bridge to Core to report operational status.
// Topic: graylogic/health/zwave
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version,omitempty"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Homes          []HomeHealth      `json:"homes,omitempty"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	DevicesManaged int               `json:"devices_managed"`
	ValuesManaged  int               `json:"values_managed"`
	Reason         string            `json:"reason,omitempty"`
}

// HomeHealth describes one controller.
type HomeHealth struct {
	HomeID          string              `json:"home_id"`
	Ready           bool                `json:"ready"`
	Queried         bool                `json:"queried"`
	SomeDead        bool                `json:"some_dead"`
	SendQueue       int32               `json:"send_queue"`
	ControllerState ozw.ControllerState `json:"controller_state"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	NotificationsReceived uint64 `json:"notifications_received"`
	NotificationsDropped  uint64 `json:"notifications_dropped"`
	StatesPublished       uint64 `json:"states_published"`
	CommandsReceived      uint64 `json:"commands_received"`
	RequestsReceived      uint64 `json:"requests_received"`
	Errors                uint64 `json:"errors"`
}

// RequestMessage is sent from Core to Bridge for network operations.
// Topic: graylogic/request/zwave/{request_id}
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Action is the requested operation, one of the Action* constants.
	Action string `json:"action"`

	// Parameters: home_id, node_id, secure, return_routes, count.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Request actions.
const (
	ActionAddNode       = "add_node"
	ActionRemoveNode    = "remove_node"
	ActionCancel        = "cancel"
	ActionHeal          = "heal"
	ActionHealNode      = "heal_node"
	ActionTest          = "test"
	ActionTestNode      = "test_node"
	ActionRefreshNode   = "refresh_node"
	ActionRequestConfig = "request_config"
	ActionSoftReset     = "soft_reset"
	ActionListNodes     = "list_nodes"
	ActionReadNode      = "read_node"
)

// ResponseMessage is sent from Bridge to Core in response to a request.
// Topic: graylogic/response/zwave/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DiscoveryMessage announces nodes found on a controller.
// Topic: graylogic/discovery/zwave
type DiscoveryMessage struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Bridge    string           `json:"bridge"`
	Nodes     []DiscoveredNode `json:"nodes"`
}

// DiscoveredNode represents a node announced by the engine.
type DiscoveredNode struct {
	Protocol     string   `json:"protocol"`
	Address      string   `json:"address"`
	Type         string   `json:"type,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Product      string   `json:"product,omitempty"`
	Name         string   `json:"name,omitempty"`
	Location     string   `json:"location,omitempty"`
	ZWavePlus    bool     `json:"zwave_plus"`
	Failed       bool     `json:"failed"`
	Classes      []string `json:"classes,omitempty"`
}

// MarshalJSON marshals a CommandMessage with an RFC3339 timestamp.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, address string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  Protocol,
		Address:   address,
	}
}

// NewAckError creates a failed acknowledgment with error details.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed, address)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewLWTMessage creates the will message published by the broker if the
// bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// NewDiscoveryMessage stamps a discovery announcement with a fresh id.
func NewDiscoveryMessage(bridgeID string, nodes []DiscoveredNode) DiscoveryMessage {
	return DiscoveryMessage{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Bridge:    bridgeID,
		Nodes:     nodes,
	}
}

// newDiscoveredNode builds a discovery entry from a node snapshot.
func newDiscoveredNode(info ozw.NodeInfo, classes []string) DiscoveredNode {
	return DiscoveredNode{
		Protocol:     Protocol,
		Address:      NodeAddress(info.HomeID, info.NodeID),
		Type:         info.Type,
		Manufacturer: info.ManufacturerName,
		Product:      info.ProductName,
		Name:         info.Name,
		Location:     info.Location,
		ZWavePlus:    info.ZWavePlus,
		Failed:       info.Failed,
		Classes:      classes,
	}
}

// Topic helpers

// StateTopic returns the retained state topic of a node address.
func StateTopic(address string) string { return topics.State(address) }

// AckTopic returns the acknowledgment topic of a node address.
func AckTopic(address string) string { return topics.Ack(address) }

// CommandTopic returns the command topic of a node address.
func CommandTopic(address string) string { return topics.Command(address) }

// RequestTopic returns the topic a request with requestID arrives on.
func RequestTopic(requestID string) string { return topics.Request(requestID) }

// ResponseTopic returns the topic a response to requestID is published on.
func ResponseTopic(requestID string) string { return topics.Response(requestID) }

// HealthTopic returns the bridge health topic.
func HealthTopic() string { return topics.Health() }

// DiscoveryTopic returns the discovery topic.
func DiscoveryTopic() string { return topics.Discovery() }

// lastSegment returns the part of a topic after the final slash.
func lastSegment(topic string) string {
	return topic[strings.LastIndexByte(topic, '/')+1:]
}
