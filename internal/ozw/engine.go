package ozw

import (
	"fmt"
	"strings"
	"time"
)

// Engine is the Z-Wave controller engine the Manager forwards to.
//
// An Engine owns its worker goroutines. All methods are synchronous and
// safe for concurrent use. Methods report failure as false; the Manager
// returns engine results unchanged.
type Engine interface {
	ValueEngine
	NodeEngine
	ControllerEngine

	// SetNotificationSink installs the function the engine calls, from its
	// own goroutine, for every event. A nil sink detaches delivery.
	SetNotificationSink(sink func(Notification))

	// Close stops the engine's goroutines and releases its drivers.
	Close() error
}

// ValueEngine reads and writes values and their polling state.
type ValueEngine interface {
	// Value returns a copy of the current reading. Write-only values and
	// unknown identities fail.
	Value(id ValueID) (Value, bool)

	// ValueString returns the current reading as text.
	ValueString(id ValueID) (string, bool)

	// SetValue writes a value whose type matches id.Type.
	SetValue(id ValueID, v Value) bool

	// SetValueString parses text according to the value's type and writes it.
	SetValueString(id ValueID, text string) bool

	// ValueMeta returns the value's descriptive and policy metadata.
	ValueMeta(id ValueID) (ValueMeta, bool)

	SetValueLabel(id ValueID, label string) bool
	SetValueUnits(id ValueID, units string) bool
	SetValueHelp(id ValueID, help string) bool

	// EnablePoll polls the value every intensity-th poll pass. An
	// intensity of zero disables polling.
	EnablePoll(id ValueID, intensity uint8) bool
	DisablePoll(id ValueID) bool
	SetPollIntensity(id ValueID, intensity uint8) bool

	// PollInterval returns the time for one complete poll pass, or between
	// individual polls when betweenPolls was set.
	PollInterval() time.Duration
	SetPollInterval(interval time.Duration, betweenPolls bool)
}

// NodeEngine answers node queries.
type NodeEngine interface {
	Node(homeID uint32, nodeID uint8) (NodeInfo, bool)
	NodeNeighbors(homeID uint32, nodeID uint8) ([]uint8, bool)
	NodeClassInformation(homeID uint32, nodeID, commandClassID uint8) (ClassInfo, bool)
}

// ControllerEngine runs controller and network operations. Long-running
// operations (heal, test, inclusion) return once started; progress arrives
// as notifications.
type ControllerEngine interface {
	AddDriver(path string, iface ControllerInterface) bool
	RemoveDriver(path string) bool

	ResetController(homeID uint32) bool
	SoftReset(homeID uint32) bool
	CancelControllerCommand(homeID uint32) bool

	RequestNodeState(homeID uint32, nodeID uint8) bool
	RequestAllConfigParams(homeID uint32, nodeID uint8) bool

	AddNode(homeID uint32, secure bool) bool
	RemoveNode(homeID uint32) bool

	TestNetworkNode(homeID uint32, nodeID uint8, count uint32) bool
	TestNetwork(homeID uint32, count uint32) bool
	HealNetworkNode(homeID uint32, nodeID uint8, doReturnRoutes bool) bool
	HealNetwork(homeID uint32, doReturnRoutes bool) bool

	ControllerNodeID(homeID uint32) uint8
	SUCNodeID(homeID uint32) uint8
	IsPrimaryController(homeID uint32) bool
	IsBridgeController(homeID uint32) bool
	SendQueueCount(homeID uint32) int32
	LogDriverStatistics(homeID uint32) bool
	ControllerInterfaceType(homeID uint32) ControllerInterface
	LibraryVersion(homeID uint32) (string, bool)
	LibraryTypeName(homeID uint32) (string, bool)
	ControllerPath(homeID uint32) (string, bool)
}

// ValueMeta describes a value independently of its current reading.
type ValueMeta struct {
	Label         string `json:"label"`
	Units         string `json:"units,omitempty"`
	Help          string `json:"help,omitempty"`
	Min           int32  `json:"min"`
	Max           int32  `json:"max"`
	ReadOnly      bool   `json:"read_only"`
	WriteOnly     bool   `json:"write_only"`
	Set           bool   `json:"set"`
	Polled        bool   `json:"polled"`
	PollIntensity uint8  `json:"poll_intensity"`
}

// NodeInfo is a snapshot of a node's capabilities and metadata.
type NodeInfo struct {
	HomeID uint32 `json:"home_id"`
	NodeID uint8  `json:"node_id"`

	Listening         bool `json:"listening"`
	FrequentListening bool `json:"frequent_listening"`
	Beaming           bool `json:"beaming"`
	Routing           bool `json:"routing"`
	SecurityDevice    bool `json:"security_device"`
	ZWavePlus         bool `json:"zwave_plus"`
	InfoReceived      bool `json:"info_received"`
	Awake             bool `json:"awake"`
	Failed            bool `json:"failed"`

	MaxBaudRate   uint32 `json:"max_baud_rate"`
	Version       uint8  `json:"version"`
	SecurityLevel uint8  `json:"security_level"`
	Basic         uint8  `json:"basic"`
	Generic       uint8  `json:"generic"`
	Specific      uint8  `json:"specific"`
	DeviceType    uint16 `json:"device_type"`
	Role          uint8  `json:"role"`
	PlusType      uint8  `json:"plus_type"`

	Type             string `json:"type"`
	ManufacturerName string `json:"manufacturer_name"`
	ProductName      string `json:"product_name"`
	Name             string `json:"name"`
	Location         string `json:"location"`
	ManufacturerID   string `json:"manufacturer_id"`
	ProductType      string `json:"product_type"`
	ProductID        string `json:"product_id"`
	QueryStage       string `json:"query_stage"`
	DeviceTypeString string `json:"device_type_string"`
	RoleString       string `json:"role_string"`
	PlusTypeString   string `json:"plus_type_string"`
}

// ClassInfo describes a command class implemented by a node.
type ClassInfo struct {
	Name    string `json:"name"`
	Version uint8  `json:"version"`
}

// NodeStringField selects one string field of NodeInfo.
type NodeStringField uint8

// Node string fields.
const (
	NodeType NodeStringField = iota
	NodeManufacturerName
	NodeProductName
	NodeName
	NodeLocation
	NodeManufacturerID
	NodeProductType
	NodeProductID
	NodeQueryStage
	NodeDeviceTypeString
	NodeRoleString
	NodePlusTypeString
)

func (f NodeStringField) pick(info NodeInfo) (string, bool) {
	switch f {
	case NodeType:
		return info.Type, true
	case NodeManufacturerName:
		return info.ManufacturerName, true
	case NodeProductName:
		return info.ProductName, true
	case NodeName:
		return info.Name, true
	case NodeLocation:
		return info.Location, true
	case NodeManufacturerID:
		return info.ManufacturerID, true
	case NodeProductType:
		return info.ProductType, true
	case NodeProductID:
		return info.ProductID, true
	case NodeQueryStage:
		return info.QueryStage, true
	case NodeDeviceTypeString:
		return info.DeviceTypeString, true
	case NodeRoleString:
		return info.RoleString, true
	case NodePlusTypeString:
		return info.PlusTypeString, true
	default:
		return "", false
	}
}

// ControllerInterface is the physical interface of a controller.
type ControllerInterface uint8

// Controller interfaces.
const (
	InterfaceUnknown ControllerInterface = 0
	InterfaceSerial  ControllerInterface = 1
	InterfaceHID     ControllerInterface = 2
)

// String returns the interface name.
func (c ControllerInterface) String() string {
	switch c {
	case InterfaceSerial:
		return "serial"
	case InterfaceHID:
		return "hid"
	default:
		return "unknown"
	}
}

// MarshalText encodes the interface as its name.
func (c ControllerInterface) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes "serial", "hid" or "unknown".
func (c *ControllerInterface) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "serial", "":
		*c = InterfaceSerial
	case "hid":
		*c = InterfaceHID
	case "unknown":
		*c = InterfaceUnknown
	default:
		return fmt.Errorf("ozw: unknown controller interface %q", text)
	}
	return nil
}
