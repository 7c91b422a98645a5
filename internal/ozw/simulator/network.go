package simulator

import (
	"fmt"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"gopkg.in/yaml.v3"
)

// Network describes every controller the simulator can bring online.
// Loaded from YAML.
type Network struct {
	Homes []HomeFixture `yaml:"homes"`
}

// HomeFixture is one controller and its mesh.
type HomeFixture struct {
	// Path is the controller device path passed to AddDriver.
	Path string `yaml:"path"`

	// HomeID identifies the mesh. YAML accepts hex (0xc0ffee01).
	HomeID uint32 `yaml:"home_id"`

	Interface        ozw.ControllerInterface `yaml:"interface"`
	ControllerNodeID uint8                   `yaml:"controller_node_id"`
	SUCNodeID        uint8                   `yaml:"suc_node_id"`
	Primary          bool                    `yaml:"primary"`
	Bridge           bool                    `yaml:"bridge"`
	LibraryVersion   string                  `yaml:"library_version"`
	LibraryType      string                  `yaml:"library_type"`

	Nodes []NodeFixture `yaml:"nodes"`
}

// NodeFixture is one device.
type NodeFixture struct {
	ID uint8 `yaml:"id"`

	Listening         bool `yaml:"listening"`
	FrequentListening bool `yaml:"frequent_listening"`
	Beaming           bool `yaml:"beaming"`
	Routing           bool `yaml:"routing"`
	Security          bool `yaml:"security"`
	ZWavePlus         bool `yaml:"zwave_plus"`
	Sleeping          bool `yaml:"sleeping"`
	Failed            bool `yaml:"failed"`

	MaxBaudRate   uint32 `yaml:"max_baud_rate"`
	Version       uint8  `yaml:"version"`
	SecurityLevel uint8  `yaml:"security_level"`
	Basic         uint8  `yaml:"basic"`
	Generic       uint8  `yaml:"generic"`
	Specific      uint8  `yaml:"specific"`
	DeviceType    uint16 `yaml:"device_type"`
	Role          uint8  `yaml:"role"`
	PlusType      uint8  `yaml:"plus_type"`

	Type             string `yaml:"type"`
	ManufacturerName string `yaml:"manufacturer_name"`
	ProductName      string `yaml:"product_name"`
	Name             string `yaml:"name"`
	Location         string `yaml:"location"`
	ManufacturerID   string `yaml:"manufacturer_id"`
	ProductType      string `yaml:"product_type"`
	ProductID        string `yaml:"product_id"`
	DeviceTypeString string `yaml:"device_type_string"`
	RoleString       string `yaml:"role_string"`
	PlusTypeString   string `yaml:"plus_type_string"`

	Neighbors []uint8        `yaml:"neighbors"`
	Classes   []ClassFixture `yaml:"classes"`
	Values    []ValueFixture `yaml:"values"`
}

// ClassFixture is a command class a node implements.
type ClassFixture struct {
	ID      uint8 `yaml:"id"`
	Version uint8 `yaml:"version"`
}

// ValueFixture is one value of a node.
type ValueFixture struct {
	CommandClass uint8          `yaml:"command_class"`
	Instance     uint8          `yaml:"instance"`
	Index        uint8          `yaml:"index"`
	Type         ozw.ValueType  `yaml:"type"`
	Genre        ozw.ValueGenre `yaml:"genre"`

	// Value is the initial reading in ozw.ParseValue text form. For lists
	// it is the selected item label.
	Value     string `yaml:"value"`
	Precision uint8  `yaml:"precision"`

	Label     string `yaml:"label"`
	Units     string `yaml:"units"`
	Help      string `yaml:"help"`
	Min       int32  `yaml:"min"`
	Max       int32  `yaml:"max"`
	ReadOnly  bool   `yaml:"read_only"`
	WriteOnly bool   `yaml:"write_only"`

	Items      []string `yaml:"items"`
	ItemValues []int32  `yaml:"item_values"`

	// Schedule seeds a climate control schedule value.
	Schedule []ozw.SwitchPoint `yaml:"schedule"`

	// PollIntensity greater than zero starts the value polled.
	PollIntensity uint8 `yaml:"poll_intensity"`
}

// LoadNetwork reads and validates a network fixture.
//
// Parameters:
//   - path: Path to the YAML fixture
//
// Returns:
//   - *Network: The validated fixture
//   - error: If the file cannot be read, parsed, or validation fails
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	return ParseNetwork(data)
}

// ParseNetwork parses and validates a YAML network fixture.
func ParseNetwork(data []byte) (*Network, error) {
	var n Network
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing network file: %w", err)
	}
	n.applyDefaults()
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Network) applyDefaults() {
	for h := range n.Homes {
		home := &n.Homes[h]
		if home.Interface == ozw.InterfaceUnknown {
			home.Interface = ozw.InterfaceSerial
		}
		if home.ControllerNodeID == 0 {
			home.ControllerNodeID = 1
		}
		for i := range home.Nodes {
			for v := range home.Nodes[i].Values {
				if home.Nodes[i].Values[v].Instance == 0 {
					home.Nodes[i].Values[v].Instance = 1
				}
			}
		}
	}
}

// Validate checks the fixture for errors.
//
// Returns:
//   - error: ErrInvalidNetwork describing every problem, or nil if valid
func (n *Network) Validate() error {
	var errs []string

	paths := make(map[string]bool)
	homeIDs := make(map[uint32]bool)
	for h, home := range n.Homes {
		prefix := fmt.Sprintf("homes[%d]", h)
		if home.Path == "" {
			errs = append(errs, prefix+".path is required")
		} else if paths[home.Path] {
			errs = append(errs, fmt.Sprintf("%s.path %q is duplicate", prefix, home.Path))
		}
		paths[home.Path] = true

		if home.HomeID == 0 {
			errs = append(errs, prefix+".home_id is required")
		} else if homeIDs[home.HomeID] {
			errs = append(errs, fmt.Sprintf("%s.home_id 0x%08x is duplicate", prefix, home.HomeID))
		}
		homeIDs[home.HomeID] = true

		errs = append(errs, validateNodes(prefix, home)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidNetwork, strings.Join(errs, "; "))
	}
	return nil
}

func validateNodes(prefix string, home HomeFixture) []string {
	var errs []string

	nodeIDs := make(map[uint8]bool)
	hasController := false
	for i, node := range home.Nodes {
		nodePrefix := fmt.Sprintf("%s.nodes[%d]", prefix, i)
		if node.ID == 0 || node.ID > MaxNodeID {
			errs = append(errs, fmt.Sprintf("%s.id %d is out of range 1-%d", nodePrefix, node.ID, MaxNodeID))
		}
		if nodeIDs[node.ID] {
			errs = append(errs, fmt.Sprintf("%s.id %d is duplicate", nodePrefix, node.ID))
		}
		nodeIDs[node.ID] = true
		if node.ID == home.ControllerNodeID {
			hasController = true
		}
		errs = append(errs, validateValues(nodePrefix, node.Values)...)
	}
	if len(home.Nodes) > 0 && !hasController {
		errs = append(errs, fmt.Sprintf("%s.controller_node_id %d has no node", prefix, home.ControllerNodeID))
	}
	return errs
}

func validateValues(prefix string, values []ValueFixture) []string {
	var errs []string

	type key struct{ cc, instance, index uint8 }
	seen := make(map[key]bool)
	for i, v := range values {
		valuePrefix := fmt.Sprintf("%s.values[%d]", prefix, i)
		k := key{v.CommandClass, v.Instance, v.Index}
		if seen[k] {
			errs = append(errs, fmt.Sprintf("%s duplicates command class 0x%02x instance %d index %d", valuePrefix, v.CommandClass, v.Instance, v.Index))
		}
		seen[k] = true

		if v.Type == ozw.TypeUnknown {
			errs = append(errs, valuePrefix+".type unknown is not supported")
			continue
		}
		if v.Min > v.Max {
			errs = append(errs, fmt.Sprintf("%s.min %d is greater than max %d", valuePrefix, v.Min, v.Max))
		}
		if v.Type == ozw.TypeList {
			if len(v.Items) == 0 {
				errs = append(errs, valuePrefix+".items is required for list values")
			}
			if len(v.ItemValues) != 0 && len(v.ItemValues) != len(v.Items) {
				errs = append(errs, valuePrefix+".item_values must match items")
			}
		}
		if _, err := initialValue(v); err != nil {
			errs = append(errs, fmt.Sprintf("%s.value: %v", valuePrefix, err))
		}
	}
	return errs
}
