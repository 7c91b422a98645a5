package simulator

import (
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// MaxNodeID is the highest node id in a Z-Wave mesh.
const MaxNodeID = 232

// controllerCommand is the inclusion or exclusion in progress on a home.
type controllerCommand uint8

const (
	commandNone controllerCommand = iota
	commandAddNode
	commandRemoveNode
)

// home is a controller that has been brought online by AddDriver.
type home struct {
	fixture HomeFixture
	id      uint32
	iface   ozw.ControllerInterface
	nodes   map[uint8]*node

	command controllerCommand
	secure  bool

	stats driverStats
}

// driverStats are the counters reported by LogDriverStatistics.
type driverStats struct {
	reads         uint64
	writes        uint64
	rejected      uint64
	polls         uint64
	notifications uint64
	frames        uint64
	timeouts      uint64
}

type node struct {
	info      ozw.NodeInfo
	neighbors []uint8
	classes   map[uint8]ozw.ClassInfo
	values    map[ozw.ValueID]*value
}

type value struct {
	current ozw.Value
	meta    ozw.ValueMeta
}

func newHome(f HomeFixture, iface ozw.ControllerInterface) (*home, error) {
	if iface == ozw.InterfaceUnknown {
		iface = f.Interface
	}
	h := &home{
		fixture: f,
		id:      f.HomeID,
		iface:   iface,
		nodes:   make(map[uint8]*node, len(f.Nodes)),
	}
	for _, nf := range f.Nodes {
		n, err := newNode(f.HomeID, nf)
		if err != nil {
			return nil, err
		}
		h.nodes[nf.ID] = n
	}
	return h, nil
}

func newNode(homeID uint32, f NodeFixture) (*node, error) {
	n := &node{
		info: ozw.NodeInfo{
			HomeID:            homeID,
			NodeID:            f.ID,
			Listening:         f.Listening,
			FrequentListening: f.FrequentListening,
			Beaming:           f.Beaming,
			Routing:           f.Routing,
			SecurityDevice:    f.Security,
			ZWavePlus:         f.ZWavePlus,
			InfoReceived:      true,
			Awake:             !f.Sleeping,
			Failed:            f.Failed,
			MaxBaudRate:       f.MaxBaudRate,
			Version:           f.Version,
			SecurityLevel:     f.SecurityLevel,
			Basic:             f.Basic,
			Generic:           f.Generic,
			Specific:          f.Specific,
			DeviceType:        f.DeviceType,
			Role:              f.Role,
			PlusType:          f.PlusType,
			Type:              f.Type,
			ManufacturerName:  f.ManufacturerName,
			ProductName:       f.ProductName,
			Name:              f.Name,
			Location:          f.Location,
			ManufacturerID:    f.ManufacturerID,
			ProductType:       f.ProductType,
			ProductID:         f.ProductID,
			QueryStage:        "Complete",
			DeviceTypeString:  f.DeviceTypeString,
			RoleString:        f.RoleString,
			PlusTypeString:    f.PlusTypeString,
		},
		neighbors: slices.Clone(f.Neighbors),
		classes:   make(map[uint8]ozw.ClassInfo, len(f.Classes)),
		values:    make(map[ozw.ValueID]*value, len(f.Values)),
	}
	for _, c := range f.Classes {
		n.classes[c.ID] = ozw.ClassInfo{Name: ozw.CommandClassName(c.ID), Version: max(c.Version, 1)}
	}
	for _, vf := range f.Values {
		id := ozw.ValueID{
			HomeID:         homeID,
			NodeID:         f.ID,
			CommandClassID: vf.CommandClass,
			Instance:       vf.Instance,
			Index:          vf.Index,
			Type:           vf.Type,
			Genre:          vf.Genre,
		}
		current, err := initialValue(vf)
		if err != nil {
			return nil, fmt.Errorf("node %d value %s: %w", f.ID, id, err)
		}
		n.values[id] = &value{
			current: current,
			meta: ozw.ValueMeta{
				Label:         vf.Label,
				Units:         vf.Units,
				Help:          vf.Help,
				Min:           vf.Min,
				Max:           vf.Max,
				ReadOnly:      vf.ReadOnly,
				WriteOnly:     vf.WriteOnly,
				Set:           vf.Value != "" || len(vf.Schedule) > 0,
				Polled:        vf.PollIntensity > 0,
				PollIntensity: vf.PollIntensity,
			},
		}
		// Values of a class the fixture forgot to list still imply the class.
		if _, ok := n.classes[vf.CommandClass]; !ok {
			n.classes[vf.CommandClass] = ozw.ClassInfo{Name: ozw.CommandClassName(vf.CommandClass), Version: 1}
		}
	}
	return n, nil
}

// initialValue builds the starting reading of a value fixture. An empty
// Value yields the type's zero reading.
func initialValue(f ValueFixture) (ozw.Value, error) {
	switch f.Type {
	case ozw.TypeList:
		values := f.ItemValues
		if len(values) == 0 {
			values = make([]int32, len(f.Items))
			for i := range values {
				values[i] = int32(i)
			}
		}
		list := ozw.ListValue{Items: slices.Clone(f.Items), Values: slices.Clone(values)}
		if len(f.Items) == 0 {
			return list, nil
		}
		selection := f.Value
		if selection == "" {
			selection = f.Items[0]
		}
		i := slices.Index(f.Items, selection)
		if i < 0 || i >= len(values) {
			return nil, fmt.Errorf("%w: %q is not a list item", ozw.ErrInvalidValue, selection)
		}
		list.Selection = selection
		list.Index = values[i]
		return list, nil
	case ozw.TypeSchedule:
		return ozw.ScheduleValue{Points: slices.Clone(f.Schedule)}, nil
	case ozw.TypeString:
		return ozw.StringValue(f.Value), nil
	case ozw.TypeRaw:
		if f.Value == "" {
			return ozw.RawValue{}, nil
		}
	case ozw.TypeBool, ozw.TypeButton:
		if f.Value == "" {
			return ozw.ParseValue(f.Type, "false")
		}
	case ozw.TypeDecimal:
		if f.Value == "" {
			return ozw.DecimalValue{Precision: f.Precision}, nil
		}
		v, err := ozw.ParseValue(f.Type, f.Value)
		if err != nil {
			return nil, err
		}
		d := v.(ozw.DecimalValue)
		if f.Precision > 0 {
			d.Precision = f.Precision
		}
		return d, nil
	default:
		if f.Value == "" {
			return ozw.ParseValue(f.Type, "0")
		}
	}
	return ozw.ParseValue(f.Type, f.Value)
}

// sortedNodeIDs returns the home's node ids in ascending order.
func (h *home) sortedNodeIDs() []uint8 {
	ids := make([]uint8, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// sortedValueIDs returns the node's value ids in ValueID order.
func (n *node) sortedValueIDs() []ozw.ValueID {
	ids := make([]ozw.ValueID, 0, len(n.values))
	for id := range n.values {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, ozw.ValueID.Compare)
	return ids
}

// freeNodeID returns the lowest unused node id.
func (h *home) freeNodeID() (uint8, bool) {
	for id := uint8(1); id <= MaxNodeID; id++ {
		if _, used := h.nodes[id]; !used {
			return id, true
		}
	}
	return 0, false
}
