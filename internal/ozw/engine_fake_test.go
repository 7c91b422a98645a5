package ozw

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEngine is an in-memory Engine. Notifications are delivered
// synchronously on the goroutine that calls emit.
type fakeEngine struct {
	mu        sync.Mutex
	values    map[ValueID]*fakeValue
	nodes     map[NodeRef]NodeInfo
	neighbors map[NodeRef][]uint8
	classes   map[NodeRef]map[uint8]ClassInfo
	sink      func(Notification)
	calls     []string
	closed    bool

	controllerResult bool
	pollInterval     time.Duration
	betweenPolls     bool
}

type fakeValue struct {
	value Value
	meta  ValueMeta
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		values:           make(map[ValueID]*fakeValue),
		nodes:            make(map[NodeRef]NodeInfo),
		neighbors:        make(map[NodeRef][]uint8),
		classes:          make(map[NodeRef]map[uint8]ClassInfo),
		controllerResult: true,
		pollInterval:     30 * time.Second,
	}
}

func (e *fakeEngine) addValue(id ValueID, v Value, meta ValueMeta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[id] = &fakeValue{value: v, meta: meta}
}

func (e *fakeEngine) addNode(info NodeInfo, neighbors []uint8, classes map[uint8]ClassInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ref := NodeRef{HomeID: info.HomeID, NodeID: info.NodeID}
	e.nodes[ref] = info
	e.neighbors[ref] = neighbors
	e.classes[ref] = classes
}

func (e *fakeEngine) emit(n Notification) {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()
	if sink != nil {
		sink(n)
	}
}

func (e *fakeEngine) record(call string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	return e.controllerResult
}

func (e *fakeEngine) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

func (e *fakeEngine) SetNotificationSink(sink func(Notification)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) Value(id ValueID) (Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fv, ok := e.values[id]
	if !ok || fv.meta.WriteOnly {
		return nil, false
	}
	return Clone(fv.value), true
}

func (e *fakeEngine) ValueString(id ValueID) (string, bool) {
	v, ok := e.Value(id)
	if !ok {
		return "", false
	}
	return v.Text(), true
}

func (e *fakeEngine) SetValue(id ValueID, v Value) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	fv, ok := e.values[id]
	if !ok || fv.meta.ReadOnly || v.Type() != id.Type {
		return false
	}
	switch val := v.(type) {
	case ByteValue:
		if !fv.inRange(int64(val)) {
			return false
		}
	case ShortValue:
		if !fv.inRange(int64(val)) {
			return false
		}
	case IntValue:
		if !fv.inRange(int64(val)) {
			return false
		}
	case DecimalValue:
		if val.Precision == 0 {
			val.Precision = fv.value.(DecimalValue).Precision
		}
		v = val
	case ListValue:
		current := fv.value.(ListValue)
		i := slices.Index(current.Items, val.Selection)
		if val.Selection == "" {
			i = slices.Index(current.Values, val.Index)
		}
		if i < 0 {
			return false
		}
		current.Selection = current.Items[i]
		current.Index = current.Values[i]
		v = current
	}
	fv.value = Clone(v)
	fv.meta.Set = true
	return true
}

func (fv *fakeValue) inRange(n int64) bool {
	if fv.meta.Min == 0 && fv.meta.Max == 0 {
		return true
	}
	return n >= int64(fv.meta.Min) && n <= int64(fv.meta.Max)
}

func (e *fakeEngine) SetValueString(id ValueID, text string) bool {
	v, err := ParseValue(id.Type, text)
	if err != nil {
		return false
	}
	return e.SetValue(id, v)
}

func (e *fakeEngine) ValueMeta(id ValueID) (ValueMeta, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fv, ok := e.values[id]
	if !ok {
		return ValueMeta{}, false
	}
	return fv.meta, true
}

func (e *fakeEngine) updateMeta(id ValueID, update func(*ValueMeta) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	fv, ok := e.values[id]
	if !ok {
		return false
	}
	return update(&fv.meta)
}

func (e *fakeEngine) SetValueLabel(id ValueID, label string) bool {
	return e.updateMeta(id, func(m *ValueMeta) bool { m.Label = label; return true })
}

func (e *fakeEngine) SetValueUnits(id ValueID, units string) bool {
	return e.updateMeta(id, func(m *ValueMeta) bool { m.Units = units; return true })
}

func (e *fakeEngine) SetValueHelp(id ValueID, help string) bool {
	return e.updateMeta(id, func(m *ValueMeta) bool { m.Help = help; return true })
}

func (e *fakeEngine) EnablePoll(id ValueID, intensity uint8) bool {
	if intensity == 0 {
		return e.DisablePoll(id)
	}
	return e.updateMeta(id, func(m *ValueMeta) bool {
		m.Polled = true
		m.PollIntensity = intensity
		return true
	})
}

func (e *fakeEngine) DisablePoll(id ValueID) bool {
	return e.updateMeta(id, func(m *ValueMeta) bool {
		if !m.Polled {
			return false
		}
		m.Polled = false
		m.PollIntensity = 0
		return true
	})
}

func (e *fakeEngine) SetPollIntensity(id ValueID, intensity uint8) bool {
	return e.updateMeta(id, func(m *ValueMeta) bool { m.PollIntensity = intensity; return true })
}

func (e *fakeEngine) PollInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollInterval
}

func (e *fakeEngine) SetPollInterval(interval time.Duration, betweenPolls bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollInterval = interval
	e.betweenPolls = betweenPolls
}

func (e *fakeEngine) Node(homeID uint32, nodeID uint8) (NodeInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, ok := e.nodes[NodeRef{HomeID: homeID, NodeID: nodeID}]
	return info, ok
}

func (e *fakeEngine) NodeNeighbors(homeID uint32, nodeID uint8) ([]uint8, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ref := NodeRef{HomeID: homeID, NodeID: nodeID}
	if _, ok := e.nodes[ref]; !ok {
		return nil, false
	}
	return slices.Clone(e.neighbors[ref]), true
}

func (e *fakeEngine) NodeClassInformation(homeID uint32, nodeID, commandClassID uint8) (ClassInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, ok := e.classes[NodeRef{HomeID: homeID, NodeID: nodeID}][commandClassID]
	return info, ok
}

func (e *fakeEngine) AddDriver(path string, iface ControllerInterface) bool {
	return e.record("add_driver " + path + " " + iface.String())
}
func (e *fakeEngine) RemoveDriver(path string) bool { return e.record("remove_driver " + path) }
func (e *fakeEngine) ResetController(uint32) bool   { return e.record("reset") }
func (e *fakeEngine) SoftReset(uint32) bool         { return e.record("soft_reset") }
func (e *fakeEngine) CancelControllerCommand(uint32) bool {
	return e.record("cancel")
}
func (e *fakeEngine) RequestNodeState(uint32, uint8) bool       { return e.record("request_node_state") }
func (e *fakeEngine) RequestAllConfigParams(uint32, uint8) bool { return e.record("request_config") }
func (e *fakeEngine) AddNode(_ uint32, secure bool) bool {
	if secure {
		return e.record("add_node secure")
	}
	return e.record("add_node")
}
func (e *fakeEngine) RemoveNode(uint32) bool                   { return e.record("remove_node") }
func (e *fakeEngine) TestNetworkNode(uint32, uint8, uint32) bool { return e.record("test_node") }
func (e *fakeEngine) TestNetwork(uint32, uint32) bool          { return e.record("test") }
func (e *fakeEngine) HealNetworkNode(uint32, uint8, bool) bool { return e.record("heal_node") }
func (e *fakeEngine) HealNetwork(uint32, bool) bool            { return e.record("heal") }
func (e *fakeEngine) ControllerNodeID(uint32) uint8            { return 1 }
func (e *fakeEngine) SUCNodeID(uint32) uint8                   { return 1 }
func (e *fakeEngine) IsPrimaryController(uint32) bool          { return true }
func (e *fakeEngine) IsBridgeController(uint32) bool           { return false }
func (e *fakeEngine) SendQueueCount(uint32) int32              { return 3 }
func (e *fakeEngine) LogDriverStatistics(uint32) bool          { return e.record("log_stats") }
func (e *fakeEngine) ControllerInterfaceType(uint32) ControllerInterface {
	return InterfaceSerial
}
func (e *fakeEngine) LibraryVersion(homeID uint32) (string, bool) {
	return "Z-Wave 4.05", homeID == testHome
}
func (e *fakeEngine) LibraryTypeName(homeID uint32) (string, bool) {
	return "Static Controller", homeID == testHome
}
func (e *fakeEngine) ControllerPath(homeID uint32) (string, bool) {
	return "/dev/ttyACM0", homeID == testHome
}

const testHome uint32 = 1

// newTestManager creates the process-wide Manager over engine and destroys
// it when the test ends.
func newTestManager(t *testing.T, engine Engine) *Manager {
	t.Helper()
	m, err := Create(Options{Engine: engine})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Destroy() })
	return m
}
