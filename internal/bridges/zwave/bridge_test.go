package zwave

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/history"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPath   = "/dev/ttyACM0"
	bridgePath = "/dev/ttyUSB1"

	testHome   uint32 = 0xc0ffee01
	bridgeHome uint32 = 0x0badf00d

	kettleAddress = "0xc0ffee01.5"
	dimmerAddress = "0xc0ffee01.9"

	waitFor  = 2 * time.Second
	waitTick = 5 * time.Millisecond
)

func vid(node, class, index uint8, t ozw.ValueType, g ozw.ValueGenre) ozw.ValueID {
	return ozw.ValueID{
		HomeID:         testHome,
		NodeID:         node,
		CommandClassID: class,
		Instance:       1,
		Index:          index,
		Type:           t,
		Genre:          g,
	}
}

var (
	switchID   = vid(5, ozw.ClassSwitchBinary, 0, ozw.TypeBool, ozw.GenreUser)
	powerID    = vid(5, ozw.ClassMeter, 8, ozw.TypeDecimal, ozw.GenreUser)
	intervalID = vid(5, ozw.ClassConfiguration, 3, ozw.TypeShort, ozw.GenreConfig)
	notifyID   = vid(5, ozw.ClassConfiguration, 80, ozw.TypeList, ozw.GenreConfig)
	resetID    = vid(5, ozw.ClassConfiguration, 100, ozw.TypeButton, ozw.GenreConfig)
	setpointID = vid(7, ozw.ClassThermostatSetpoint, 1, ozw.TypeDecimal, ozw.GenreUser)
)

type harness struct {
	engine  *simulator.Engine
	mgr     *ozw.Manager
	mqtt    *MockMQTTClient
	history *fakeHistory
	metrics *fakeMetrics
	bridge  *Bridge
}

// newHarness starts a bridge on a simulator behind a live Manager.
// Nothing is online until a driver is added.
func newHarness(t *testing.T) *harness {
	t.Helper()

	network, err := simulator.LoadNetwork("../../ozw/simulator/testdata/network.yaml")
	require.NoError(t, err)
	engine, err := simulator.New(simulator.Options{Network: network, PollInterval: time.Hour})
	require.NoError(t, err)
	mgr, err := ozw.Create(ozw.Options{Engine: engine})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Destroy() })

	h := &harness{
		engine:  engine,
		mgr:     mgr,
		mqtt:    NewMockMQTTClient(),
		history: newFakeHistory(),
		metrics: &fakeMetrics{},
	}
	h.bridge, err = NewBridge(BridgeOptions{
		ID:             "zwave",
		Version:        "test",
		HealthInterval: time.Hour,
		Manager:        mgr,
		MQTTClient:     h.mqtt,
		History:        h.history,
		Metrics:        h.metrics,
	})
	require.NoError(t, err)
	require.NoError(t, h.bridge.Start(context.Background()))
	t.Cleanup(h.bridge.Stop)
	return h
}

// online adds a driver and waits until the bridge has handled the whole
// start-up sequence, which ends with a health publish.
func (h *harness) online(t *testing.T, path string, homeID uint32) {
	t.Helper()
	require.True(t, h.mgr.AddDriver(path, ozw.InterfaceSerial))
	require.Eventually(t, func() bool {
		for _, msg := range h.healthMessages() {
			for _, home := range msg.Homes {
				if home.HomeID == FormatHomeID(homeID) && home.Queried {
					return true
				}
			}
		}
		return false
	}, waitFor, waitTick)
}

type healthView struct {
	Status HealthStatus `json:"status"`
	Reason string       `json:"reason"`
	Homes  []struct {
		HomeID          string `json:"home_id"`
		Ready           bool   `json:"ready"`
		Queried         bool   `json:"queried"`
		SomeDead        bool   `json:"some_dead"`
		ControllerState string `json:"controller_state"`
	} `json:"homes"`
	Statistics     BridgeStatistics `json:"statistics"`
	DevicesManaged int              `json:"devices_managed"`
}

func (h *harness) healthMessages() []healthView {
	var out []healthView
	for _, p := range h.mqtt.OnTopic(HealthTopic()) {
		out = append(out, decode[healthView](p))
	}
	return out
}

// latestState returns the newest retained state of a node address.
func (h *harness) latestState(address string) (StateMessage, bool) {
	msgs := h.mqtt.OnTopic(StateTopic(address))
	if len(msgs) == 0 || len(msgs[len(msgs)-1].Payload) == 0 {
		return StateMessage{}, false
	}
	return decode[StateMessage](msgs[len(msgs)-1]), true
}

func (h *harness) stateValue(address string, id ozw.ValueID) any {
	state, ok := h.latestState(address)
	if !ok {
		return nil
	}
	return state.Values[id.String()].Value
}

func (h *harness) sendCommand(t *testing.T, address string, cmd CommandMessage) AckMessage {
	t.Helper()
	payload, err := json.Marshal(&cmd)
	require.NoError(t, err)

	before := len(h.mqtt.OnTopic(AckTopic(address)))
	h.mqtt.SimulateMessage(CommandTopic(address), payload)

	acks := h.mqtt.OnTopic(AckTopic(address))
	require.Len(t, acks, before+1, "one ack per command")
	return decode[AckMessage](acks[len(acks)-1])
}

func (h *harness) sendRequest(t *testing.T, action string, params map[string]any) ResponseMessage {
	t.Helper()
	id := "req-" + action
	payload, err := json.Marshal(RequestMessage{RequestID: id, Timestamp: time.Now().UTC(), Action: action, Parameters: params})
	require.NoError(t, err)

	before := len(h.mqtt.OnTopic(ResponseTopic(id)))
	h.mqtt.SimulateMessage(RequestTopic(id), payload)

	responses := h.mqtt.OnTopic(ResponseTopic(id))
	require.Len(t, responses, before+1, "one response per request")
	return decode[ResponseMessage](responses[len(responses)-1])
}

func setValue(id ozw.ValueID, value any) CommandMessage {
	return CommandMessage{
		ID:         "cmd-" + id.String(),
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DeviceID:   "kettle",
		Command:    CommandSetValue,
		Parameters: map[string]any{"value_id": id.String(), "value": value},
		Source:     "api",
	}
}

func TestNewBridgeValidation(t *testing.T) {
	_, err := NewBridge(BridgeOptions{MQTTClient: NewMockMQTTClient()})
	assert.Error(t, err, "manager required")

	_, err = NewBridge(BridgeOptions{Manager: &ozw.Manager{}})
	assert.Error(t, err, "MQTT client required")

	b, err := NewBridge(BridgeOptions{Manager: &ozw.Manager{}, MQTTClient: NewMockMQTTClient()})
	require.NoError(t, err)
	assert.Equal(t, "zwave", b.ID())
	assert.Equal(t, defaultQueueSize, cap(b.queue))

	_, err = b.Execute(ActionListNodes, nil)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, ErrCodeBridgeError, ErrorCode(err))
	assert.Equal(t, ErrCodeInvalidParameters, ErrorCode(invalidParameters("bad %s", "home")))
}

func TestBridgeStart(t *testing.T) {
	h := newHarness(t)

	subs := h.mqtt.GetSubscriptions()
	require.Len(t, subs, 2)
	assert.Equal(t, "graylogic/command/zwave/+", subs[0].Topic)
	assert.Equal(t, "graylogic/request/zwave/+", subs[1].Topic)
	assert.True(t, h.mgr.HasWatcher(h.bridge))

	health := h.healthMessages()
	require.NotEmpty(t, health)
	assert.Equal(t, HealthStarting, health[0].Status)
	assert.Equal(t, HealthDegraded, health[len(health)-1].Status, "no controllers yet")

	assert.Error(t, h.bridge.Start(context.Background()), "second start")
}

func TestBridgePublishesNodeState(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	state, ok := h.latestState(kettleAddress)
	require.True(t, ok)
	assert.Equal(t, kettleAddress, state.Address)
	assert.Equal(t, "0xc0ffee01", state.HomeID)
	assert.Equal(t, uint8(5), state.NodeID)
	assert.Equal(t, "Kettle", state.Name)
	assert.Equal(t, "Kitchen", state.Location)
	assert.Equal(t, NodeStatusAlive, state.Status)
	assert.Equal(t, Protocol, state.Protocol)
	require.Len(t, state.Values, 5)

	sw := state.Values[switchID.String()]
	assert.Equal(t, "Switch", sw.Label)
	assert.Equal(t, false, sw.Value)
	assert.Equal(t, "COMMAND_CLASS_SWITCH_BINARY", sw.CommandClass)
	assert.Equal(t, ozw.TypeBool, sw.Type)

	power := state.Values[powerID.String()]
	assert.InDelta(t, 12.5, power.Value, 0.001)
	assert.Equal(t, "W", power.Units)
	assert.True(t, power.ReadOnly)

	assert.Equal(t, "Nothing", state.Values[notifyID.String()].Value)
	reset := state.Values[resetID.String()]
	assert.True(t, reset.WriteOnly)
	assert.Nil(t, reset.Value, "write-only values carry no reading")

	for _, p := range h.mqtt.OnTopic(StateTopic(kettleAddress)) {
		assert.True(t, p.Retained)
		assert.Equal(t, byte(1), p.QoS)
	}

	dimmer, ok := h.latestState(dimmerAddress)
	require.True(t, ok)
	assert.Equal(t, NodeStatusDead, dimmer.Status)

	last := h.healthMessages()
	assert.Equal(t, HealthDegraded, last[len(last)-1].Status, "node 9 is dead")
	assert.Equal(t, 4, last[len(last)-1].DevicesManaged)
}

func TestBridgeDiscoveryAndInventory(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	var kettle *DiscoveredNode
	for _, p := range h.mqtt.OnTopic(DiscoveryTopic()) {
		assert.False(t, p.Retained)
		msg := decode[DiscoveryMessage](p)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "zwave", msg.Bridge)
		for _, node := range msg.Nodes {
			if node.Address == kettleAddress {
				kettle = &node
			}
		}
	}
	require.NotNil(t, kettle, "kettle announced")
	assert.Equal(t, "Smart Switch 6", kettle.Product)
	assert.Equal(t, "Aeotec", kettle.Manufacturer)
	assert.Contains(t, kettle.Classes, "COMMAND_CLASS_SWITCH_BINARY")

	info, ok := h.history.node(ozw.NodeRef{HomeID: testHome, NodeID: 5})
	require.True(t, ok, "node stored in history")
	assert.Equal(t, "Kettle", info.Name)

	nodes := h.bridge.DiscoveredNodes()
	require.Len(t, nodes, 4)
	assert.Equal(t, "0xc0ffee01.1", nodes[0].Address)
	assert.True(t, nodes[3].Failed)

	ids := h.bridge.Inventory().NodeValues(testHome, 5)
	require.Len(t, ids, 5)
	for i := 1; i < len(ids); i++ {
		assert.True(t, ids[i-1].Less(ids[i]), "values listed in identity order")
	}
}

func TestBridgeValueChange(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	require.NoError(t, h.engine.Report(switchID, "true"))

	require.Eventually(t, func() bool {
		return h.stateValue(kettleAddress, switchID) == true
	}, waitFor, waitTick)

	require.Eventually(t, func() bool {
		return len(h.history.recorded(switchID, history.SourceReport)) == 1
	}, waitFor, waitTick)
	assert.Equal(t, []ozw.Value{ozw.BoolValue(true)}, h.history.recorded(switchID, history.SourceReport))

	metrics := h.metrics.valueMetrics(switchID.String())
	require.Len(t, metrics, 1)
	assert.InDelta(t, 1.0, metrics[0].Value, 0.0001)
	assert.Equal(t, "Switch", metrics[0].Label)
	assert.Equal(t, uint8(5), metrics[0].NodeID)
}

func TestBridgeChangeDetection(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)
	before := len(h.mqtt.OnTopic(StateTopic(kettleAddress)))

	require.True(t, h.mgr.RequestNodeState(testHome, 5))

	// Refreshes with unchanged readings are recorded but not republished.
	require.Eventually(t, func() bool {
		return len(h.history.recorded(notifyID, history.SourceRefresh)) == 1
	}, waitFor, waitTick)
	assert.Len(t, h.history.recorded(switchID, history.SourceRefresh), 1)
	assert.Empty(t, h.history.recorded(resetID, history.SourceRefresh), "write-only values have no reading")
	assert.Len(t, h.mqtt.OnTopic(StateTopic(kettleAddress)), before)
}

func TestBridgeSetValueCommand(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	ack := h.sendCommand(t, kettleAddress, setValue(switchID, true))
	assert.Equal(t, AckAccepted, ack.Status)
	assert.Equal(t, "cmd-"+switchID.String(), ack.CommandID)
	assert.Equal(t, switchID.String(), ack.ValueID)
	assert.Equal(t, kettleAddress, ack.Address)
	assert.Equal(t, Protocol, ack.Protocol)
	assert.Nil(t, ack.Error)

	v, err := h.mgr.Value(switchID)
	require.NoError(t, err)
	assert.Equal(t, ozw.BoolValue(true), v)
	assert.Equal(t, []ozw.Value{ozw.BoolValue(true)}, h.history.recorded(switchID, history.SourceCommand))

	require.Eventually(t, func() bool {
		return h.stateValue(kettleAddress, switchID) == true
	}, waitFor, waitTick)

	ack = h.sendCommand(t, kettleAddress, setValue(notifyID, "Hail"))
	assert.Equal(t, AckAccepted, ack.Status)
	ack = h.sendCommand(t, kettleAddress, setValue(intervalID, 60))
	assert.Equal(t, AckAccepted, ack.Status)
	ack = h.sendCommand(t, kettleAddress, setValue(resetID, true))
	assert.Equal(t, AckAccepted, ack.Status, "buttons are write-only")

	require.Eventually(t, func() bool {
		return h.stateValue(kettleAddress, notifyID) == "Hail"
	}, waitFor, waitTick)
}

func TestBridgeCommandErrors(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	unknownValue := vid(5, ozw.ClassSwitchBinary, 9, ozw.TypeBool, ozw.GenreUser)
	noValueID := setValue(switchID, true)
	noValueID.Parameters = map[string]any{"value": true}
	noValue := setValue(switchID, true)
	noValue.Parameters = map[string]any{"value_id": switchID.String()}
	unknownCommand := setValue(switchID, true)
	unknownCommand.Command = "explode"

	tests := []struct {
		name    string
		address string
		cmd     CommandMessage
		code    string
	}{
		{"bad address", "kettle", setValue(switchID, true), ErrCodeInvalidParameters},
		{"unknown node", "0xc0ffee01.42", setValue(switchID, true), ErrCodeDeviceUnreachable},
		{"unknown command", kettleAddress, unknownCommand, ErrCodeInvalidCommand},
		{"missing value id", kettleAddress, noValueID, ErrCodeInvalidParameters},
		{"missing value", kettleAddress, noValue, ErrCodeInvalidParameters},
		{"value of another node", kettleAddress, setValue(setpointID, 21.0), ErrCodeInvalidParameters},
		{"unknown value", kettleAddress, setValue(unknownValue, true), ErrCodeUnknownValue},
		{"unparsable value", kettleAddress, setValue(switchID, "maybe"), ErrCodeInvalidParameters},
		{"read-only", kettleAddress, setValue(powerID, 99.5), ErrCodeRejected},
		{"out of range", kettleAddress, setValue(intervalID, 0), ErrCodeRejected},
		{"unknown list item", kettleAddress, setValue(notifyID, "Siren"), ErrCodeRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := h.sendCommand(t, tt.address, tt.cmd)
			assert.Equal(t, AckFailed, ack.Status)
			require.NotNil(t, ack.Error)
			assert.Equal(t, tt.code, ack.Error.Code)
			assert.NotEmpty(t, ack.Error.Message)
		})
	}

	assert.Empty(t, h.history.recorded(powerID, history.SourceCommand))
	assert.Positive(t, h.bridge.Statistics().Errors)
}

func TestBridgeMalformedMessages(t *testing.T) {
	h := newHarness(t)
	h.mqtt.ClearPublished()

	h.mqtt.SimulateMessage(CommandTopic(kettleAddress), []byte("{not json"))
	h.mqtt.SimulateMessage(RequestTopic("req-1"), []byte("[]"))

	assert.Empty(t, h.mqtt.GetPublished(), "unparsable messages are dropped")
	stats := h.bridge.Statistics()
	assert.Equal(t, uint64(1), stats.CommandsReceived)
	assert.Equal(t, uint64(1), stats.RequestsReceived)
}

func TestBridgeInclusionAndExclusion(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	resp := h.sendRequest(t, ActionAddNode, map[string]any{"secure": true})
	require.True(t, resp.Success, "%+v", resp.Error)
	assert.Equal(t, "0xc0ffee01", resp.Data["home_id"])

	nodeID, err := h.engine.IncludeNode(testHome, simulator.NodeFixture{
		Name:        "Hall light",
		ProductName: "Wall Switch",
		Values: []simulator.ValueFixture{
			{CommandClass: ozw.ClassSwitchBinary, Type: ozw.TypeBool, Genre: ozw.GenreUser, Value: "false", Label: "Switch"},
		},
	})
	require.NoError(t, err)
	address := NodeAddress(testHome, nodeID)

	require.Eventually(t, func() bool {
		state, ok := h.latestState(address)
		return ok && state.Name == "Hall light" && len(state.Values) == 1
	}, waitFor, waitTick)
	require.Eventually(t, func() bool {
		_, ok := h.history.node(ozw.NodeRef{HomeID: testHome, NodeID: nodeID})
		return ok
	}, waitFor, waitTick)

	resp = h.sendRequest(t, ActionRemoveNode, map[string]any{"home_id": "0xc0ffee01"})
	require.True(t, resp.Success, "%+v", resp.Error)
	require.NoError(t, h.engine.ExcludeNode(testHome, nodeID))

	ref := ozw.NodeRef{HomeID: testHome, NodeID: nodeID}
	require.Eventually(t, func() bool { return h.history.wasDeleted(ref) }, waitFor, waitTick)
	_, ok := h.latestState(address)
	assert.False(t, ok, "retained state cleared")
	assert.False(t, h.bridge.Inventory().HasNode(testHome, nodeID))

	resp = h.sendRequest(t, ActionCancel, nil)
	assert.False(t, resp.Success, "nothing to cancel")
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRejected, resp.Error.Code)
}

func TestBridgeNetworkRequests(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	tests := []struct {
		name    string
		action  string
		params  map[string]any
		success bool
		code    string
	}{
		{"heal", ActionHeal, map[string]any{"return_routes": true}, true, ""},
		{"heal node", ActionHealNode, map[string]any{"node_id": 5.0}, true, ""},
		{"test", ActionTest, map[string]any{"count": 3.0}, true, ""},
		{"test node", ActionTestNode, map[string]any{"node_id": "7"}, true, ""},
		{"refresh node", ActionRefreshNode, map[string]any{"node_id": 5.0}, true, ""},
		{"request config", ActionRequestConfig, map[string]any{"node_id": 5.0}, true, ""},
		{"soft reset", ActionSoftReset, nil, true, ""},
		{"read node", ActionReadNode, map[string]any{"node_id": 5.0}, true, ""},
		{"unknown action", "reboot", nil, false, ErrCodeInvalidCommand},
		{"missing node", ActionHealNode, nil, false, ErrCodeInvalidParameters},
		{"unknown node", ActionHealNode, map[string]any{"node_id": 42.0}, false, ErrCodeDeviceUnreachable},
		{"bad node id", ActionTestNode, map[string]any{"node_id": 0.0}, false, ErrCodeInvalidParameters},
		{"unknown home", ActionHeal, map[string]any{"home_id": "0x12345678"}, false, ErrCodeDeviceUnreachable},
		{"bad home", ActionHeal, map[string]any{"home_id": "kitchen"}, false, ErrCodeInvalidParameters},
		{"bad count", ActionTest, map[string]any{"count": 0.0}, false, ErrCodeInvalidParameters},
		{"bad flag", ActionHeal, map[string]any{"return_routes": 1.0}, false, ErrCodeInvalidParameters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.sendRequest(t, tt.action, tt.params)
			assert.Equal(t, "req-"+tt.action, resp.RequestID)
			assert.Equal(t, tt.success, resp.Success)
			if tt.success {
				assert.Nil(t, resp.Error)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestBridgeRequestHomeSelection(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)
	h.online(t, bridgePath, bridgeHome)

	resp := h.sendRequest(t, ActionHeal, nil)
	assert.False(t, resp.Success, "two homes need an explicit home_id")
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParameters, resp.Error.Code)

	resp = h.sendRequest(t, ActionHeal, map[string]any{"home_id": float64(bridgeHome)})
	assert.True(t, resp.Success)

	resp = h.sendRequest(t, ActionAddNode, map[string]any{"home_id": "0x0badf00d"})
	assert.False(t, resp.Success, "secondary controllers cannot include")

	resp = h.sendRequest(t, ActionListNodes, nil)
	require.True(t, resp.Success)
	nodes, ok := resp.Data["nodes"].([]any)
	require.True(t, ok)
	assert.Len(t, nodes, 5)
}

func TestBridgeNodeStatus(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)
	ref := ozw.NodeRef{HomeID: testHome, NodeID: 5}

	require.NoError(t, h.engine.SetNodeFailed(testHome, 5, true))
	require.Eventually(t, func() bool {
		state, ok := h.latestState(kettleAddress)
		return ok && state.Status == NodeStatusDead
	}, waitFor, waitTick)
	require.Eventually(t, func() bool {
		info, ok := h.history.node(ref)
		return ok && info.Failed
	}, waitFor, waitTick)

	require.NoError(t, h.engine.SetNodeFailed(testHome, 5, false))
	require.Eventually(t, func() bool {
		state, ok := h.latestState(kettleAddress)
		return ok && state.Status == NodeStatusAlive
	}, waitFor, waitTick)
}

func TestBridgeDriverRemoved(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	require.True(t, h.mgr.RemoveDriver(testPath))
	require.Eventually(t, func() bool {
		_, ok := h.latestState(kettleAddress)
		return !ok
	}, waitFor, waitTick)
	_, known := h.bridge.Inventory().Home(testHome)
	assert.False(t, known)
	assert.False(t, h.history.wasDeleted(ozw.NodeRef{HomeID: testHome, NodeID: 5}),
		"history survives a controller going away")
}

func TestBridgeQueueOverflow(t *testing.T) {
	b, err := NewBridge(BridgeOptions{Manager: &ozw.Manager{}, MQTTClient: NewMockMQTTClient(), QueueSize: 2})
	require.NoError(t, err)

	for range 5 {
		b.OnNotification(ozw.Notification{Type: ozw.NotificationNodeAdded, HomeID: testHome, NodeID: 5})
	}

	stats := b.Statistics()
	assert.Equal(t, uint64(5), stats.NotificationsReceived)
	assert.Equal(t, uint64(3), stats.NotificationsDropped)
}

func TestBridgeStop(t *testing.T) {
	h := newHarness(t)
	h.online(t, testPath, testHome)

	h.bridge.Stop()
	h.bridge.Stop()

	assert.False(t, h.mgr.HasWatcher(h.bridge))
	health := h.healthMessages()
	require.GreaterOrEqual(t, len(health), 2)
	assert.Equal(t, HealthStopping, health[len(health)-2].Status)
	assert.Equal(t, HealthOffline, health[len(health)-1].Status)
	assert.Equal(t, "shutdown", health[len(health)-1].Reason)
	assert.Positive(t, h.metrics.statCount(), "bridge counters written")

	// Notifications after Stop are not handled.
	before := len(h.mqtt.GetPublished())
	require.NoError(t, h.engine.Report(switchID, "true"))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.mqtt.GetPublished(), before)
}
