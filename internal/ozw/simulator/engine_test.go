package simulator_test

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDriverAnnouncesHome(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	inv := ozw.NewInventory()
	require.True(t, h.mgr.AddWatcher(inv))

	require.True(t, h.mgr.AddDriver(testPath, ozw.InterfaceUnknown))
	h.await(t, ofType(ozw.NotificationAllNodesQueriedSomeDead))

	events := h.rec.events()
	require.NotEmpty(t, events)
	assert.Equal(t, ozw.NotificationDriverReady, events[0].Type)
	assert.Equal(t, testHome, events[0].HomeID)
	assert.Equal(t, uint8(1), events[0].NodeID)

	var node5 []ozw.NotificationType
	for _, n := range events {
		if n.NodeID == 5 && n.Type != ozw.NotificationValueAdded {
			node5 = append(node5, n.Type)
		}
	}
	assert.Equal(t, []ozw.NotificationType{
		ozw.NotificationNodeAdded,
		ozw.NotificationNodeProtocolInfo,
		ozw.NotificationNodeNaming,
		ozw.NotificationEssentialNodeQueriesComplete,
		ozw.NotificationNodeQueriesComplete,
	}, node5)

	added := h.rec.matching(func(n ozw.Notification) bool {
		return n.Type == ozw.NotificationValueAdded && n.NodeID == 5
	})
	require.Len(t, added, 5)
	assert.Equal(t, switchID, added[0].ValueID, "values are announced in identity order")
	assert.Equal(t, resetID, added[4].ValueID)

	dead := h.rec.matching(func(n ozw.Notification) bool {
		return n.Type == ozw.NotificationNotification && n.Code == ozw.CodeDead
	})
	require.Len(t, dead, 1)
	assert.Equal(t, uint8(9), dead[0].NodeID)
	assert.False(t, h.rec.has(func(n ozw.Notification) bool {
		return n.NodeID == 9 && n.Type == ozw.NotificationNodeQueriesComplete
	}), "a dead node never completes its queries")

	state, ok := inv.Home(testHome)
	require.True(t, ok)
	assert.True(t, state.Ready)
	assert.True(t, state.Queried)
	assert.True(t, state.SomeDead)
	nodes, values := inv.Counts()
	assert.Equal(t, 4, nodes)
	assert.Equal(t, 13, values)
}

func TestAddDriverAllAlive(t *testing.T) {
	h := newHarness(t, simulator.Options{})

	require.True(t, h.mgr.AddDriver(bridgePath, ozw.InterfaceHID))
	h.await(t, func(n ozw.Notification) bool {
		return n.Type == ozw.NotificationAllNodesQueried && n.HomeID == bridgeHome
	})
	assert.Equal(t, ozw.InterfaceHID, h.mgr.ControllerInterfaceType(bridgeHome), "explicit interface wins over the fixture")
}

func TestAddDriverUnknownPath(t *testing.T) {
	h := newHarness(t, simulator.Options{})

	assert.True(t, h.mgr.AddDriver("/dev/nothing", ozw.InterfaceSerial))
	h.await(t, ofType(ozw.NotificationDriverFailed))
	assert.Empty(t, h.rec.matching(ofType(ozw.NotificationDriverReady)))
}

func TestAddDriverTwice(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	assert.False(t, h.mgr.AddDriver(testPath, ozw.InterfaceSerial))
}

func TestRemoveDriver(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	require.True(t, h.mgr.RemoveDriver(testPath))
	h.await(t, ofType(ozw.NotificationDriverRemoved))
	assert.False(t, h.mgr.RemoveDriver(testPath))

	_, err := h.mgr.Value(switchID)
	assert.ErrorIs(t, err, ozw.ErrUnavailable)
	_, ok := h.mgr.Node(testHome, 5)
	assert.False(t, ok)
	_, ok = h.mgr.Controller(testHome)
	assert.False(t, ok)

	// The same controller can come back.
	require.True(t, h.mgr.AddDriver(testPath, ozw.InterfaceSerial))
	h.await(t, ofType(ozw.NotificationAllNodesQueriedSomeDead))
}

func TestNodeQueries(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	assert.True(t, h.mgr.IsNodeListeningDevice(testHome, 5))
	assert.True(t, h.mgr.IsNodeBeamingDevice(testHome, 5))
	assert.True(t, h.mgr.IsNodeZWavePlus(testHome, 5))
	assert.True(t, h.mgr.IsNodeFrequentListeningDevice(testHome, 7))
	assert.True(t, h.mgr.IsNodeSecurityDevice(testHome, 7))
	assert.True(t, h.mgr.IsNodeFailed(testHome, 9))
	assert.True(t, h.mgr.IsNodeInfoReceived(testHome, 9))
	assert.Equal(t, uint32(100000), h.mgr.NodeMaxBaudRate(testHome, 7))
	assert.Equal(t, uint8(0x10), h.mgr.NodeGeneric(testHome, 5))
	assert.Equal(t, uint16(0x0700), h.mgr.NodeDeviceType(testHome, 5))

	name, ok := h.mgr.NodeString(testHome, 5, ozw.NodeName)
	require.True(t, ok)
	assert.Equal(t, "Kettle", name)
	stage, ok := h.mgr.NodeString(testHome, 5, ozw.NodeQueryStage)
	require.True(t, ok)
	assert.Equal(t, "Complete", stage)

	neighbors, ok := h.mgr.NodeNeighbors(testHome, 5)
	require.True(t, ok)
	assert.Equal(t, []uint8{1, 7}, neighbors)

	className, version, ok := h.mgr.NodeClassInformation(testHome, 5, ozw.ClassMeter)
	require.True(t, ok)
	assert.Equal(t, "COMMAND_CLASS_METER", className)
	assert.Equal(t, uint8(3), version)

	// Command classes of declared values are implied.
	_, version, ok = h.mgr.NodeClassInformation(testHome, 5, ozw.ClassConfiguration)
	require.True(t, ok)
	assert.Equal(t, uint8(1), version)

	_, _, ok = h.mgr.NodeClassInformation(testHome, 5, ozw.ClassBattery)
	assert.False(t, ok)
}

func TestControllerInfo(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	info, ok := h.mgr.Controller(testHome)
	require.True(t, ok)
	assert.Equal(t, testPath, info.Path)
	assert.Equal(t, uint8(1), info.NodeID)
	assert.Equal(t, uint8(1), info.SUCNodeID)
	assert.True(t, info.Primary)
	assert.False(t, info.Bridge)
	assert.Equal(t, ozw.InterfaceSerial, info.Interface)
	assert.Equal(t, "Z-Wave 4.05", info.LibraryVersion)
	assert.Equal(t, "Static Controller", info.LibraryTypeName)
}

func TestSwitchWrite(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	on, ok := h.mgr.ValueAsBool(switchID)
	require.True(t, ok)
	assert.False(t, on)

	require.True(t, h.mgr.SetValueBool(switchID, true))
	h.await(t, forValue(ozw.NotificationValueChanged, switchID))
	on, ok = h.mgr.ValueAsBool(switchID)
	require.True(t, ok)
	assert.True(t, on)

	// Writing the same reading again only refreshes.
	require.True(t, h.mgr.SetValueBool(switchID, true))
	h.await(t, forValue(ozw.NotificationValueRefreshed, switchID))
	assert.Len(t, h.rec.matching(forValue(ozw.NotificationValueChanged, switchID)), 1)
}

func TestTypedRoundTrips(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	require.True(t, h.mgr.SetValueShort(intervalID, 60))
	got16, ok := h.mgr.ValueAsShort(intervalID)
	require.True(t, ok)
	assert.Equal(t, int16(60), got16)

	require.True(t, h.mgr.SetValueInt(wakeID, 900))
	got32, ok := h.mgr.ValueAsInt(wakeID)
	require.True(t, ok)
	assert.Equal(t, int32(900), got32)

	// A decimal write without precision keeps the reported precision.
	require.True(t, h.mgr.SetValueFloat(setpointID, 22.5))
	text, ok := h.mgr.ValueAsString(setpointID)
	require.True(t, ok)
	assert.Equal(t, "22.5", text)
	precision, ok := h.mgr.ValueFloatPrecision(setpointID)
	require.True(t, ok)
	assert.Equal(t, uint8(1), precision)

	require.True(t, h.mgr.SetValueListSelection(modeID, "Energy Heat"))
	selected, ok := h.mgr.ValueListSelectionValue(modeID)
	require.True(t, ok)
	assert.Equal(t, int32(11), selected)
	label, ok := h.mgr.ValueListSelectionString(modeID)
	require.True(t, ok)
	assert.Equal(t, "Energy Heat", label)

	raw, ok := h.mgr.ValueAsRaw(serialID)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, raw)
	require.True(t, h.mgr.SetValueRaw(serialID, []byte{0xca, 0xfe}))
	raw, ok = h.mgr.ValueAsRaw(serialID)
	require.True(t, ok)
	assert.Equal(t, []byte{0xca, 0xfe}, raw)

	require.True(t, h.mgr.SetValueString(intervalID, "0x20"))
	got16, ok = h.mgr.ValueAsShort(intervalID)
	require.True(t, ok)
	assert.Equal(t, int16(32), got16)

	v, err := h.mgr.Value(scheduleID)
	require.NoError(t, err)
	schedule, ok := v.(ozw.ScheduleValue)
	require.True(t, ok)
	assert.Equal(t, []ozw.SwitchPoint{{Hours: 6, Minutes: 30}, {Hours: 22, Setback: -20}}, schedule.Points)
}

func TestWriteRejections(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	assert.False(t, h.mgr.SetValueFloat(tempID, 30), "read-only")
	assert.False(t, h.mgr.SetValueInt(wakeID, 10), "below min")
	assert.False(t, h.mgr.SetValueInt(wakeID, 4000), "above max")
	assert.False(t, h.mgr.SetValueListSelection(modeID, "Cool"), "not an item")
	assert.False(t, h.mgr.SetValueString(wakeID, "soon"), "unparseable")

	got, ok := h.mgr.ValueAsInt(wakeID)
	require.True(t, ok)
	assert.Equal(t, int32(300), got, "rejected writes leave the reading alone")

	stats, ok := h.engine.Statistics(testHome)
	require.True(t, ok)
	assert.Equal(t, uint64(4), stats.Rejected)
	assert.Zero(t, stats.Writes)
}

func TestListSelectionByLabelAndValue(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	require.True(t, h.mgr.SetValueListSelection(notifyID, "Hail"))
	assert.False(t, h.mgr.SetValueListSelection(notifyID, ""))
	label, ok := h.mgr.ValueListSelectionString(notifyID)
	require.True(t, ok)
	assert.Equal(t, "Hail", label, "a failed write keeps the selection")

	require.True(t, h.mgr.SetValueListSelectionValue(notifyID, 2))
	label, ok = h.mgr.ValueListSelectionString(notifyID)
	require.True(t, ok)
	assert.Equal(t, "Basic Report", label)
	assert.False(t, h.mgr.SetValueListSelectionValue(notifyID, 9))
}

func TestWriteOnlyValues(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	_, ok := h.mgr.ValueAsString(codeID)
	assert.False(t, ok)
	assert.True(t, h.mgr.IsValueWriteOnly(codeID))
	assert.True(t, h.mgr.SetValueString(codeID, "4321"))

	assert.True(t, h.mgr.SetValueBool(resetID, true), "buttons accept bool writes")
	h.await(t, forValue(ozw.NotificationValueChanged, resetID))
}

func TestValueMetadata(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	label, ok := h.mgr.ValueLabel(intervalID)
	require.True(t, ok)
	assert.Equal(t, "Report interval", label)
	help, ok := h.mgr.ValueHelp(intervalID)
	require.True(t, ok)
	assert.Equal(t, "Seconds between power reports", help)
	lo, ok := h.mgr.ValueMin(intervalID)
	require.True(t, ok)
	assert.Equal(t, int32(1), lo)
	hi, ok := h.mgr.ValueMax(intervalID)
	require.True(t, ok)
	assert.Equal(t, int32(3600), hi)
	assert.True(t, h.mgr.IsValueSet(intervalID))
	assert.False(t, h.mgr.IsValueSet(resetID))
	assert.True(t, h.mgr.IsValueReadOnly(tempID))

	require.True(t, h.mgr.SetValueUnits(intervalID, "seconds"))
	units, ok := h.mgr.ValueUnits(intervalID)
	require.True(t, ok)
	assert.Equal(t, "seconds", units)

	items, ok := h.mgr.ValueListItems(notifyID)
	require.True(t, ok)
	assert.Equal(t, []string{"Nothing", "Hail", "Basic Report"}, items)
	values, ok := h.mgr.ValueListValues(modeID)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1, 11}, values)
}

func TestReport(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	require.NoError(t, h.engine.Report(tempID, "23.0"))
	h.await(t, forValue(ozw.NotificationValueChanged, tempID))
	got, ok := h.mgr.ValueAsFloat(tempID)
	require.True(t, ok)
	assert.InDelta(t, 23.0, got, 0.001)
	assert.True(t, h.mgr.IsValueReadOnly(tempID), "a report does not make the value writable")

	assert.ErrorIs(t, h.engine.Report(tempID, "warm"), ozw.ErrInvalidValue)
	assert.ErrorIs(t, h.engine.Report(wakeID, "5"), ozw.ErrRejected)

	unknown := switchID
	unknown.Index = 42
	assert.ErrorIs(t, h.engine.Report(unknown, "true"), simulator.ErrUnknownValue)
}

func TestSetNodeFailed(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	require.NoError(t, h.engine.SetNodeFailed(testHome, 5, true))
	h.await(t, func(n ozw.Notification) bool {
		return n.Type == ozw.NotificationNotification && n.NodeID == 5 && n.Code == ozw.CodeDead
	})
	assert.True(t, h.mgr.IsNodeFailed(testHome, 5))

	require.NoError(t, h.engine.SetNodeFailed(testHome, 5, false))
	h.await(t, func(n ozw.Notification) bool {
		return n.Type == ozw.NotificationNotification && n.NodeID == 5 && n.Code == ozw.CodeAlive
	})
	assert.False(t, h.mgr.IsNodeFailed(testHome, 5))

	assert.ErrorIs(t, h.engine.SetNodeFailed(testHome, 77, true), simulator.ErrUnknownNode)
}

func TestPolling(t *testing.T) {
	h := newHarness(t, simulator.Options{PollInterval: 20 * time.Millisecond})
	h.online(t)

	assert.True(t, h.mgr.IsPolled(powerID), "polled by the fixture")
	h.await(t, forValue(ozw.NotificationValueRefreshed, powerID))

	require.True(t, h.mgr.EnablePoll(intervalID, 2))
	h.await(t, forValue(ozw.NotificationPollingEnabled, intervalID))
	h.await(t, forValue(ozw.NotificationValueRefreshed, intervalID))
	intensity, ok := h.mgr.PollIntensity(intervalID)
	require.True(t, ok)
	assert.Equal(t, uint8(2), intensity)

	// Enabling again only changes the intensity.
	require.True(t, h.mgr.EnablePoll(intervalID, 3))
	assert.Len(t, h.rec.matching(forValue(ozw.NotificationPollingEnabled, intervalID)), 1)

	require.True(t, h.mgr.DisablePoll(intervalID))
	h.await(t, forValue(ozw.NotificationPollingDisabled, intervalID))
	assert.False(t, h.mgr.DisablePoll(intervalID))
	assert.False(t, h.mgr.IsPolled(intervalID))

	stats, ok := h.engine.Statistics(testHome)
	require.True(t, ok)
	assert.NotZero(t, stats.Polls)
}

func TestPollingSkipsFailedNodes(t *testing.T) {
	h := newHarness(t, simulator.Options{PollInterval: 20 * time.Millisecond})
	h.online(t)

	require.True(t, h.mgr.EnablePoll(levelID, 1))
	require.Eventually(t, func() bool {
		return len(h.rec.matching(forValue(ozw.NotificationValueRefreshed, powerID))) >= 3
	}, waitFor, waitTick)
	assert.Empty(t, h.rec.matching(forValue(ozw.NotificationValueRefreshed, levelID)))
}

func TestPollInterval(t *testing.T) {
	h := newHarness(t, simulator.Options{})

	assert.Equal(t, simulator.DefaultPollInterval, h.mgr.PollInterval())
	assert.True(t, h.mgr.SetPollInterval(5*time.Second, true))
	assert.Equal(t, 5*time.Second, h.mgr.PollInterval())

	// Non-positive intervals are ignored by the engine.
	h.mgr.SetPollInterval(0, false)
	assert.Equal(t, 5*time.Second, h.mgr.PollInterval())
}

func TestSubscriptionOverSimulator(t *testing.T) {
	h := newHarness(t, simulator.Options{})

	sub, err := h.mgr.Subscribe(ozw.SubscribeOptions{
		HomeIDs: []uint32{testHome},
		Types:   []ozw.NotificationType{ozw.NotificationDriverReady},
	})
	require.NoError(t, err)
	defer sub.Close()

	require.True(t, h.mgr.AddDriver(testPath, ozw.InterfaceSerial))
	select {
	case n := <-sub.C():
		assert.Equal(t, ozw.NotificationDriverReady, n.Type)
		assert.Equal(t, testHome, n.HomeID)
	case <-time.After(waitFor):
		t.Fatal("no driver ready notification")
	}
}

func TestDestroyClosesEngine(t *testing.T) {
	h := newHarness(t, simulator.Options{})
	h.online(t)

	require.NoError(t, h.mgr.Destroy())
	_, ok := h.engine.Node(testHome, 5)
	assert.False(t, ok, "closing takes every home offline")
	assert.NoError(t, h.engine.Close(), "close is idempotent")
}

func TestDestroyFromWatcher(t *testing.T) {
	h := newHarness(t, simulator.Options{})

	result := make(chan error, 1)
	var once sync.Once
	destroy := ozw.WatcherFunc(func(n ozw.Notification) {
		if n.Type != ozw.NotificationDriverReady {
			return
		}
		once.Do(func() { result <- h.mgr.Destroy() })
	})
	require.True(t, h.mgr.AddWatcher(&destroy))
	require.True(t, h.mgr.AddDriver(testPath, ozw.InterfaceSerial))

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Destroy called from a watcher did not return")
	}
	assert.False(t, h.mgr.IsLive())
	assert.False(t, h.mgr.AddWatcher(h.rec))
	_, ok := h.engine.Node(testHome, 5)
	assert.False(t, ok, "closing takes every home offline")
	assert.NoError(t, h.engine.Close())
}
