package simulator_test

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw/simulator"
	"github.com/stretchr/testify/require"
)

const (
	testPath   = "/dev/ttyACM0"
	bridgePath = "/dev/ttyUSB1"

	testHome   uint32 = 0xc0ffee01
	bridgeHome uint32 = 0x0badf00d

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

	tempID     = vid(7, ozw.ClassSensorMultilevel, 1, ozw.TypeDecimal, ozw.GenreUser)
	setpointID = vid(7, ozw.ClassThermostatSetpoint, 1, ozw.TypeDecimal, ozw.GenreUser)
	modeID     = vid(7, ozw.ClassThermostatMode, 0, ozw.TypeList, ozw.GenreUser)
	wakeID     = vid(7, ozw.ClassWakeUp, 0, ozw.TypeInt, ozw.GenreSystem)
	serialID   = vid(7, ozw.ClassManufacturerSpecific, 9, ozw.TypeRaw, ozw.GenreSystem)
	codeID     = vid(7, 0x63, 1, ozw.TypeString, ozw.GenreUser)
	scheduleID = vid(7, ozw.ClassClimateControlSched, 1, ozw.TypeSchedule, ozw.GenreUser)

	levelID = vid(9, ozw.ClassSwitchMultilevel, 0, ozw.TypeByte, ozw.GenreUser)
)

// recorder is a Watcher that keeps every notification it sees.
type recorder struct {
	mu   sync.Mutex
	seen []ozw.Notification
}

func (r *recorder) OnNotification(n ozw.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) events() []ozw.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.seen)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = nil
}

// matching returns the recorded notifications accepted by keep.
func (r *recorder) matching(keep func(ozw.Notification) bool) []ozw.Notification {
	var out []ozw.Notification
	for _, n := range r.events() {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) has(keep func(ozw.Notification) bool) bool {
	return len(r.matching(keep)) > 0
}

func ofType(t ozw.NotificationType) func(ozw.Notification) bool {
	return func(n ozw.Notification) bool { return n.Type == t }
}

func forValue(t ozw.NotificationType, id ozw.ValueID) func(ozw.Notification) bool {
	return func(n ozw.Notification) bool { return n.Type == t && n.ValueID == id }
}

func controllerEvents(n ozw.Notification) bool {
	return n.Type == ozw.NotificationControllerCommand
}

type harness struct {
	engine *simulator.Engine
	mgr    *ozw.Manager
	rec    *recorder
}

func loadFixture(t *testing.T) *simulator.Network {
	t.Helper()
	network, err := simulator.LoadNetwork("testdata/network.yaml")
	require.NoError(t, err)
	return network
}

// newHarness starts a simulator behind a live Manager with a recorder
// attached. Nothing is online until a driver is added.
func newHarness(t *testing.T, opts simulator.Options) *harness {
	t.Helper()
	if opts.Network == nil {
		opts.Network = loadFixture(t)
	}
	engine, err := simulator.New(opts)
	require.NoError(t, err)

	mgr, err := ozw.Create(ozw.Options{Engine: engine})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Destroy() })

	rec := &recorder{}
	require.True(t, mgr.AddWatcher(rec))
	return &harness{engine: engine, mgr: mgr, rec: rec}
}

// online adds the primary controller, waits for the start-up sequence and
// clears the recorder.
func (h *harness) online(t *testing.T) {
	t.Helper()
	require.True(t, h.mgr.AddDriver(testPath, ozw.InterfaceUnknown))
	h.await(t, ofType(ozw.NotificationAllNodesQueriedSomeDead))
	h.drain(t)
	h.rec.reset()
}

// await blocks until a notification accepted by keep has been delivered.
func (h *harness) await(t *testing.T, keep func(ozw.Notification) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return h.rec.has(keep) }, waitFor, waitTick)
}

// drain waits until every queued notification for the test home has been delivered.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return h.mgr.SendQueueCount(testHome) == 0 }, waitFor, waitTick)
}
