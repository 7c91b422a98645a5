package zwave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/history"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of parts in a valid MQTT topic.
	minTopicParts = 3

	// defaultQueueSize applies when BridgeOptions.QueueSize is zero.
	defaultQueueSize = 256

	// sinkTimeout bounds each history write.
	sinkTimeout = 5 * time.Second
)

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Controller is the part of *ozw.Manager the bridge drives.
type Controller interface {
	IsLive() bool
	AddWatcher(w ozw.Watcher) bool
	RemoveWatcher(w ozw.Watcher) bool

	Value(id ozw.ValueID) (ozw.Value, error)
	SetValue(id ozw.ValueID, v ozw.Value) error
	ValueMeta(id ozw.ValueID) (ozw.ValueMeta, bool)
	Node(homeID uint32, nodeID uint8) (ozw.NodeInfo, bool)

	AddNode(homeID uint32, secure bool) bool
	RemoveNode(homeID uint32) bool
	CancelControllerCommand(homeID uint32) bool
	HealNetwork(homeID uint32, doReturnRoutes bool) bool
	HealNetworkNode(homeID uint32, nodeID uint8, doReturnRoutes bool) bool
	TestNetwork(homeID uint32, count uint32) bool
	TestNetworkNode(homeID uint32, nodeID uint8, count uint32) bool
	RequestNodeState(homeID uint32, nodeID uint8) bool
	RequestAllConfigParams(homeID uint32, nodeID uint8) bool
	SoftReset(homeID uint32) bool
	SendQueueCount(homeID uint32) int32
}

// Compile-time check.
var _ Controller = (*ozw.Manager)(nil)

// HistorySink persists readings and the node inventory.
// Satisfied by *history.SQLiteRepository. Optional.
type HistorySink interface {
	RecordValue(ctx context.Context, id ozw.ValueID, v ozw.Value, source string) error
	UpsertNode(ctx context.Context, info ozw.NodeInfo) error
	DeleteNode(ctx context.Context, homeID uint32, nodeID uint8) error
}

// MetricWriter receives numeric readings and bridge counters.
// Satisfied by *influxdb.Client. Optional.
type MetricWriter interface {
	WriteValueMetric(m influxdb.ValueMetric)
	WriteBridgeStats(bridgeID string, stats map[string]int64)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// ID names the bridge in health and discovery messages. Default "zwave".
	ID string

	// Version is reported in health messages.
	Version string

	// HealthInterval is how often health is published. Default 30s.
	HealthInterval time.Duration

	// QueueSize bounds the notifications waiting for the worker.
	// Notifications arriving while it is full are dropped and counted.
	QueueSize int

	// Manager is the live Z-Wave manager. Required.
	Manager Controller

	// MQTTClient is the MQTT client implementation. Required.
	MQTTClient MQTTClient

	// History is an optional value history sink.
	History HistorySink

	// Metrics is an optional metric writer.
	Metrics MetricWriter

	// Logger is optional structured logger.
	Logger Logger
}

// statistics are the bridge counters reported in health messages.
type statistics struct {
	received  atomic.Uint64
	dropped   atomic.Uint64
	published atomic.Uint64
	commands  atomic.Uint64
	requests  atomic.Uint64
	errors    atomic.Uint64
}

func (s *statistics) snapshot() BridgeStatistics {
	return BridgeStatistics{
		NotificationsReceived: s.received.Load(),
		NotificationsDropped:  s.dropped.Load(),
		StatesPublished:       s.published.Load(),
		CommandsReceived:      s.commands.Load(),
		RequestsReceived:      s.requests.Load(),
		Errors:                s.errors.Load(),
	}
}

// Bridge translates between the Z-Wave manager and MQTT.
// It handles:
//   - Engine notifications, published as retained per-node state
//   - Commands from Core, applied as value writes
//   - Requests from Core, mapped to controller operations
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	id        string
	manager   Controller
	mqtt      MQTTClient
	history   HistorySink
	metrics   MetricWriter
	health    *HealthReporter
	inventory *ozw.Inventory

	queue chan ozw.Notification
	stats statistics

	// State cache for change detection
	nodes   map[ozw.NodeRef]*nodeState
	homes   map[uint32]ozw.ControllerState
	stateMu sync.RWMutex

	// Shutdown coordination
	started   atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Manager == nil {
		return nil, fmt.Errorf("z-wave manager is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	id := opts.ID
	if id == "" {
		id = Protocol
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		id:        id,
		manager:   opts.Manager,
		mqtt:      opts.MQTTClient,
		history:   opts.History,
		metrics:   opts.Metrics,
		inventory: ozw.NewInventory(),
		queue:     make(chan ozw.Notification, queueSize),
		nodes:     make(map[ozw.NodeRef]*nodeState),
		homes:     make(map[uint32]ozw.ControllerState),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  id,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Snapshot:  b.healthSnapshot,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// ID returns the bridge identifier.
func (b *Bridge) ID() string {
	return b.id
}

// Health returns the bridge's health reporter.
func (b *Bridge) Health() *HealthReporter {
	return b.health
}

// SetLogger sets the logger for the bridge and its health reporter.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
	b.health.SetLogger(logger)
}

// Start begins bridge operation.
// It registers the bridge as a watcher, subscribes to command and request
// topics and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge already started")
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := topics.Commands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	requestTopic := topics.Requests()
	if err := b.mqtt.Subscribe(requestTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", requestTopic)

	b.wg.Add(1)
	go b.run()

	if !b.manager.AddWatcher(b) {
		return fmt.Errorf("register watcher: %w", ozw.ErrNoManager)
	}

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started", "bridge_id", b.id, "queue_size", cap(b.queue))
	return nil
}

// Stop gracefully shuts down the bridge. Notifications still queued are
// discarded. The final health message is "offline".
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.manager.RemoveWatcher(b)
		close(b.done)
		b.ctxCancel()
		b.wg.Wait()

		b.health.Stop()
		b.writeBridgeStats()
		if err := b.health.PublishOffline(); err != nil {
			b.logError("failed to publish offline status", err)
		}

		b.logInfo("bridge stopped")
	})
}

// OnNotification implements ozw.Watcher. It runs on the engine's
// notification goroutine and only enqueues.
func (b *Bridge) OnNotification(n ozw.Notification) {
	b.stats.received.Add(1)
	select {
	case b.queue <- n:
	default:
		if b.stats.dropped.Add(1) == 1 {
			b.logWarn("notification queue full, dropping", "notification", n.String())
		}
	}
}

// Statistics returns the bridge counters.
func (b *Bridge) Statistics() BridgeStatistics {
	return b.stats.snapshot()
}

// Inventory returns the nodes and values the bridge has learned.
func (b *Bridge) Inventory() *ozw.Inventory {
	return b.inventory
}

func (b *Bridge) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case n := <-b.queue:
			b.handleNotification(n)
		}
	}
}

// handleNotification is called only from the worker goroutine.
func (b *Bridge) handleNotification(n ozw.Notification) {
	b.inventory.OnNotification(n)
	ref := ozw.NodeRef{HomeID: n.HomeID, NodeID: n.NodeID}

	switch n.Type {
	case ozw.NotificationValueAdded:
		if b.refreshValue(n.ValueID) {
			b.publishState(ref)
		}

	case ozw.NotificationValueChanged, ozw.NotificationValueRefreshed:
		changed := b.refreshValue(n.ValueID)
		if changed {
			b.publishState(ref)
		}
		source := history.SourceReport
		if n.Type == ozw.NotificationValueRefreshed {
			source = history.SourceRefresh
		}
		b.recordValue(n.ValueID, source)

	case ozw.NotificationValueRemoved:
		if b.forgetValue(n.ValueID) {
			b.publishState(ref)
		}

	case ozw.NotificationNodeNew, ozw.NotificationNodeAdded:
		b.ensureNode(ref)
		b.publishDiscovery(ref)

	case ozw.NotificationNodeProtocolInfo, ozw.NotificationNodeNaming:
		b.ensureNode(ref)
		b.upsertNode(ref)

	case ozw.NotificationEssentialNodeQueriesComplete:
		b.publishState(ref)

	case ozw.NotificationNodeQueriesComplete:
		b.upsertNode(ref)
		b.publishDiscovery(ref)
		b.publishState(ref)

	case ozw.NotificationNodeRemoved, ozw.NotificationNodeReset:
		b.removeNode(ref)
		b.deleteNodeHistory(ref)

	case ozw.NotificationNotification:
		b.handleNodeCode(ref, n.Code)

	case ozw.NotificationControllerCommand:
		b.stateMu.Lock()
		b.homes[n.HomeID] = n.State
		b.stateMu.Unlock()
		b.logInfo("controller command",
			"home_id", FormatHomeID(n.HomeID),
			"state", n.State.String(),
			"error", n.Error.String())

	case ozw.NotificationDriverReady:
		b.stateMu.Lock()
		b.homes[n.HomeID] = ozw.StateNormal
		b.stateMu.Unlock()
		b.logInfo("driver ready", "home_id", FormatHomeID(n.HomeID))
		b.publishHealth()

	case ozw.NotificationDriverFailed:
		b.stats.errors.Add(1)
		b.logError("driver failed", fmt.Errorf("home %s", FormatHomeID(n.HomeID)))
		b.publishHealth()

	case ozw.NotificationDriverRemoved, ozw.NotificationDriverReset:
		b.dropHome(n.HomeID, n.Type == ozw.NotificationDriverRemoved)
		b.publishHealth()

	case ozw.NotificationAllNodesQueried, ozw.NotificationAllNodesQueriedSomeDead,
		ozw.NotificationAwakeNodesQueried:
		b.logInfo("node queries finished",
			"home_id", FormatHomeID(n.HomeID),
			"event", n.Type.String())
		b.publishHealth()
		b.writeBridgeStats()
	}
}

func (b *Bridge) handleNodeCode(ref ozw.NodeRef, code ozw.NotificationCode) {
	var status string
	switch code {
	case ozw.CodeDead:
		status = NodeStatusDead
	case ozw.CodeAlive:
		status = NodeStatusAlive
	case ozw.CodeAwake:
		status = NodeStatusAwake
	case ozw.CodeSleep:
		status = NodeStatusAsleep
	case ozw.CodeTimeout:
		b.logDebug("node timeout", "address", NodeAddress(ref.HomeID, ref.NodeID))
		return
	default:
		return
	}

	if b.setStatus(ref, status) {
		b.publishState(ref)
		if code == ozw.CodeDead || code == ozw.CodeAlive {
			b.upsertNode(ref)
		}
	}
}

func (b *Bridge) healthSnapshot() HealthSnapshot {
	nodes, values := b.inventory.Counts()
	homes := b.inventory.Homes()

	b.stateMu.RLock()
	out := make([]HomeHealth, 0, len(homes))
	for _, h := range homes {
		out = append(out, HomeHealth{
			HomeID:          FormatHomeID(h.HomeID),
			Ready:           h.Ready,
			Queried:         h.Queried,
			SomeDead:        h.SomeDead,
			SendQueue:       b.manager.SendQueueCount(h.HomeID),
			ControllerState: b.homes[h.HomeID],
		})
	}
	b.stateMu.RUnlock()

	return HealthSnapshot{
		Live:       b.manager.IsLive(),
		Homes:      out,
		Nodes:      nodes,
		Values:     values,
		Statistics: b.stats.snapshot(),
	}
}

func (b *Bridge) publishHealth() {
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish health", err)
	}
}

func (b *Bridge) writeBridgeStats() {
	if b.metrics == nil {
		return
	}
	s := b.healthSnapshot()
	b.metrics.WriteBridgeStats(b.id, map[string]int64{
		"nodes":                  int64(s.Nodes),
		"values":                 int64(s.Values),
		"homes":                  int64(len(s.Homes)),
		"notifications_received": int64(s.Statistics.NotificationsReceived),
		"notifications_dropped":  int64(s.Statistics.NotificationsDropped),
		"states_published":       int64(s.Statistics.StatesPublished),
		"errors":                 int64(s.Statistics.Errors),
	})
}

// recordValue writes the current reading to the history and metric sinks.
func (b *Bridge) recordValue(id ozw.ValueID, source string) {
	if b.history == nil && b.metrics == nil {
		return
	}
	v, err := b.manager.Value(id)
	if err != nil {
		return
	}

	if b.history != nil {
		ctx, cancel := context.WithTimeout(b.ctx, sinkTimeout)
		err := b.history.RecordValue(ctx, id, v, source)
		cancel()
		if err != nil {
			b.stats.errors.Add(1)
			b.logError("failed to record value", err, "value_id", id.String())
		}
	}

	if b.metrics != nil {
		if f, ok := numeric(v); ok {
			meta, _ := b.manager.ValueMeta(id)
			b.metrics.WriteValueMetric(influxdb.ValueMetric{
				HomeID:       id.HomeID,
				NodeID:       id.NodeID,
				CommandClass: ozw.CommandClassName(id.CommandClassID),
				Instance:     id.Instance,
				Label:        meta.Label,
				Units:        meta.Units,
				ValueID:      id.String(),
				Value:        f,
				Time:         time.Now(),
			})
		}
	}
}

func (b *Bridge) upsertNode(ref ozw.NodeRef) {
	if b.history == nil {
		return
	}
	info, ok := b.manager.Node(ref.HomeID, ref.NodeID)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, sinkTimeout)
	defer cancel()
	if err := b.history.UpsertNode(ctx, info); err != nil {
		b.stats.errors.Add(1)
		b.logError("failed to store node", err, "address", NodeAddress(ref.HomeID, ref.NodeID))
	}
}

func (b *Bridge) deleteNodeHistory(ref ozw.NodeRef) {
	if b.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, sinkTimeout)
	defer cancel()
	err := b.history.DeleteNode(ctx, ref.HomeID, ref.NodeID)
	if err != nil && !errors.Is(err, history.ErrNodeNotFound) {
		b.stats.errors.Add(1)
		b.logError("failed to delete node history", err, "address", NodeAddress(ref.HomeID, ref.NodeID))
	}
}

// numeric converts a reading to a metric value.
func numeric(v ozw.Value) (float64, bool) {
	switch val := v.(type) {
	case ozw.BoolValue:
		if val {
			return 1, true
		}
		return 0, true
	case ozw.ByteValue:
		return float64(val), true
	case ozw.ShortValue:
		return float64(val), true
	case ozw.IntValue:
		return float64(val), true
	case ozw.DecimalValue:
		f, ok := ozw.Native(val).(float64)
		return f, ok
	case ozw.ListValue:
		return float64(val.Index), true
	default:
		return 0, false
	}
}

// handleMQTTMessage routes incoming MQTT messages to appropriate handlers.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch parts[1] {
	case "command":
		b.stats.commands.Add(1)
		b.handleCommand(lastSegment(topic), payload)
	case "request":
		b.stats.requests.Add(1)
		b.handleRequest(lastSegment(topic), payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", parts[1]))
	}
}

func (b *Bridge) publishJSON(topic string, msg any, retained bool) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	if err := b.mqtt.Publish(topic, payload, 1, retained); err != nil {
		b.stats.errors.Add(1)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
