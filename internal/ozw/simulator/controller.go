package simulator

import (
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// AddDriver implements ozw.ControllerEngine. It brings the fixture home at
// path online and announces its nodes. A path with no fixture is accepted
// and reported as DriverFailed, as a real engine does when the port cannot
// be opened. Adding a driver that is already online fails.
func (e *Engine) AddDriver(path string, iface ozw.ControllerInterface) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, online := e.paths[path]; online {
		return false
	}
	fixture, known := e.fixtures[path]
	if !known {
		e.logger.Warn("no controller at path", "path", path)
		e.emit(ozw.Notification{Type: ozw.NotificationDriverFailed})
		return true
	}

	h, err := newHome(fixture, iface)
	if err != nil {
		e.logger.Error("building home from fixture", "path", path, "error", err)
		e.emit(ozw.Notification{Type: ozw.NotificationDriverFailed})
		return true
	}
	e.homes[h.id] = h
	e.paths[path] = h.id

	e.logger.Info("driver added", "path", path, "home_id", h.id, "nodes", len(h.nodes))
	e.emit(ozw.Notification{Type: ozw.NotificationDriverReady, HomeID: h.id, NodeID: fixture.ControllerNodeID})
	e.announceHome(h)
	e.wakePoller()
	return true
}

// announceHome emits every node's start-up sequence followed by the
// all-nodes-queried event. Callers hold e.mu.
func (e *Engine) announceHome(h *home) {
	someDead := false
	for _, id := range h.sortedNodeIDs() {
		n := h.nodes[id]
		e.announceNode(h, n, ozw.NotificationNodeAdded)
		someDead = someDead || n.info.Failed
	}
	if someDead {
		e.emit(ozw.Notification{Type: ozw.NotificationAllNodesQueriedSomeDead, HomeID: h.id})
		return
	}
	e.emit(ozw.Notification{Type: ozw.NotificationAllNodesQueried, HomeID: h.id})
}

// RemoveDriver implements ozw.ControllerEngine.
func (e *Engine) RemoveDriver(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	homeID, online := e.paths[path]
	if !online {
		return false
	}
	delete(e.paths, path)
	delete(e.homes, homeID)

	e.logger.Info("driver removed", "path", path, "home_id", homeID)
	e.emit(ozw.Notification{Type: ozw.NotificationDriverRemoved, HomeID: homeID})
	return true
}

// ResetController implements ozw.ControllerEngine. Every node except the
// controller is forgotten.
func (e *Engine) ResetController(homeID uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return false
	}
	for id := range h.nodes {
		if id != h.fixture.ControllerNodeID {
			delete(h.nodes, id)
		}
	}
	h.command = commandNone

	e.logger.Warn("controller hard reset", "home_id", homeID)
	e.emit(ozw.Notification{Type: ozw.NotificationDriverReset, HomeID: homeID})
	e.announceHome(h)
	return true
}

// SoftReset implements ozw.ControllerEngine.
func (e *Engine) SoftReset(homeID uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return false
	}
	e.emit(ozw.Notification{Type: ozw.NotificationDriverReady, HomeID: homeID, NodeID: h.fixture.ControllerNodeID})
	return true
}

// controllerState emits one controller command progress event. Callers hold e.mu.
func (e *Engine) controllerState(homeID uint32, nodeID uint8, state ozw.ControllerState, cerr ozw.ControllerError) {
	e.emit(ozw.Notification{
		Type:   ozw.NotificationControllerCommand,
		HomeID: homeID,
		NodeID: nodeID,
		State:  state,
		Error:  cerr,
	})
}

// CancelControllerCommand implements ozw.ControllerEngine. It fails when
// no inclusion or exclusion is in progress.
func (e *Engine) CancelControllerCommand(homeID uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok || h.command == commandNone {
		return false
	}
	h.command = commandNone
	e.controllerState(homeID, 0, ozw.StateCancel, ozw.ControllerErrorNone)
	e.controllerState(homeID, 0, ozw.StateNormal, ozw.ControllerErrorNone)
	return true
}

// startCommand begins inclusion or exclusion. A second command while one
// is running is refused with a Busy error event.
func (e *Engine) startCommand(homeID uint32, cmd controllerCommand, secure bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return false
	}
	if !h.fixture.Primary {
		e.controllerState(homeID, 0, ozw.StateError, ozw.ControllerErrorNotPrimary)
		return false
	}
	if h.command != commandNone {
		e.controllerState(homeID, 0, ozw.StateError, ozw.ControllerErrorBusy)
		return false
	}
	h.command = cmd
	h.secure = secure
	e.controllerState(homeID, 0, ozw.StateStarting, ozw.ControllerErrorNone)
	e.controllerState(homeID, 0, ozw.StateWaiting, ozw.ControllerErrorNone)
	return true
}

// AddNode implements ozw.ControllerEngine. The controller waits until
// IncludeNode or CancelControllerCommand.
func (e *Engine) AddNode(homeID uint32, secure bool) bool {
	return e.startCommand(homeID, commandAddNode, secure)
}

// RemoveNode implements ozw.ControllerEngine. The controller waits until
// ExcludeNode or CancelControllerCommand.
func (e *Engine) RemoveNode(homeID uint32) bool {
	return e.startCommand(homeID, commandRemoveNode, false)
}

// IncludeNode completes a pending AddNode as if the device's inclusion
// button had been pressed. A zero f.ID takes the lowest free node id.
//
// Returns:
//   - uint8: The node id assigned
//   - error: ErrHomeOffline, ErrNoPendingCommand, ErrNetworkFull, or a
//     fixture error
func (e *Engine) IncludeNode(homeID uint32, f NodeFixture) (uint8, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return 0, ErrHomeOffline
	}
	if h.command != commandAddNode {
		return 0, ErrNoPendingCommand
	}
	if f.ID == 0 {
		if f.ID, ok = h.freeNodeID(); !ok {
			return 0, ErrNetworkFull
		}
	} else if _, taken := h.nodes[f.ID]; taken {
		return 0, ErrNetworkFull
	}
	for i := range f.Values {
		if f.Values[i].Instance == 0 {
			f.Values[i].Instance = 1
		}
	}
	f.Security = f.Security || h.secure

	n, err := newNode(homeID, f)
	if err != nil {
		return 0, err
	}
	h.nodes[f.ID] = n
	h.command = commandNone

	e.logger.Info("node included", "home_id", homeID, "node_id", f.ID, "secure", h.secure)
	e.controllerState(homeID, f.ID, ozw.StateInProgress, ozw.ControllerErrorNone)
	e.announceNode(h, n, ozw.NotificationNodeNew)
	e.controllerState(homeID, f.ID, ozw.StateCompleted, ozw.ControllerErrorNone)
	return f.ID, nil
}

// ExcludeNode completes a pending RemoveNode for nodeID. The controller
// itself cannot be excluded.
//
// Returns:
//   - error: ErrHomeOffline, ErrNoPendingCommand, or ErrUnknownNode
func (e *Engine) ExcludeNode(homeID uint32, nodeID uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return ErrHomeOffline
	}
	if h.command != commandRemoveNode {
		return ErrNoPendingCommand
	}
	if _, ok := h.nodes[nodeID]; !ok || nodeID == h.fixture.ControllerNodeID {
		return ErrUnknownNode
	}
	delete(h.nodes, nodeID)
	h.command = commandNone

	e.logger.Info("node excluded", "home_id", homeID, "node_id", nodeID)
	e.controllerState(homeID, nodeID, ozw.StateInProgress, ozw.ControllerErrorNone)
	e.emit(ozw.Notification{Type: ozw.NotificationNodeRemoved, HomeID: homeID, NodeID: nodeID})
	e.controllerState(homeID, nodeID, ozw.StateCompleted, ozw.ControllerErrorNone)
	return nil
}

// RequestNodeState implements ozw.ControllerEngine by refreshing every
// value of the node.
func (e *Engine) RequestNodeState(homeID uint32, nodeID uint8) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, n, ok := e.node(homeID, nodeID)
	if !ok {
		return false
	}
	e.refreshValues(h, n, nil)
	return true
}

// RequestAllConfigParams implements ozw.ControllerEngine by refreshing the
// node's configuration values.
func (e *Engine) RequestAllConfigParams(homeID uint32, nodeID uint8) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, n, ok := e.node(homeID, nodeID)
	if !ok {
		return false
	}
	e.refreshValues(h, n, func(id ozw.ValueID) bool {
		return id.CommandClassID == ozw.ClassConfiguration
	})
	return true
}

// testNode sends count no-operation frames to one node. Callers hold e.mu.
func (e *Engine) testNode(h *home, n *node, count uint32) {
	code := ozw.CodeMsgComplete
	if n.info.Failed {
		code = ozw.CodeTimeout
	}
	for range count {
		h.stats.frames++
		if n.info.Failed {
			h.stats.timeouts++
		}
		e.emit(ozw.Notification{Type: ozw.NotificationNotification, HomeID: h.id, NodeID: n.info.NodeID, Code: code})
	}
}

// TestNetworkNode implements ozw.ControllerEngine.
func (e *Engine) TestNetworkNode(homeID uint32, nodeID uint8, count uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, n, ok := e.node(homeID, nodeID)
	if !ok {
		return false
	}
	e.testNode(h, n, count)
	return true
}

// TestNetwork implements ozw.ControllerEngine. The controller is not tested.
func (e *Engine) TestNetwork(homeID uint32, count uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return false
	}
	for _, id := range h.sortedNodeIDs() {
		if id != h.fixture.ControllerNodeID {
			e.testNode(h, h.nodes[id], count)
		}
	}
	return true
}

// healNode rebuilds one node's routes. Callers hold e.mu.
func (e *Engine) healNode(h *home, n *node, doReturnRoutes bool) {
	nodeID := n.info.NodeID
	e.controllerState(h.id, nodeID, ozw.StateInProgress, ozw.ControllerErrorNone)
	if n.info.Failed {
		h.stats.timeouts++
		e.controllerState(h.id, nodeID, ozw.StateFailed, ozw.ControllerErrorFailed)
		return
	}
	h.stats.frames++
	if doReturnRoutes {
		h.stats.frames++
	}
	e.controllerState(h.id, nodeID, ozw.StateCompleted, ozw.ControllerErrorNone)
}

// HealNetworkNode implements ozw.ControllerEngine.
func (e *Engine) HealNetworkNode(homeID uint32, nodeID uint8, doReturnRoutes bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, n, ok := e.node(homeID, nodeID)
	if !ok {
		return false
	}
	e.healNode(h, n, doReturnRoutes)
	return true
}

// HealNetwork implements ozw.ControllerEngine. The controller is not healed.
func (e *Engine) HealNetwork(homeID uint32, doReturnRoutes bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		return false
	}
	for _, id := range h.sortedNodeIDs() {
		if id != h.fixture.ControllerNodeID {
			e.healNode(h, h.nodes[id], doReturnRoutes)
		}
	}
	return true
}

// withHome runs read under e.mu when homeID is online.
func withHome[T any](e *Engine, homeID uint32, read func(*home) T) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.homes[homeID]
	if !ok {
		var zero T
		return zero, false
	}
	return read(h), true
}

// ControllerNodeID implements ozw.ControllerEngine.
func (e *Engine) ControllerNodeID(homeID uint32) uint8 {
	id, _ := withHome(e, homeID, func(h *home) uint8 { return h.fixture.ControllerNodeID })
	return id
}

// SUCNodeID implements ozw.ControllerEngine.
func (e *Engine) SUCNodeID(homeID uint32) uint8 {
	id, _ := withHome(e, homeID, func(h *home) uint8 { return h.fixture.SUCNodeID })
	return id
}

// IsPrimaryController implements ozw.ControllerEngine.
func (e *Engine) IsPrimaryController(homeID uint32) bool {
	primary, _ := withHome(e, homeID, func(h *home) bool { return h.fixture.Primary })
	return primary
}

// IsBridgeController implements ozw.ControllerEngine.
func (e *Engine) IsBridgeController(homeID uint32) bool {
	bridge, _ := withHome(e, homeID, func(h *home) bool { return h.fixture.Bridge })
	return bridge
}

// SendQueueCount implements ozw.ControllerEngine. It counts notifications
// for the home that have not been delivered yet.
func (e *Engine) SendQueueCount(homeID uint32) int32 {
	return e.queue.depth(homeID)
}

// LogDriverStatistics implements ozw.ControllerEngine.
func (e *Engine) LogDriverStatistics(homeID uint32) bool {
	stats, ok := withHome(e, homeID, func(h *home) driverStats { return h.stats })
	if !ok {
		return false
	}
	e.logger.Info("driver statistics",
		"home_id", homeID,
		"reads", stats.reads,
		"writes", stats.writes,
		"rejected", stats.rejected,
		"polls", stats.polls,
		"frames", stats.frames,
		"timeouts", stats.timeouts,
		"notifications", stats.notifications,
	)
	return true
}

// ControllerInterfaceType implements ozw.ControllerEngine.
func (e *Engine) ControllerInterfaceType(homeID uint32) ozw.ControllerInterface {
	iface, _ := withHome(e, homeID, func(h *home) ozw.ControllerInterface { return h.iface })
	return iface
}

// LibraryVersion implements ozw.ControllerEngine.
func (e *Engine) LibraryVersion(homeID uint32) (string, bool) {
	return withHome(e, homeID, func(h *home) string { return h.fixture.LibraryVersion })
}

// LibraryTypeName implements ozw.ControllerEngine.
func (e *Engine) LibraryTypeName(homeID uint32) (string, bool) {
	return withHome(e, homeID, func(h *home) string { return h.fixture.LibraryType })
}

// ControllerPath implements ozw.ControllerEngine.
func (e *Engine) ControllerPath(homeID uint32) (string, bool) {
	return withHome(e, homeID, func(h *home) string { return h.fixture.Path })
}

// Stats is a snapshot of a home's driver counters.
type Stats struct {
	Reads         uint64 `json:"reads"`
	Writes        uint64 `json:"writes"`
	Rejected      uint64 `json:"rejected"`
	Polls         uint64 `json:"polls"`
	Frames        uint64 `json:"frames"`
	Timeouts      uint64 `json:"timeouts"`
	Notifications uint64 `json:"notifications"`
}

// Statistics returns the counters LogDriverStatistics reports.
func (e *Engine) Statistics(homeID uint32) (Stats, bool) {
	return withHome(e, homeID, func(h *home) Stats {
		s := h.stats
		return Stats{
			Reads:         s.reads,
			Writes:        s.writes,
			Rejected:      s.rejected,
			Polls:         s.polls,
			Frames:        s.frames,
			Timeouts:      s.timeouts,
			Notifications: s.notifications,
		}
	})
}
