package ozw

// Controller and network pass-throughs. Every method forwards its arguments
// to the engine unchanged and returns the engine's result unchanged; a
// Manager that is no longer live reports false or zero.

// AddDriver brings the controller at path online.
func (m *Manager) AddDriver(path string, iface ControllerInterface) bool {
	engine, live := m.liveEngine()
	return live && engine.AddDriver(path, iface)
}

// RemoveDriver takes the controller at path offline.
func (m *Manager) RemoveDriver(path string) bool {
	engine, live := m.liveEngine()
	return live && engine.RemoveDriver(path)
}

// ResetController hard-resets the controller, erasing its network.
func (m *Manager) ResetController(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.ResetController(homeID)
}

// SoftReset restarts the controller without losing its network.
func (m *Manager) SoftReset(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.SoftReset(homeID)
}

// CancelControllerCommand stops an inclusion or exclusion in progress.
func (m *Manager) CancelControllerCommand(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.CancelControllerCommand(homeID)
}

// RequestNodeState re-reads every value of a node.
func (m *Manager) RequestNodeState(homeID uint32, nodeID uint8) bool {
	engine, live := m.liveEngine()
	return live && engine.RequestNodeState(homeID, nodeID)
}

// RequestAllConfigParams re-reads every configuration parameter of a node.
func (m *Manager) RequestAllConfigParams(homeID uint32, nodeID uint8) bool {
	engine, live := m.liveEngine()
	return live && engine.RequestAllConfigParams(homeID, nodeID)
}

// AddNode starts inclusion. Progress arrives as controller command notifications.
func (m *Manager) AddNode(homeID uint32, secure bool) bool {
	engine, live := m.liveEngine()
	return live && engine.AddNode(homeID, secure)
}

// RemoveNode starts exclusion.
func (m *Manager) RemoveNode(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.RemoveNode(homeID)
}

// TestNetworkNode sends count no-operation frames to a node.
func (m *Manager) TestNetworkNode(homeID uint32, nodeID uint8, count uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.TestNetworkNode(homeID, nodeID, count)
}

// TestNetwork sends count no-operation frames to every node.
func (m *Manager) TestNetwork(homeID uint32, count uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.TestNetwork(homeID, count)
}

// HealNetworkNode rebuilds a node's neighbor list and optionally its return routes.
func (m *Manager) HealNetworkNode(homeID uint32, nodeID uint8, doReturnRoutes bool) bool {
	engine, live := m.liveEngine()
	return live && engine.HealNetworkNode(homeID, nodeID, doReturnRoutes)
}

// HealNetwork heals every node.
func (m *Manager) HealNetwork(homeID uint32, doReturnRoutes bool) bool {
	engine, live := m.liveEngine()
	return live && engine.HealNetwork(homeID, doReturnRoutes)
}

// ControllerNodeID returns the node id of the controller, or 0 if unknown.
func (m *Manager) ControllerNodeID(homeID uint32) uint8 {
	engine, live := m.liveEngine()
	if !live {
		return 0
	}
	return engine.ControllerNodeID(homeID)
}

// SUCNodeID returns the node id of the static update controller, or 0 if none.
func (m *Manager) SUCNodeID(homeID uint32) uint8 {
	engine, live := m.liveEngine()
	if !live {
		return 0
	}
	return engine.SUCNodeID(homeID)
}

// IsPrimaryController reports whether the controller is the network's primary.
func (m *Manager) IsPrimaryController(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.IsPrimaryController(homeID)
}

// IsBridgeController reports whether the controller runs a bridge library.
func (m *Manager) IsBridgeController(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.IsBridgeController(homeID)
}

// SendQueueCount returns the number of messages waiting to be sent.
func (m *Manager) SendQueueCount(homeID uint32) int32 {
	engine, live := m.liveEngine()
	if !live {
		return 0
	}
	return engine.SendQueueCount(homeID)
}

// LogDriverStatistics asks the engine to log its driver counters.
func (m *Manager) LogDriverStatistics(homeID uint32) bool {
	engine, live := m.liveEngine()
	return live && engine.LogDriverStatistics(homeID)
}

// ControllerInterfaceType returns how the controller is attached.
func (m *Manager) ControllerInterfaceType(homeID uint32) ControllerInterface {
	engine, live := m.liveEngine()
	if !live {
		return InterfaceUnknown
	}
	return engine.ControllerInterfaceType(homeID)
}

// LibraryVersion returns the controller's Z-Wave library version.
func (m *Manager) LibraryVersion(homeID uint32) (string, bool) {
	return LibraryVersionWith(m, homeID, owned[string])
}

// LibraryTypeName returns the controller's library type, such as "Static Controller".
func (m *Manager) LibraryTypeName(homeID uint32) (string, bool) {
	return LibraryTypeNameWith(m, homeID, owned[string])
}

// ControllerPath returns the driver path the controller was added with.
func (m *Manager) ControllerPath(homeID uint32) (string, bool) {
	return ControllerPathWith(m, homeID, owned[string])
}

// ControllerInfo summarises a controller for display.
type ControllerInfo struct {
	HomeID          uint32              `json:"home_id"`
	NodeID          uint8               `json:"node_id"`
	SUCNodeID       uint8               `json:"suc_node_id"`
	Primary         bool                `json:"primary"`
	Bridge          bool                `json:"bridge"`
	Interface       ControllerInterface `json:"interface"`
	SendQueue       int32               `json:"send_queue"`
	LibraryVersion  string              `json:"library_version"`
	LibraryTypeName string              `json:"library_type_name"`
	Path            string              `json:"path"`
}

// Controller collects the read-only controller queries for homeID. It
// reports false when the home has no controller path.
func (m *Manager) Controller(homeID uint32) (ControllerInfo, bool) {
	path, ok := m.ControllerPath(homeID)
	if !ok {
		return ControllerInfo{}, false
	}
	version, _ := m.LibraryVersion(homeID)
	typeName, _ := m.LibraryTypeName(homeID)
	return ControllerInfo{
		HomeID:          homeID,
		NodeID:          m.ControllerNodeID(homeID),
		SUCNodeID:       m.SUCNodeID(homeID),
		Primary:         m.IsPrimaryController(homeID),
		Bridge:          m.IsBridgeController(homeID),
		Interface:       m.ControllerInterfaceType(homeID),
		SendQueue:       m.SendQueueCount(homeID),
		LibraryVersion:  version,
		LibraryTypeName: typeName,
		Path:            path,
	}, true
}
