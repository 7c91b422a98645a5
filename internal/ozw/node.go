package ozw

// Node returns a snapshot of a node's capabilities and metadata.
func (m *Manager) Node(homeID uint32, nodeID uint8) (NodeInfo, bool) {
	engine, live := m.liveEngine()
	if !live {
		return NodeInfo{}, false
	}
	return engine.Node(homeID, nodeID)
}

// nodeInfo returns the snapshot, or the zero NodeInfo when the node is
// unknown. Flag and numeric getters read through it.
func (m *Manager) nodeInfo(homeID uint32, nodeID uint8) NodeInfo {
	info, _ := m.Node(homeID, nodeID)
	return info
}

// IsNodeListeningDevice reports whether the node's receiver is always on.
func (m *Manager) IsNodeListeningDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).Listening
}

// IsNodeFrequentListeningDevice reports whether the node wakes on a beam.
func (m *Manager) IsNodeFrequentListeningDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).FrequentListening
}

// IsNodeBeamingDevice reports whether the node can send wake-up beams.
func (m *Manager) IsNodeBeamingDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).Beaming
}

// IsNodeRoutingDevice reports whether the node routes messages for others.
func (m *Manager) IsNodeRoutingDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).Routing
}

// IsNodeSecurityDevice reports whether the node supports security.
func (m *Manager) IsNodeSecurityDevice(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).SecurityDevice
}

// IsNodeZWavePlus reports whether the node is a Z-Wave Plus device.
func (m *Manager) IsNodeZWavePlus(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).ZWavePlus
}

// IsNodeInfoReceived reports whether the node information frame has arrived.
func (m *Manager) IsNodeInfoReceived(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).InfoReceived
}

// IsNodeAwake reports whether a sleeping node is currently awake.
func (m *Manager) IsNodeAwake(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).Awake
}

// IsNodeFailed reports whether the controller has marked the node failed.
func (m *Manager) IsNodeFailed(homeID uint32, nodeID uint8) bool {
	return m.nodeInfo(homeID, nodeID).Failed
}

// NodeMaxBaudRate returns the node's maximum baud rate, or 0 if unknown.
func (m *Manager) NodeMaxBaudRate(homeID uint32, nodeID uint8) uint32 {
	return m.nodeInfo(homeID, nodeID).MaxBaudRate
}

// NodeVersion returns the node's protocol version.
func (m *Manager) NodeVersion(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).Version
}

// NodeSecurity returns the node's security level byte.
func (m *Manager) NodeSecurity(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).SecurityLevel
}

// NodeBasic returns the node's basic device class.
func (m *Manager) NodeBasic(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).Basic
}

// NodeGeneric returns the node's generic device class.
func (m *Manager) NodeGeneric(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).Generic
}

// NodeSpecific returns the node's specific device class.
func (m *Manager) NodeSpecific(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).Specific
}

// NodeDeviceType returns the Z-Wave Plus device type.
func (m *Manager) NodeDeviceType(homeID uint32, nodeID uint8) uint16 {
	return m.nodeInfo(homeID, nodeID).DeviceType
}

// NodeRole returns the Z-Wave Plus role type.
func (m *Manager) NodeRole(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).Role
}

// NodePlusType returns the Z-Wave Plus node type.
func (m *Manager) NodePlusType(homeID uint32, nodeID uint8) uint8 {
	return m.nodeInfo(homeID, nodeID).PlusType
}

// NodeString reads one string field of a node.
func (m *Manager) NodeString(homeID uint32, nodeID uint8, field NodeStringField) (string, bool) {
	return NodeStringWith(m, homeID, nodeID, field, owned[string])
}

// NodeNeighbors returns the ids of the node's neighbors. A node without
// neighbors yields an empty slice and true.
func (m *Manager) NodeNeighbors(homeID uint32, nodeID uint8) ([]uint8, bool) {
	return NodeNeighborsWith(m, homeID, nodeID, owned[[]byte])
}

// NodeClassInformation reports whether the node implements commandClassID
// and, if so, the class name and version.
func (m *Manager) NodeClassInformation(homeID uint32, nodeID, commandClassID uint8) (string, uint8, bool) {
	return NodeClassInformationWith(m, homeID, nodeID, commandClassID, owned[string])
}
