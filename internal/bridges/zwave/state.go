package zwave

import (
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// nodeState is the cached view of one node. It is the basis of change
// detection; a retained state message is only published when it changes.
type nodeState struct {
	status string
	values map[ozw.ValueID]StateValue
}

func newNodeState() *nodeState {
	return &nodeState{status: NodeStatusAlive, values: make(map[ozw.ValueID]StateValue)}
}

// node returns the cache entry of ref, creating it if needed.
// Callers hold stateMu.
func (b *Bridge) node(ref ozw.NodeRef) *nodeState {
	ns, ok := b.nodes[ref]
	if !ok {
		ns = newNodeState()
		b.nodes[ref] = ns
	}
	return ns
}

func (b *Bridge) ensureNode(ref ozw.NodeRef) {
	b.stateMu.Lock()
	ns := b.node(ref)
	if info, ok := b.manager.Node(ref.HomeID, ref.NodeID); ok && info.Failed {
		ns.status = NodeStatusDead
	}
	b.stateMu.Unlock()
}

// stateValue reads one value and its metadata from the manager.
// Write-only values carry a nil reading.
func (b *Bridge) stateValue(id ozw.ValueID) (StateValue, bool) {
	meta, ok := b.manager.ValueMeta(id)
	if !ok {
		return StateValue{}, false
	}
	sv := StateValue{
		Label:        meta.Label,
		Units:        meta.Units,
		CommandClass: ozw.CommandClassName(id.CommandClassID),
		Instance:     id.Instance,
		Index:        id.Index,
		Type:         id.Type,
		Genre:        id.Genre,
		ReadOnly:     meta.ReadOnly,
		WriteOnly:    meta.WriteOnly,
	}
	if !meta.WriteOnly {
		if v, err := b.manager.Value(id); err == nil {
			sv.Value = ozw.Native(v)
		}
	}
	return sv, true
}

// refreshValue re-reads id into the cache and reports whether the cached
// state changed.
func (b *Bridge) refreshValue(id ozw.ValueID) bool {
	sv, ok := b.stateValue(id)
	if !ok {
		return false
	}
	ref := ozw.NodeRef{HomeID: id.HomeID, NodeID: id.NodeID}

	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	ns := b.node(ref)
	if old, exists := ns.values[id]; exists && reflect.DeepEqual(old, sv) {
		return false
	}
	ns.values[id] = sv
	return true
}

// forgetValue drops id from the cache and reports whether it was there.
func (b *Bridge) forgetValue(id ozw.ValueID) bool {
	ref := ozw.NodeRef{HomeID: id.HomeID, NodeID: id.NodeID}

	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	ns, ok := b.nodes[ref]
	if !ok {
		return false
	}
	if _, exists := ns.values[id]; !exists {
		return false
	}
	delete(ns.values, id)
	return true
}

// setStatus reports whether the status of ref changed.
func (b *Bridge) setStatus(ref ozw.NodeRef, status string) bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	ns := b.node(ref)
	if ns.status == status {
		return false
	}
	ns.status = status
	return true
}

// removeNode drops the node from the cache and clears its retained state.
func (b *Bridge) removeNode(ref ozw.NodeRef) {
	b.stateMu.Lock()
	_, known := b.nodes[ref]
	delete(b.nodes, ref)
	b.stateMu.Unlock()

	if !known {
		return
	}
	b.clearRetained(ref)
	b.logInfo("node removed", "address", NodeAddress(ref.HomeID, ref.NodeID))
}

// dropHome forgets every node of a home. When removed is set the home is
// gone and the nodes' retained state is cleared too.
func (b *Bridge) dropHome(homeID uint32, removed bool) {
	b.stateMu.Lock()
	var dropped []ozw.NodeRef
	for ref := range b.nodes {
		if ref.HomeID == homeID {
			dropped = append(dropped, ref)
			delete(b.nodes, ref)
		}
	}
	if removed {
		delete(b.homes, homeID)
	}
	b.stateMu.Unlock()

	if removed {
		for _, ref := range dropped {
			b.clearRetained(ref)
		}
	}
	b.logInfo("home dropped", "home_id", FormatHomeID(homeID), "nodes", len(dropped))
}

// clearRetained publishes an empty retained payload, which the broker
// treats as deleting the retained message.
func (b *Bridge) clearRetained(ref ozw.NodeRef) {
	if err := b.mqtt.Publish(StateTopic(NodeAddress(ref.HomeID, ref.NodeID)), nil, 1, true); err != nil {
		b.stats.errors.Add(1)
		b.logError("failed to clear node state", err, "address", NodeAddress(ref.HomeID, ref.NodeID))
	}
}

// NodeState returns the cached state of a node.
func (b *Bridge) NodeState(ref ozw.NodeRef) (StateMessage, bool) {
	b.stateMu.RLock()
	ns, ok := b.nodes[ref]
	var (
		status string
		values map[string]StateValue
	)
	if ok {
		status = ns.status
		values = make(map[string]StateValue, len(ns.values))
		for id, sv := range ns.values {
			values[id.String()] = sv
		}
	}
	b.stateMu.RUnlock()

	if !ok {
		return StateMessage{}, false
	}

	msg := StateMessage{
		Address:   NodeAddress(ref.HomeID, ref.NodeID),
		HomeID:    FormatHomeID(ref.HomeID),
		NodeID:    ref.NodeID,
		Timestamp: time.Now().UTC(),
		Protocol:  Protocol,
		Status:    status,
		Values:    values,
	}
	if info, ok := b.manager.Node(ref.HomeID, ref.NodeID); ok {
		msg.Name = info.Name
		msg.Location = info.Location
	}
	return msg, true
}

func (b *Bridge) publishState(ref ozw.NodeRef) {
	msg, ok := b.NodeState(ref)
	if !ok {
		return
	}
	if err := b.publishJSON(StateTopic(msg.Address), msg, true); err != nil {
		b.logError("failed to publish state", err)
		return
	}
	b.stats.published.Add(1)
}

// DiscoveredNodes describes every known node.
func (b *Bridge) DiscoveredNodes() []DiscoveredNode {
	refs := b.inventory.Nodes()
	out := make([]DiscoveredNode, 0, len(refs))
	for _, ref := range refs {
		if node, ok := b.discoveredNode(ref); ok {
			out = append(out, node)
		}
	}
	return out
}

func (b *Bridge) discoveredNode(ref ozw.NodeRef) (DiscoveredNode, bool) {
	info, ok := b.manager.Node(ref.HomeID, ref.NodeID)
	if !ok {
		return DiscoveredNode{}, false
	}
	classes := make(map[string]struct{})
	for _, id := range b.inventory.NodeValues(ref.HomeID, ref.NodeID) {
		classes[ozw.CommandClassName(id.CommandClassID)] = struct{}{}
	}
	return newDiscoveredNode(info, slices.Sorted(maps.Keys(classes))), true
}

func (b *Bridge) publishDiscovery(ref ozw.NodeRef) {
	node, ok := b.discoveredNode(ref)
	if !ok {
		return
	}
	msg := NewDiscoveryMessage(b.id, []DiscoveredNode{node})
	if err := b.publishJSON(DiscoveryTopic(), msg, false); err != nil {
		b.logError("failed to publish discovery", err)
	}
}
