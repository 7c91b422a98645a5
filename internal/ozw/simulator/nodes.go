package simulator

import (
	"slices"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// node resolves a node on an online home. Callers hold e.mu.
func (e *Engine) node(homeID uint32, nodeID uint8) (*home, *node, bool) {
	h, ok := e.homes[homeID]
	if !ok {
		return nil, nil, false
	}
	n, ok := h.nodes[nodeID]
	return h, n, ok
}

// Node implements ozw.NodeEngine.
func (e *Engine) Node(homeID uint32, nodeID uint8) (ozw.NodeInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, n, ok := e.node(homeID, nodeID)
	if !ok {
		return ozw.NodeInfo{}, false
	}
	return n.info, true
}

// NodeNeighbors implements ozw.NodeEngine.
func (e *Engine) NodeNeighbors(homeID uint32, nodeID uint8) ([]uint8, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, n, ok := e.node(homeID, nodeID)
	if !ok {
		return nil, false
	}
	return slices.Clone(n.neighbors), true
}

// NodeClassInformation implements ozw.NodeEngine.
func (e *Engine) NodeClassInformation(homeID uint32, nodeID, commandClassID uint8) (ozw.ClassInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, n, ok := e.node(homeID, nodeID)
	if !ok {
		return ozw.ClassInfo{}, false
	}
	info, ok := n.classes[commandClassID]
	return info, ok
}

// SetNodeFailed marks a node dead or alive, as the engine does when a node
// stops answering. It emits a Dead or Alive notification.
//
// Returns:
//   - error: ErrUnknownNode if the node is not on an online home
func (e *Engine) SetNodeFailed(homeID uint32, nodeID uint8, failed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, n, ok := e.node(homeID, nodeID)
	if !ok {
		return ErrUnknownNode
	}
	n.info.Failed = failed
	code := ozw.CodeAlive
	if failed {
		code = ozw.CodeDead
	}
	e.emit(ozw.Notification{Type: ozw.NotificationNotification, HomeID: homeID, NodeID: nodeID, Code: code})
	return nil
}

// announceNode emits the start-up sequence for one node. Callers hold e.mu.
func (e *Engine) announceNode(h *home, n *node, added ozw.NotificationType) {
	homeID, nodeID := h.id, n.info.NodeID
	e.emit(ozw.Notification{Type: added, HomeID: homeID, NodeID: nodeID})
	if added == ozw.NotificationNodeNew {
		e.emit(ozw.Notification{Type: ozw.NotificationNodeAdded, HomeID: homeID, NodeID: nodeID})
	}
	e.emit(ozw.Notification{Type: ozw.NotificationNodeProtocolInfo, HomeID: homeID, NodeID: nodeID})
	for _, id := range n.sortedValueIDs() {
		e.emit(ozw.Notification{Type: ozw.NotificationValueAdded, HomeID: homeID, NodeID: nodeID, ValueID: id})
	}
	if n.info.Name != "" || n.info.Location != "" {
		e.emit(ozw.Notification{Type: ozw.NotificationNodeNaming, HomeID: homeID, NodeID: nodeID})
	}
	if n.info.Failed {
		e.emit(ozw.Notification{Type: ozw.NotificationNotification, HomeID: homeID, NodeID: nodeID, Code: ozw.CodeDead})
		return
	}
	e.emit(ozw.Notification{Type: ozw.NotificationEssentialNodeQueriesComplete, HomeID: homeID, NodeID: nodeID})
	e.emit(ozw.Notification{Type: ozw.NotificationNodeQueriesComplete, HomeID: homeID, NodeID: nodeID})
}

// refreshValues emits ValueRefreshed for every value of n accepted by keep.
// Callers hold e.mu.
func (e *Engine) refreshValues(h *home, n *node, keep func(ozw.ValueID) bool) {
	for _, id := range n.sortedValueIDs() {
		if keep != nil && !keep(id) {
			continue
		}
		h.stats.reads++
		h.stats.frames++
		e.emit(ozw.Notification{Type: ozw.NotificationValueRefreshed, HomeID: h.id, NodeID: n.info.NodeID, ValueID: id})
	}
}
