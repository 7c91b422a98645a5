package ozw

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// NodeRef addresses one node.
type NodeRef struct {
	HomeID uint32 `json:"home_id"`
	NodeID uint8  `json:"node_id"`
}

// Compare orders references by home then node.
func (r NodeRef) Compare(other NodeRef) int {
	return cmp.Or(cmp.Compare(r.HomeID, other.HomeID), cmp.Compare(r.NodeID, other.NodeID))
}

// HomeState tracks a controller's progress through start-up.
type HomeState struct {
	HomeID  uint32 `json:"home_id"`
	Ready   bool   `json:"ready"`
	Queried bool   `json:"queried"`
	// SomeDead is set when the initial query finished with unreachable nodes.
	SomeDead bool `json:"some_dead"`
}

// Inventory is a Watcher that records the homes, nodes and value identities
// announced by the engine. Listings are returned in sorted order.
//
// Thread Safety: all methods are safe for concurrent use.
type Inventory struct {
	mu     sync.RWMutex
	homes  map[uint32]*HomeState
	nodes  map[NodeRef]struct{}
	values map[ValueID]struct{}
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		homes:  make(map[uint32]*HomeState),
		nodes:  make(map[NodeRef]struct{}),
		values: make(map[ValueID]struct{}),
	}
}

// OnNotification implements Watcher.
func (inv *Inventory) OnNotification(n Notification) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	ref := NodeRef{HomeID: n.HomeID, NodeID: n.NodeID}
	switch n.Type {
	case NotificationDriverReady:
		inv.home(n.HomeID).Ready = true
	case NotificationDriverRemoved, NotificationDriverReset:
		inv.dropHome(n.HomeID)
		if n.Type == NotificationDriverReset {
			inv.home(n.HomeID).Ready = true
		}
	case NotificationAllNodesQueried, NotificationAwakeNodesQueried:
		inv.home(n.HomeID).Queried = true
	case NotificationAllNodesQueriedSomeDead:
		h := inv.home(n.HomeID)
		h.Queried = true
		h.SomeDead = true
	case NotificationNodeNew, NotificationNodeAdded:
		inv.home(n.HomeID)
		inv.nodes[ref] = struct{}{}
	case NotificationNodeRemoved, NotificationNodeReset:
		delete(inv.nodes, ref)
		maps.DeleteFunc(inv.values, func(id ValueID, _ struct{}) bool {
			return id.HomeID == n.HomeID && id.NodeID == n.NodeID
		})
	case NotificationValueAdded:
		inv.home(n.HomeID)
		inv.nodes[ref] = struct{}{}
		inv.values[n.ValueID] = struct{}{}
	case NotificationValueRemoved:
		delete(inv.values, n.ValueID)
	}
}

func (inv *Inventory) home(homeID uint32) *HomeState {
	h, ok := inv.homes[homeID]
	if !ok {
		h = &HomeState{HomeID: homeID}
		inv.homes[homeID] = h
	}
	return h
}

func (inv *Inventory) dropHome(homeID uint32) {
	delete(inv.homes, homeID)
	maps.DeleteFunc(inv.nodes, func(r NodeRef, _ struct{}) bool { return r.HomeID == homeID })
	maps.DeleteFunc(inv.values, func(id ValueID, _ struct{}) bool { return id.HomeID == homeID })
}

// Homes returns the known homes ordered by id.
func (inv *Inventory) Homes() []HomeState {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]HomeState, 0, len(inv.homes))
	for _, h := range inv.homes {
		out = append(out, *h)
	}
	slices.SortFunc(out, func(a, b HomeState) int { return cmp.Compare(a.HomeID, b.HomeID) })
	return out
}

// Home returns the state of one home.
func (inv *Inventory) Home(homeID uint32) (HomeState, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	h, ok := inv.homes[homeID]
	if !ok {
		return HomeState{}, false
	}
	return *h, true
}

// Nodes returns every known node ordered by home then node id.
func (inv *Inventory) Nodes() []NodeRef {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return slices.SortedFunc(maps.Keys(inv.nodes), NodeRef.Compare)
}

// HasNode reports whether the node has been announced.
func (inv *Inventory) HasNode(homeID uint32, nodeID uint8) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	_, ok := inv.nodes[NodeRef{HomeID: homeID, NodeID: nodeID}]
	return ok
}

// Values returns every known identity in ValueID order.
func (inv *Inventory) Values() []ValueID {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return slices.SortedFunc(maps.Keys(inv.values), ValueID.Compare)
}

// NodeValues returns the identities belonging to one node in ValueID order.
func (inv *Inventory) NodeValues(homeID uint32, nodeID uint8) []ValueID {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	var out []ValueID
	for id := range inv.values {
		if id.HomeID == homeID && id.NodeID == nodeID {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, ValueID.Compare)
	return out
}

// HasValue reports whether the identity has been announced.
func (inv *Inventory) HasValue(id ValueID) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	_, ok := inv.values[id]
	return ok
}

// Counts returns the number of known nodes and values.
func (inv *Inventory) Counts() (nodes, values int) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return len(inv.nodes), len(inv.values)
}
