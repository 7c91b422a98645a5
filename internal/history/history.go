package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// Sources of a recorded value.
const (
	// SourceReport is a reading the device reported (ValueChanged).
	SourceReport = "report"

	// SourceRefresh is a reading confirmed by a poll or state request.
	SourceRefresh = "refresh"

	// SourceCommand is a value written through the bridge or API.
	SourceCommand = "command"
)

// Entry is one recorded value.
type Entry struct {
	ID        int64       `json:"id"`
	ValueID   ozw.ValueID `json:"value_id"`
	Value     ozw.Value   `json:"-"`
	Source    string      `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
}

// MarshalJSON renders the reading in its native JSON form.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	out := struct {
		plain
		Value any `json:"value"`
	}{plain: plain(e)}
	if e.Value != nil {
		out.Value = ozw.Native(e.Value)
	}
	return json.Marshal(out)
}

// NodeRecord is a node's inventory row.
type NodeRecord struct {
	Info      ozw.NodeInfo `json:"info"`
	FirstSeen time.Time    `json:"first_seen"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Repository stores value history and the node inventory.
//
// Implementations must be safe for concurrent use and store UTC timestamps.
type Repository interface {
	// RecordValue appends a reading of id.
	RecordValue(ctx context.Context, id ozw.ValueID, v ozw.Value, source string) error

	// History returns the most recent readings of id, newest first.
	// limit defaults to 50 and is capped at 200.
	History(ctx context.Context, id ozw.ValueID, limit int) ([]Entry, error)

	// PruneHistory deletes readings older than olderThan and returns how
	// many were removed.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)

	// UpsertNode records the latest snapshot of a node.
	UpsertNode(ctx context.Context, info ozw.NodeInfo) error

	// Node returns one node's inventory row, or ErrNodeNotFound.
	Node(ctx context.Context, homeID uint32, nodeID uint8) (NodeRecord, error)

	// ListNodes returns every known node ordered by home and node id.
	ListNodes(ctx context.Context) ([]NodeRecord, error)

	// DeleteNode forgets a node and its value history.
	DeleteNode(ctx context.Context, homeID uint32, nodeID uint8) error
}
