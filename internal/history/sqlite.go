package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timeLayout has fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteRepository implements Repository on the tables created by the
// zwave_history migration.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check.
var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository over an open, migrated database.
//
// Parameters:
//   - db: Open SQLite connection
//
// Returns:
//   - *SQLiteRepository: Repository ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

// RecordValue inserts a reading of id.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Value identity; home and node must be set
//   - v: The reading
//   - source: SourceReport, SourceRefresh or SourceCommand; empty means SourceReport
//
// Returns:
//   - error: ErrInvalidValueID, ErrNilValue, or the database error
func (r *SQLiteRepository) RecordValue(ctx context.Context, id ozw.ValueID, v ozw.Value, source string) error {
	if id.HomeID == 0 || id.NodeID == 0 {
		return ErrInvalidValueID
	}
	if source == "" {
		source = SourceReport
	}
	data, err := EncodeValue(v)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO zwave_value_history (home_id, node_id, value_id, value, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.HomeID, id.NodeID, id.String(), data, source, r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting value history: %w", err)
	}
	return nil
}

// History returns recent readings of id ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Value identity
//   - limit: Maximum entries (default 50, max 200)
//
// Returns:
//   - []Entry: Entries, possibly empty
//   - error: The query or decode error
func (r *SQLiteRepository) History(ctx context.Context, id ozw.ValueID, limit int) ([]Entry, error) {
	if id.HomeID == 0 || id.NodeID == 0 {
		return nil, ErrInvalidValueID
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, value, source, created_at
		 FROM zwave_value_history
		 WHERE value_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		id.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying value history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry     = Entry{ValueID: id}
			data      []byte
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &data, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning value history: %w", err)
		}
		if entry.Value, err = DecodeValue(data); err != nil {
			return nil, err
		}
		if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes readings recorded before now-olderThan.
func (r *SQLiteRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	cutoff := r.now().UTC().Add(-olderThan).Format(timeLayout)

	result, err := r.db.ExecContext(ctx, "DELETE FROM zwave_value_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting value history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// UpsertNode stores the latest snapshot of a node, keeping its first-seen
// time.
func (r *SQLiteRepository) UpsertNode(ctx context.Context, info ozw.NodeInfo) error {
	if info.HomeID == 0 || info.NodeID == 0 {
		return ErrInvalidValueID
	}
	data, err := encodeNode(info)
	if err != nil {
		return err
	}
	now := r.timestamp()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO zwave_nodes (home_id, node_id, name, location, product_name, failed, info, first_seen, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (home_id, node_id) DO UPDATE SET
		     name = excluded.name,
		     location = excluded.location,
		     product_name = excluded.product_name,
		     failed = excluded.failed,
		     info = excluded.info,
		     updated_at = excluded.updated_at`,
		info.HomeID, info.NodeID, info.Name, info.Location, info.ProductName, info.Failed, data, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting node: %w", err)
	}
	return nil
}

// Node returns one node's inventory row.
func (r *SQLiteRepository) Node(ctx context.Context, homeID uint32, nodeID uint8) (NodeRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT info, first_seen, updated_at FROM zwave_nodes WHERE home_id = ? AND node_id = ?",
		homeID, nodeID,
	)
	rec, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return NodeRecord{}, ErrNodeNotFound
	}
	return rec, err
}

// ListNodes returns every known node ordered by home and node id.
func (r *SQLiteRepository) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT info, first_seen, updated_at FROM zwave_nodes ORDER BY home_id, node_id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []NodeRecord
	for rows.Next() {
		rec, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

// DeleteNode removes a node and its value history in one transaction.
//
// Returns:
//   - error: ErrNodeNotFound if the node has no inventory row
func (r *SQLiteRepository) DeleteNode(ctx context.Context, homeID uint32, nodeID uint8) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is a no-op after commit

	result, err := tx.ExecContext(ctx, "DELETE FROM zwave_nodes WHERE home_id = ? AND node_id = ?", homeID, nodeID)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	} else if n == 0 {
		return ErrNodeNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM zwave_value_history WHERE home_id = ? AND node_id = ?", homeID, nodeID,
	); err != nil {
		return fmt.Errorf("deleting node history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing node delete: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (NodeRecord, error) {
	var (
		rec                  NodeRecord
		data                 []byte
		firstSeen, updatedAt string
	)
	if err := s.Scan(&data, &firstSeen, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NodeRecord{}, err
		}
		return NodeRecord{}, fmt.Errorf("scanning node: %w", err)
	}

	var err error
	if rec.Info, err = decodeNode(data); err != nil {
		return NodeRecord{}, err
	}
	if rec.FirstSeen, err = parseTimestamp(firstSeen); err != nil {
		return NodeRecord{}, err
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return NodeRecord{}, err
	}
	return rec, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	return t, nil
}
