// Package history persists Z-Wave value changes and the node inventory in
// SQLite.
//
// Values are stored as CBOR-encoded tagged variants so every ozw value type,
// including lists and schedules, round-trips without a per-type column
// layout. Tables are created by the embedded migrations package.
package history
