// Package database provides the SQLite store behind the Z-Wave value history
// and node inventory.
//
// This package manages:
//   - The connection, in WAL mode with a busy timeout
//   - Schema migrations read from an fs.FS (normally the embedded migrations package)
//   - Health checks used by the daemon at startup
//
// SQLite accepts one writer at a time, so the pool is limited to a single
// open connection.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Migrations are additive: new columns must be
// nullable or carry a default.
package database
