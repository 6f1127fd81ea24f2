// Package database provides SQLite connectivity for the nuvo daemon.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations
//   - Connection pooling and lifecycle management
//   - STRICT mode enforcement for type safety
//
// The only persisted data is the zone state history; speaker group
// membership is runtime-only and intentionally never written to disk.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry
// DEFAULT values, and each migration ships both .up.sql and .down.sql.
package database
