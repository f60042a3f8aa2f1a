// Package database provides SQLite storage for Slate Core.
//
// The database holds the state Slate owns locally: per-student schedule
// profiles and the audit trail. Everything else the system touches
// (locations, classes, users, groups, devices) lives in the remote
// school directory and is never mirrored here, so the write load is
// light — schedule edits and audit appends — and SQLite's single-writer
// model is a comfortable fit.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows schedule reads to proceed during audit writes
//   - Busy timeout prevents lock contention errors
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
// Migration Strategy:
//
// Migrations are additive-only so an older binary can run against a
// newer schema during rollback:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Never DROP or RENAME columns
//   - Each migration file has both .up.sql and .down.sql
package database
