// Package sqlite provides the SQLite-based implementation of the
// DocumentStore driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. It persists
// documents, their chunks (including raw embedding blobs), and the
// store meta record through a single database connection.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory. Each migration file inserts its own version
// into schema_migrations when it runs.
//
// # Data Location
//
// By default, the database is stored at ~/.recall/recall.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
