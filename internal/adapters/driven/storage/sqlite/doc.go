// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - MirrorStore: mirrored series/events plus the durable change queue
//   - CursorStore: harvest progress persistence
//   - RealmStore: the page tree and its content blocks
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode; write transactions take the lock immediately, and a
// lock wait that times out surfaces as domain.ErrConflict.
package sqlite
