// Package database opens the SQLite file backing the durable sample queue.
//
// The queue package owns the schema and all queries; this package owns the
// connection string, the durability pragmas, and lifecycle. SQLite is a
// deliberate choice for an unattended collector: a single file, crash-safe
// with WAL journaling, no server to manage.
//
// # Durability
//
// The synchronous pragma maps directly to the queue's guarantee:
//
//	synchronous: full    # enqueued samples survive power loss
//	synchronous: normal  # enqueued samples survive a process crash
//
// WAL mode is always enabled so the drain loop can read pending samples
// while the ingest loop appends new ones.
package database
