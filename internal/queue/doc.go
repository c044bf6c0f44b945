// Package queue implements the durable FIFO between ingestion and delivery.
//
// Samples are stored as opaque, already-serialized wire lines, so the
// queue needs no decoding logic and its contents can be replayed to the
// database byte for byte after any crash.
//
// # Contract
//
//   - Enqueue appends durably; it returns only after the line is
//     recoverable across a crash.
//   - PeekBatch returns the oldest pending entries in insertion order
//     without removing them.
//   - Acknowledge removes a delivered entry; acknowledging twice is a
//     no-op, which makes at-least-once delivery safe.
//
// Entries are drained strictly in FIFO order and the drain side never
// acknowledges ahead of an earlier unacknowledged entry, preserving
// in-order, at-least-once delivery end to end.
//
// # Storage
//
// The backing store is a single SQLite file opened by the
// infrastructure/database package with WAL journaling. SQLite's rowid
// provides the monotonic sequence position for free, and the journal
// provides crash safety without any custom log format.
package queue
