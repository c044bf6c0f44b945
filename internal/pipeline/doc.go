// Package pipeline drives the collector's two concurrent loops.
//
// # Ingest
//
//	Reading → Parsing → Enqueuing → Reading
//
// Raw lines are parsed (malformed ones dropped and logged), enriched with
// static tags and a capture timestamp, and appended to the durable queue.
// The queue is the durability boundary: anything past it survives a
// crash, anything before it is best-effort.
//
// # Drain
//
//	Fetching batch → Delivering → Acknowledging → Fetching batch
//
// Pending entries are delivered oldest-first and acknowledged one by one
// in order after a successful write, never ahead of an earlier
// unacknowledged entry.
//
// The loops share only the queue. Database latency never stalls the
// serial reader, and serial inactivity never stalls delivery. A fatal
// ingest failure (queue unavailable, source past its reconnect ceiling)
// halts reading but the drain loop keeps flushing whatever was already
// persisted before the process reports the failure outward.
package pipeline
