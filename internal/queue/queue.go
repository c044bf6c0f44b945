package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/database"
)

// schema is the pending-sample table. The AUTOINCREMENT rowid doubles as
// the FIFO sequence position and the acknowledgment handle; SQLite
// guarantees it is monotonically increasing and never reused.
const schema = `
CREATE TABLE IF NOT EXISTS pending (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	line       TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);`

// Entry is one queued wire line together with its acknowledgment handle.
type Entry struct {
	// ID is the entry's sequence position, used to acknowledge it.
	ID int64

	// Line is the serialized wire line exactly as enqueued.
	Line string
}

// Queue is a durable FIFO of wire lines awaiting delivery.
//
// It is the durability boundary of the pipeline: once Enqueue returns,
// the sample survives a crash; it is removed only after the delivery
// side acknowledges it.
//
// Thread Safety:
//   - Safe for concurrent Enqueue from the ingest loop and
//     PeekBatch/Acknowledge from the drain loop. The underlying database
//     uses a single connection, which serialises all statements.
type Queue struct {
	db *database.DB
}

// Open prepares the queue schema on an already-open database.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: The SQLite queue database
//
// Returns:
//   - *Queue: Ready queue
//   - error: Wrapping ErrUnavailable if the schema cannot be created
func Open(ctx context.Context, db *database.DB) (*Queue, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("%w: creating schema: %w", ErrUnavailable, err)
	}
	return &Queue{db: db}, nil
}

// Enqueue durably appends a wire line.
//
// It returns only after the insert has reached the journal at the
// configured synchronous level, so a crash immediately afterwards cannot
// lose the sample. A failure means durability can no longer be
// guaranteed; callers must stop accepting input rather than silently
// drop samples.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - line: The serialized wire line to persist
//
// Returns:
//   - error: Wrapping ErrUnavailable if the append fails
func (q *Queue) Enqueue(ctx context.Context, line string) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO pending (line, created_at) VALUES (?, ?)",
		line, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// PeekBatch returns up to max of the oldest pending entries in insertion
// order without removing them.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - max: Maximum number of entries to return
//
// Returns:
//   - []Entry: Oldest pending entries, oldest first; empty when idle
//   - error: Wrapping ErrUnavailable if the read fails
func (q *Queue) PeekBatch(ctx context.Context, max int) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, line FROM pending ORDER BY id LIMIT ?", max)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Line); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return entries, nil
}

// Acknowledge marks an entry as delivered and removes it.
//
// Acknowledging an entry that was already acknowledged is a no-op, not an
// error: after a crash between delivery and acknowledgment the same entry
// is delivered again (the at-least-once contract) and acknowledged again.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - id: The entry's handle from PeekBatch
//
// Returns:
//   - error: Wrapping ErrUnavailable if the delete fails
func (q *Queue) Acknowledge(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM pending WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Len returns the number of pending entries. A growing value while the
// database is unreachable is the expected degraded mode, not a fault.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return n, nil
}
