package queue

import "errors"

// ErrUnavailable indicates the underlying durable storage failed (disk
// full, corruption, file permissions). Once this happens the queue can no
// longer promise that accepted samples survive a crash, so the ingest
// side must stop reading new input instead of silently dropping data.
// The drain side may keep flushing any backlog that was already
// persisted.
//
// Check with errors.Is:
//
//	if errors.Is(err, queue.ErrUnavailable) {
//	    // halt ingestion
//	}
var ErrUnavailable = errors.New("queue: storage unavailable")
