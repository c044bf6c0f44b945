package source

import "context"

// Source yields raw sample lines from a device.
//
// Implementations deliver one line per call, in arrival order, with the
// trailing line break stripped. ReadLine blocks until a line is
// available, the context is cancelled, or the device fails.
//
// A Source error is an I/O-class failure: the pipeline responds by
// closing and reopening the source with backoff, the same way the
// original hardware deployments recover from a USB adapter reset.
type Source interface {
	// ReadLine returns the next line from the device.
	ReadLine(ctx context.Context) (string, error)

	// Close releases the device. It also unblocks a concurrent ReadLine.
	Close() error
}
