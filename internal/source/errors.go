package source

import "errors"

// Sentinel errors for line sources.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, source.ErrDeviceUnavailable) {
//	    // reopen with backoff, or give up and exit
//	}
var (
	// ErrDeviceUnavailable indicates the device or broker could not be
	// opened, or an established connection failed mid-read.
	ErrDeviceUnavailable = errors.New("source: device unavailable")

	// ErrLineOverflow indicates a line exceeded the configured maximum
	// length, or the device went silent past the read timeout and left an
	// incomplete line. Both mean the serial stream can no longer be
	// trusted to be aligned on line boundaries; the caller reopens the
	// device rather than guessing where the next record starts.
	ErrLineOverflow = errors.New("source: line overflow or read timeout")
)
