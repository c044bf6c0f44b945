package source

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

// readChunkSize is the buffer size for a single serial read.
const readChunkSize = 256

// Serial reads newline-delimited sample lines from a serial device.
//
// On open it discards everything up to and including the first newline,
// so the first returned line is never the tail of a record that was
// already in flight when the collector started.
//
// Thread Safety:
//   - ReadLine must be called from a single goroutine. Close may be
//     called concurrently to unblock a pending read.
type Serial struct {
	port   serial.Port
	reader *lineReader
	device string
}

// OpenSerial opens the configured serial device.
//
// It performs the following setup:
//  1. Opens the device at the configured baud rate
//  2. Applies the read (inactivity) timeout
//  3. Skips input until the first complete line boundary
//
// Parameters:
//   - cfg: Serial settings from config.yaml
//
// Returns:
//   - *Serial: Open source ready for ReadLine
//   - error: Wrapping ErrDeviceUnavailable if the device cannot be opened
func OpenSerial(cfg config.SerialConfig) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrDeviceUnavailable, cfg.Device, err)
	}
	if err := port.SetReadTimeout(cfg.GetReadTimeout()); err != nil {
		port.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: setting read timeout: %w", ErrDeviceUnavailable, err)
	}

	s := &Serial{
		port:   port,
		reader: newLineReader(port, cfg.MaxLineLength),
		device: cfg.Device,
	}

	// Skip until the end of a (possibly torn) line so the first sample
	// is read from a complete one.
	if err := s.reader.discardUntilNewline(); err != nil {
		port.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	return s, nil
}

// ReadLine returns the next complete line from the device.
//
// The context is observed between reads; a pending read is also unblocked
// by Close. An inactivity timeout or an over-long line returns
// ErrLineOverflow, a failed device returns ErrDeviceUnavailable.
func (s *Serial) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.reader.readLine()
}

// Close releases the serial port and unblocks a pending ReadLine.
func (s *Serial) Close() error {
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.device, err)
	}
	return nil
}

// lineReader assembles newline-delimited lines from a raw reader with a
// length limit. A read that returns zero bytes is treated as the device
// inactivity timeout, matching go.bug.st/serial's timeout behaviour.
type lineReader struct {
	r       io.Reader
	maxLen  int
	pending []byte
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      r,
		maxLen: maxLen,
	}
}

// readLine returns the next buffered line, reading more input as needed.
func (lr *lineReader) readLine() (string, error) {
	for {
		if line, ok := lr.popLine(); ok {
			return line, nil
		}
		if err := lr.fill(); err != nil {
			return "", err
		}
	}
}

// discardUntilNewline drops input up to and including the next newline.
func (lr *lineReader) discardUntilNewline() error {
	for {
		if _, ok := lr.popLine(); ok {
			return nil
		}
		if err := lr.fill(); err != nil {
			return err
		}
	}
}

// popLine removes and returns the first complete line from the buffer.
func (lr *lineReader) popLine() (string, bool) {
	for i, c := range lr.pending {
		if c == '\n' {
			line := string(lr.pending[:i])
			lr.pending = lr.pending[i+1:]
			return line, true
		}
	}
	return "", false
}

// fill reads one chunk from the device into the pending buffer.
func (lr *lineReader) fill() error {
	chunk := make([]byte, readChunkSize)
	n, err := lr.r.Read(chunk)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if n == 0 {
		// Read timeout. Either the device went silent entirely or it left
		// a torn line in the buffer; both lose line alignment.
		if len(lr.pending) == 0 {
			return fmt.Errorf("%w: no data received within read timeout", ErrLineOverflow)
		}
		return fmt.Errorf("%w: read timeout with incomplete line %q", ErrLineOverflow, lr.pending)
	}
	lr.pending = append(lr.pending, chunk[:n]...)
	if len(lr.pending) > lr.maxLen {
		return fmt.Errorf("%w: line exceeds %d bytes", ErrLineOverflow, lr.maxLen)
	}
	return nil
}
