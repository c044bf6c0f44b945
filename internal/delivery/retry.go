package delivery

import (
	"time"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

// Backoff produces exponentially growing delays, doubling from the
// initial delay up to the cap. It also tracks the attempt count so retry
// ceilings can be enforced by the caller.
//
// The pipeline reuses it for reopening a failed line source; the policy
// is the same either way: never give up quickly on hardware or a network
// that will probably come back.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration

	// Attempts is the number of delays handed out since the last Reset.
	Attempts int
}

// NewBackoff creates a Backoff from reconnect/retry configuration.
func NewBackoff(cfg config.ReconnectConfig) *Backoff {
	b := &Backoff{
		initial: cfg.GetInitialDelay(),
		max:     cfg.GetMaxDelay(),
	}
	b.Reset()
	return b
}

// Next returns the delay to wait before the following attempt.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.Attempts++
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset restores the initial delay after a success.
func (b *Backoff) Reset() {
	b.next = b.initial
	b.Attempts = 0
}
