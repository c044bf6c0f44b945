package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Geiger adapts a device that only emits bare integer counts.
//
// Geiger counter firmware typically reports a moving one-minute count
// window several times per minute. Summing those directly would count
// pulses repeatedly, so only the first reading of each new minute is
// reported, as a line protocol sample:
//
//	geiger count_per_minute=<count>
//
// The clock is injected so the minute boundary is testable.
type Geiger struct {
	src        Source
	now        func() time.Time
	lastMinute int
}

// NewGeiger wraps src in counts-per-minute mode.
//
// Parameters:
//   - src: The underlying line source emitting bare integer counts
//   - now: Clock for minute-boundary detection; nil means time.Now
func NewGeiger(src Source, now func() time.Time) *Geiger {
	if now == nil {
		now = time.Now
	}
	return &Geiger{
		src:        src,
		now:        now,
		lastMinute: -1,
	}
}

// ReadLine returns one formatted sample per minute boundary.
//
// Counts arriving within the same minute are consumed and discarded;
// non-numeric lines (device reset noise) are skipped. Errors from the
// underlying source pass through unchanged.
func (g *Geiger) ReadLine(ctx context.Context) (string, error) {
	for {
		raw, err := g.src.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		count, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			continue
		}

		minute := g.now().UTC().Minute()
		if g.lastMinute == -1 {
			// First reading after startup covers a partial window; skip it.
			g.lastMinute = minute
			continue
		}
		if minute == g.lastMinute {
			continue
		}
		g.lastMinute = minute
		return fmt.Sprintf("geiger count_per_minute=%d", count), nil
	}
}

// Close closes the underlying source.
func (g *Geiger) Close() error {
	return g.src.Close()
}
