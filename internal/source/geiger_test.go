package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// fakeSource yields scripted lines, then a terminal error.
type fakeSource struct {
	lines []string
	err   error
}

func (f *fakeSource) ReadLine(_ context.Context) (string, error) {
	if len(f.lines) == 0 {
		if f.err != nil {
			return "", f.err
		}
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakeSource) Close() error { return nil }

// tickingClock advances a fixed step per call, so each scripted line is
// read at a known instant.
type tickingClock struct {
	now  time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestGeiger_ReportsFirstReadingOfEachMinute(t *testing.T) {
	// Readings every 20s starting at 00:00:50. Minute boundaries fall
	// before the readings at 00:01:10 and 00:02:10.
	clock := &tickingClock{
		now:  time.Date(2020, 1, 1, 0, 0, 50, 0, time.UTC),
		step: 20 * time.Second,
	}
	src := &fakeSource{lines: []string{"17", "18", "19", "20", "21", "22", "23"}}
	g := NewGeiger(src, clock.Now)

	line, err := g.ReadLine(context.Background())
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	// "17" at 00:00:50 seeds the minute tracker; "18" at 00:01:10 is the
	// first reading of minute 1.
	if line != "geiger count_per_minute=18" {
		t.Errorf("ReadLine() = %q, want %q", line, "geiger count_per_minute=18")
	}

	line, err = g.ReadLine(context.Background())
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	// "19" (00:01:30) and "20" (00:01:50) are within minute 1; "21" at
	// 00:02:10 opens minute 2.
	if line != "geiger count_per_minute=21" {
		t.Errorf("ReadLine() = %q, want %q", line, "geiger count_per_minute=21")
	}
}

func TestGeiger_SkipsGarbageLines(t *testing.T) {
	clock := &tickingClock{
		now:  time.Date(2020, 1, 1, 0, 0, 55, 0, time.UTC),
		step: 30 * time.Second,
	}
	src := &fakeSource{lines: []string{"17", "###garbage", "42"}}
	g := NewGeiger(src, clock.Now)

	line, err := g.ReadLine(context.Background())
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	// Garbage is discarded without consuming a clock reading; "42" at
	// 00:01:25 is the first count of minute 1.
	if line != "geiger count_per_minute=42" {
		t.Errorf("ReadLine() = %q, want %q", line, "geiger count_per_minute=42")
	}
}

func TestGeiger_PropagatesSourceErrors(t *testing.T) {
	src := &fakeSource{err: ErrDeviceUnavailable}
	g := NewGeiger(src, nil)

	_, err := g.ReadLine(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("ReadLine() error = %v, want ErrDeviceUnavailable", err)
	}
}
