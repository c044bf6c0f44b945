package delivery

import (
	"testing"
	"time"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

func TestBackoff_DoublesToCap(t *testing.T) {
	b := NewBackoff(config.ReconnectConfig{InitialDelay: 1, MaxDelay: 8})

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second, // capped
		8 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() call %d = %v, want %v", i, got, w)
		}
	}
	if b.Attempts != len(want) {
		t.Errorf("Attempts = %d, want %d", b.Attempts, len(want))
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(config.ReconnectConfig{InitialDelay: 1, MaxDelay: 60})
	b.Next()
	b.Next()
	b.Reset()

	if b.Attempts != 0 {
		t.Errorf("Attempts after Reset = %d, want 0", b.Attempts)
	}
	if got := b.Next(); got != 1*time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}
