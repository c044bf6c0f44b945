package lineprotocol_test

import (
	"testing"
	"time"

	"github.com/ppetr/arduino-influxdb/internal/lineprotocol"
)

func mustParse(t *testing.T, line string) *lineprotocol.Record {
	t.Helper()
	rec, err := lineprotocol.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", line, err)
	}
	return rec
}

// TestEnrich_EndToEnd is the reference example: one device line plus one
// static tag and a pinned capture instant produce the exact wire output.
func TestEnrich_EndToEnd(t *testing.T) {
	rec := mustParse(t, "plant,pin=A15 moisture=140,temperature=27.4")
	ts := time.Unix(1600000000, 0)

	got := lineprotocol.Enrich(rec, map[string]string{"location": "foo"}, ts)
	want := "plant,location=foo,pin=A15 moisture=140,temperature=27.4 1600000000000000000"
	if got != want {
		t.Errorf("Enrich() = %q, want %q", got, want)
	}
}

// TestEnrich_DeviceTagWins verifies the merge precedence: a tag reported
// by the device is never overridden by a static default.
func TestEnrich_DeviceTagWins(t *testing.T) {
	rec := mustParse(t, "plant,pin=A15 moisture=140")
	ts := time.Unix(0, 1)

	got := lineprotocol.Enrich(rec, map[string]string{"pin": "B2"}, ts)
	want := "plant,pin=A15 moisture=140 1"
	if got != want {
		t.Errorf("Enrich() = %q, want %q", got, want)
	}
}

func TestEnrich_NoStaticTags(t *testing.T) {
	rec := mustParse(t, "m value=1i")
	ts := time.Unix(0, 7)

	got := lineprotocol.Enrich(rec, nil, ts)
	want := "m value=1i 7"
	if got != want {
		t.Errorf("Enrich() = %q, want %q", got, want)
	}
}

// TestEnrich_DoesNotMutateRecord ensures the merge builds a new tag set;
// the parsed record can be reused safely.
func TestEnrich_DoesNotMutateRecord(t *testing.T) {
	rec := mustParse(t, "m,a=1 v=1")
	lineprotocol.Enrich(rec, map[string]string{"b": "2"}, time.Unix(0, 0))

	if _, leaked := rec.Tags["b"]; leaked {
		t.Errorf("Enrich() mutated the input record's tags: %v", rec.Tags)
	}
}

func TestEnrich_EscapesStaticTags(t *testing.T) {
	rec := mustParse(t, "m v=1")
	got := lineprotocol.Enrich(rec, map[string]string{"room name": "living room"}, time.Unix(0, 1))
	want := `m,room\ name=living\ room v=1 1`
	if got != want {
		t.Errorf("Enrich() = %q, want %q", got, want)
	}
}

// =============================================================================
// ParseTags
// =============================================================================

func TestParseTags(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{"empty", "", map[string]string{}, false},
		{"single", "foo=x", map[string]string{"foo": "x"}, false},
		{"multiple", "foo=x,bar=y", map[string]string{"foo": "x", "bar": "y"}, false},
		{"missing value", "foo", nil, true},
		{"empty value", "foo=", nil, true},
		{"duplicate key", "foo=x,foo=y", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lineprotocol.ParseTags(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTags(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTags(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseTags(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParseTags(%q)[%s] = %q, want %q", tt.input, k, got[k], v)
				}
			}
		})
	}
}
