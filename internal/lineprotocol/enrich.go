package lineprotocol

import (
	"fmt"
	"strings"
	"time"
)

// Enrich merges static tags and a capture timestamp into a parsed record
// and returns the final wire line.
//
// The tag merge rule: static tags are added to the record's own tags, but
// on a key collision the device-supplied tag wins. A device that reports
// pin=A15 keeps pin=A15 even if the operator configured a default pin tag.
//
// The timestamp is the only non-pure input and is injected rather than
// read from the process clock, so tests can pin it.
//
// Enrich never fails: it only receives records that Parse already
// validated.
//
// Parameters:
//   - rec: A valid record produced by Parse
//   - staticTags: Operator-supplied tags applied to every sample
//   - now: The capture instant, appended as a nanosecond epoch timestamp
//
// Returns:
//   - string: The serialized wire line, ready for the durable queue
func Enrich(rec *Record, staticTags map[string]string, now time.Time) string {
	if len(staticTags) == 0 {
		return rec.Format(now)
	}

	merged := make(map[string]string, len(staticTags)+len(rec.Tags))
	for k, v := range staticTags {
		merged[k] = v
	}
	for k, v := range rec.Tags {
		merged[k] = v // device tag takes precedence
	}

	out := Record{
		Measurement: rec.Measurement,
		Tags:        merged,
		Fields:      rec.Fields,
	}
	return out.Format(now)
}

// ParseTags parses a comma-separated key=value list ("foo=x,bar=y") into a
// tag map. Used for the -tags command line flag, which mirrors the tags
// section of the config file.
//
// Returns an error on empty keys, empty values, or duplicate keys.
func ParseTags(s string) (map[string]string, error) {
	tags := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return tags, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("tag %q is not key=value", pair)
		}
		if _, dup := tags[k]; dup {
			return nil, fmt.Errorf("duplicate tag key %q", k)
		}
		tags[k] = v
	}
	return tags, nil
}
