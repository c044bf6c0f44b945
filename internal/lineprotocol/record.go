package lineprotocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is a single parsed sample.
//
// Fields values are restricted to int64 (serialized with the "i" suffix),
// float64, bool, and string (serialized quoted). Parse only ever produces
// these types and Format round-trips them exactly.
type Record struct {
	// Measurement is the measurement name. Never empty for a parsed record.
	Measurement string

	// Tags maps tag keys to tag values. Keys are unique; serialization
	// order is sorted so output is deterministic.
	Tags map[string]string

	// Fields maps field keys to values. At least one entry is required;
	// a record without fields is invalid and is rejected by Parse.
	Fields map[string]any
}

// Format serializes the record as an InfluxDB line protocol string with
// the given timestamp appended in nanosecond epoch form.
//
// Format: measurement,tag1=val1,tag2=val2 field1=val1,field2=val2 timestamp_ns
//
// Tags and fields are emitted in sorted key order so the same record always
// produces the same line.
func (r *Record) Format(ts time.Time) string {
	var b strings.Builder

	// Measurement (escaped to prevent injection)
	b.WriteString(escapeMeasurement(r.Measurement))

	// Tags (sorted for deterministic output and testability)
	tagKeys := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		b.WriteByte(',')
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(escapeTag(r.Tags[k]))
	}

	// Fields (sorted for deterministic output)
	fieldKeys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)
	b.WriteByte(' ')
	for i, k := range fieldKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(formatFieldValue(r.Fields[k]))
	}

	// Timestamp in nanoseconds
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(ts.UnixNano(), 10))

	return b.String()
}

// formatFieldValue serializes one field value per the line protocol rules.
func formatFieldValue(v any) string {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10) + "i"
	case int:
		return strconv.Itoa(val) + "i"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return quoteString(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// quoteString wraps a string field value in double quotes, escaping
// backslashes and embedded quotes.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// escapeTag escapes special characters in tag keys/values per line protocol spec.
// Commas, equals signs, and spaces must be backslash-escaped.
// Newlines are stripped to prevent line protocol injection.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, " ", "\\ ")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "=", "\\=")
	return s
}

// escapeMeasurement escapes special characters in measurement names.
// Newlines are stripped to prevent line protocol injection.
func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, " ", "\\ ")
	s = strings.ReplaceAll(s, ",", "\\,")
	return s
}
