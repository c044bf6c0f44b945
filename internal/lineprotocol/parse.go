package lineprotocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses one line of device input into a Record.
//
// The expected grammar is the InfluxDB line protocol without a timestamp:
//
//	measurement[,tag=val,...] field=val[,field=val...]
//
// The device has no clock, so the collector is the sole timestamp
// authority: a line carrying a trailing timestamp segment is treated as
// malformed rather than trusted.
//
// Parse is a pure function with no side effects. All failures wrap
// ErrMalformed; callers are expected to drop and log malformed lines
// rather than treat them as fatal, since a resetting device can emit
// arbitrary garbage.
//
// Parameters:
//   - line: One line with the trailing line break already stripped
//
// Returns:
//   - *Record: The parsed record
//   - error: Wrapping ErrMalformed if the line does not match the grammar
func Parse(line string) (*Record, error) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	head, rest, found := cutUnescaped(line, ' ', false)
	if !found {
		return nil, fmt.Errorf("%w: missing field section in %q", ErrMalformed, line)
	}

	fieldsPart, trailing, found := cutUnescaped(rest, ' ', true)
	if found && strings.TrimSpace(trailing) != "" {
		return nil, fmt.Errorf("%w: unexpected timestamp segment %q (the collector assigns timestamps)", ErrMalformed, trailing)
	}

	rec := &Record{
		Tags:   make(map[string]string),
		Fields: make(map[string]any),
	}

	// Measurement and tags
	parts := splitUnescaped(head, ',', false)
	rec.Measurement = unescape(parts[0])
	if rec.Measurement == "" {
		return nil, fmt.Errorf("%w: empty measurement in %q", ErrMalformed, line)
	}
	for _, p := range parts[1:] {
		k, v, ok := cutUnescaped(p, '=', false)
		if !ok {
			return nil, fmt.Errorf("%w: tag %q is not key=value", ErrMalformed, p)
		}
		key, val := unescape(k), unescape(v)
		if key == "" || val == "" {
			return nil, fmt.Errorf("%w: empty tag key or value in %q", ErrMalformed, p)
		}
		if _, dup := rec.Tags[key]; dup {
			return nil, fmt.Errorf("%w: duplicate tag key %q", ErrMalformed, key)
		}
		rec.Tags[key] = val
	}

	// Fields
	for _, p := range splitUnescaped(fieldsPart, ',', true) {
		k, v, ok := cutUnescaped(p, '=', true)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is not key=value", ErrMalformed, p)
		}
		key := unescape(k)
		if key == "" {
			return nil, fmt.Errorf("%w: empty field key in %q", ErrMalformed, p)
		}
		if _, dup := rec.Fields[key]; dup {
			return nil, fmt.Errorf("%w: duplicate field key %q", ErrMalformed, key)
		}
		val, err := parseFieldValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrMalformed, key, err)
		}
		rec.Fields[key] = val
	}
	if len(rec.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields in %q", ErrMalformed, line)
	}

	return rec, nil
}

// parseFieldValue converts a raw field value token into its typed form:
// quoted string, integer ("i" suffix), boolean, or float.
func parseFieldValue(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}

	// Quoted string
	if s[0] == '"' {
		if len(s) < 2 || s[len(s)-1] != '"' {
			return nil, fmt.Errorf("unterminated string %q", s)
		}
		return unquoteString(s[1 : len(s)-1]), nil
	}

	// Integer with "i" suffix
	if s[len(s)-1] == 'i' {
		n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return n, nil
	}

	// Boolean, in the spellings the line protocol accepts
	switch s {
	case "t", "T", "true", "True", "TRUE":
		return true, nil
	case "f", "F", "false", "False", "FALSE":
		return false, nil
	}

	// Float
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable value %q", s)
	}
	return f, nil
}

// unquoteString reverses quoteString's escaping of a string field body.
func unquoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescape removes backslash escapes before the line protocol's reserved
// characters (comma, space, equals). Other backslashes are literal.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case ',', ' ', '=':
				i++
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// cutUnescaped splits s around the first unescaped occurrence of sep.
// When quoteAware is set, separators inside double-quoted strings are
// ignored (needed for string field values containing spaces or commas).
func cutUnescaped(s string, sep byte, quoteAware bool) (before, after string, found bool) {
	i := indexUnescaped(s, sep, quoteAware)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// splitUnescaped splits s on every unescaped occurrence of sep.
func splitUnescaped(s string, sep byte, quoteAware bool) []string {
	var parts []string
	for {
		before, after, found := cutUnescaped(s, sep, quoteAware)
		parts = append(parts, before)
		if !found {
			return parts
		}
		s = after
	}
}

// indexUnescaped returns the index of the first occurrence of sep in s
// that is neither backslash-escaped nor (when quoteAware) inside quotes.
func indexUnescaped(s string, sep byte, quoteAware bool) int {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++ // skip the escaped character
		case quoteAware && s[i] == '"':
			inQuotes = !inQuotes
		case s[i] == sep && !inQuotes:
			return i
		}
	}
	return -1
}
