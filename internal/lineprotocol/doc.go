// Package lineprotocol parses and serializes InfluxDB line protocol.
//
// The collector speaks the line protocol on both sides: devices emit it
// over the serial link (without a timestamp, since a microcontroller has
// no clock) and InfluxDB consumes it on the write endpoint (with the
// timestamp the collector assigns at capture time).
//
// # Wire format
//
//	measurement[,tag=value]* field=value[,field=value]* [timestamp]
//
// Field values are typed: integers carry an "i" suffix, strings are
// quoted, booleans use the protocol's true/false spellings, everything
// else is a float. Commas, spaces and equals signs inside names are
// backslash-escaped.
//
// # Trust boundary
//
// Parse treats its input as untrusted. A device in mid-reset can emit
// partial lines, binary noise, or duplicated keys; all of these are
// reported as ErrMalformed and the caller drops them. A line carrying its
// own timestamp segment is also malformed, because this pipeline is the
// sole timestamp authority.
//
// Parse and Enrich are pure functions, which keeps the whole package
// testable without any I/O.
package lineprotocol
