// Package source provides the line sources the collector can ingest from.
//
// All sources implement the same narrow Source interface: one raw line
// per ReadLine call, in arrival order. The pipeline neither knows nor
// cares whether lines arrive over a serial port or an MQTT topic.
//
// # Implementations
//
//   - Serial: a local serial device (go.bug.st/serial). Skips the first
//     torn line after open, enforces a maximum line length, and treats
//     device inactivity past the read timeout as an error so a dead
//     device is noticed instead of silently recording nothing.
//   - MQTT: a broker topic carrying the same newline-delimited lines,
//     for devices bridged to the network instead of plugged in locally.
//   - Geiger: a decorator for counter firmware that emits bare integers;
//     converts them into one counts-per-minute sample per minute.
//
// Source errors are I/O-class: the pipeline closes the source and reopens
// it with exponential backoff rather than exiting on the first wobble of
// a USB adapter.
package source
