// Package config loads and validates collector configuration.
//
// Configuration comes from a single YAML file with three layers of
// precedence: hardcoded defaults, file values, and COLLECTOR_* environment
// variable overrides (useful for secrets like the InfluxDB token).
//
// # Sections
//
//   - source: line source selection (serial or mqtt, optional geiger mode)
//   - serial: device path, baud rate, read timeout, line length limit
//   - mqtt: broker, credentials, topic for the MQTT source
//   - queue: durable queue file path and SQLite durability settings
//   - influxdb: endpoint, target database/bucket, batching and retry
//   - tags: static tags merged into every sample
//   - logging: level, format, output
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    // invalid configuration; the error lists every problem found
//	}
//
// Validation collects all errors rather than failing on the first one, so
// a misconfigured deployment can be fixed in a single pass.
package config
