// Package delivery sends queued wire lines to the database.
//
// A batch is one write request: lines joined by newlines against the
// InfluxDB v1 /write endpoint, or one WriteRecord call through the
// official v2 client. Both backends speak raw line protocol, so queued
// lines are transmitted exactly as the enricher serialized them.
//
// # Failure taxonomy
//
// Every failure is classified before anything else happens:
//
//   - Transient (connection refused, timeout, 5xx): retried with
//     exponential backoff. A temporarily unreachable database causes
//     delay, never loss.
//   - Rejected (4xx): never retried. A malformed batch or bad credentials
//     would fail forever; the error is surfaced to the operator and the
//     queue entries stay pending. This deliberately lets a poison batch
//     stall the queue: losing data silently would be worse.
//
// The skip_statuses config softens the poison-batch tradeoff: statuses
// listed there (the original deployments used 400) are logged as warnings
// and the batch treated as delivered, trading those datapoints for
// liveness at the operator's explicit request.
package delivery
