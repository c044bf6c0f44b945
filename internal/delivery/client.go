package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

// Logger is the narrow logging interface the client needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Client delivers batches of wire lines to the database, retrying
// transient failures with exponential backoff.
//
// The retry state (attempt count, next delay) is scoped to a single
// Deliver call; nothing persists between calls, matching the rule that
// the delivery side holds no state the durable queue doesn't.
//
// Thread Safety:
//   - Deliver is called from the single drain goroutine; the client is
//     not made concurrency-safe beyond that.
type Client struct {
	writer Writer
	retry  config.ReconnectConfig
	skip   map[int]bool
	logger Logger
}

// New creates a delivery client for the configured endpoint.
//
// The backend is selected by influxdb.api:
//   - "v1": raw line protocol POST to /write?db=<database>&precision=ns
//   - "v2": influxdb-client-go blocking write API (org/bucket/token)
//
// Parameters:
//   - cfg: InfluxDB configuration from config.yaml
//   - logger: Destination for retry and skip warnings (may be nil)
//
// Returns:
//   - *Client: Ready client
//   - error: If the configured API is unknown
func New(cfg config.InfluxDBConfig, logger Logger) (*Client, error) {
	var writer Writer
	switch cfg.API {
	case "v1":
		writer = newV1Writer(cfg.URL, cfg.Database)
	case "v2":
		writer = newV2Writer(cfg)
	default:
		return nil, fmt.Errorf("unknown influxdb api %q", cfg.API)
	}

	skip := make(map[int]bool, len(cfg.SkipStatuses))
	for _, status := range cfg.SkipStatuses {
		skip[status] = true
	}

	return &Client{
		writer: writer,
		retry:  cfg.Retry,
		skip:   skip,
		logger: logger,
	}, nil
}

// Deliver sends one batch, retrying transient failures until they stop,
// the attempt ceiling is reached, or the context is cancelled.
//
// Outcomes:
//   - nil: the batch was accepted (or its rejection status is listed in
//     skip_statuses and was deliberately skipped with a warning)
//   - ErrRejected: the database refused the batch; not retried
//   - ErrTransient: retries exhausted (only with a configured ceiling)
//   - ctx.Err(): cancelled during a request or a backoff sleep
//
// The caller must acknowledge queue entries only on a nil return.
func (c *Client) Deliver(ctx context.Context, lines []string) error {
	backoff := NewBackoff(c.retry)

	for {
		err := c.writer.WriteBatch(ctx, lines)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && c.skip[statusErr.StatusCode] {
			c.warn("skipping batch refused by database", "status", statusErr.StatusCode, "error", err)
			return nil
		}
		if errors.Is(err, ErrRejected) {
			return err
		}

		// Transient: back off and retry.
		if c.retry.MaxAttempts > 0 && backoff.Attempts+1 >= c.retry.MaxAttempts {
			return err
		}
		delay := backoff.Next()
		c.warn("delivery failed, retrying", "attempt", backoff.Attempts, "delay", delay.String(), "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Close releases the underlying writer.
func (c *Client) Close() error {
	return c.writer.Close()
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
