package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppetr/arduino-influxdb/internal/delivery"
	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
	"github.com/ppetr/arduino-influxdb/internal/lineprotocol"
	"github.com/ppetr/arduino-influxdb/internal/queue"
	"github.com/ppetr/arduino-influxdb/internal/source"
)

// defaultPollInterval is how long the drain loop idles on an empty queue.
const defaultPollInterval = time.Second

// Queue is the durable queue surface the pipeline consumes.
// Implemented by *queue.Queue.
type Queue interface {
	Enqueue(ctx context.Context, line string) error
	PeekBatch(ctx context.Context, max int) ([]queue.Entry, error)
	Acknowledge(ctx context.Context, id int64) error
}

// Deliverer sends one batch to the database, retrying transient failures
// internally. Implemented by *delivery.Client.
type Deliverer interface {
	Deliver(ctx context.Context, lines []string) error
}

// SourceOpener opens (or reopens) the line source. The pipeline calls it
// again with backoff after an I/O failure.
type SourceOpener func() (source.Source, error)

// Logger is the narrow logging interface the pipeline needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options tunes pipeline behaviour. Zero values get sensible defaults.
type Options struct {
	// StaticTags are merged into every sample (device tags win).
	StaticTags map[string]string

	// BatchSize is the maximum entries drained per delivery.
	BatchSize int

	// PollInterval is the drain loop's idle sleep when the queue is empty.
	PollInterval time.Duration

	// Reconnect controls backoff when reopening a failed source.
	Reconnect config.ReconnectConfig

	// Now is the capture clock; nil means time.Now. Injected so tests can
	// pin timestamps.
	Now func() time.Time
}

// Pipeline wires a line source, the durable queue, and the delivery
// client into the two concurrent loops of the collector.
//
// The ingest loop reads, parses, enriches, and enqueues. The drain loop
// peeks, delivers, and acknowledges. The durable queue is the only state
// the two loops share: the ingest side never waits on database latency
// and the drain side never touches the serial device.
type Pipeline struct {
	openSource SourceOpener
	queue      Queue
	deliverer  Deliverer
	opts       Options
	logger     Logger
}

// New creates a Pipeline. The source is not opened until Run.
func New(openSource SourceOpener, q Queue, d Deliverer, opts Options, logger Logger) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		openSource: openSource,
		queue:      q,
		deliverer:  d,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes both loops until the context is cancelled or ingestion
// fails fatally.
//
// Shutdown semantics:
//   - On context cancellation both loops finish their current operation
//     and exit; an aborted delivery attempt is never acknowledged, so a
//     clean shutdown neither loses nor duplicates entries.
//   - A fatal ingest failure (durable queue unavailable, or the source
//     gone past its reconnect ceiling) stops reading but lets the drain
//     loop keep flushing the already-persisted backlog; once the backlog
//     is empty Run returns the ingest error.
//
// Returns:
//   - error: nil on clean shutdown; otherwise the fatal error, checkable
//     with errors.Is against queue.ErrUnavailable or
//     source.ErrDeviceUnavailable for exit code mapping
func (p *Pipeline) Run(ctx context.Context) error {
	var (
		wg           sync.WaitGroup
		ingestErr    error
		drainErr     error
		ingestHalted = make(chan struct{})
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(ingestHalted)
		ingestErr = p.ingestLoop(ctx)
		if ingestErr != nil {
			p.logger.Error("ingestion halted", "error", ingestErr)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		drainErr = p.drainLoop(ctx, ingestHalted)
	}()

	wg.Wait()

	if ingestErr != nil {
		return ingestErr
	}
	return drainErr
}

// ingestLoop reads lines and drives them through parse → enrich → enqueue.
//
// Parse failures stay local: the line is dropped and logged, never fatal.
// Source I/O failures close and reopen the source with backoff. A queue
// failure is fatal, because accepting input without durability would
// silently drop samples.
func (p *Pipeline) ingestLoop(ctx context.Context) error {
	backoff := delivery.NewBackoff(p.opts.Reconnect)

	for {
		if ctx.Err() != nil {
			return nil
		}

		src, err := p.openSource()
		if err != nil {
			if retryErr := p.waitRetry(ctx, backoff, err); retryErr != nil {
				return retryErr
			}
			continue
		}
		backoff.Reset()
		p.logger.Info("source open, reading samples")

		err = p.readFrom(ctx, src)
		if err == nil {
			// Context cancelled: clean shutdown.
			return nil
		}
		if errors.Is(err, queue.ErrUnavailable) {
			return err
		}
		if retryErr := p.waitRetry(ctx, backoff, err); retryErr != nil {
			return retryErr
		}
	}
}

// readFrom consumes lines from an open source until the context is
// cancelled (returns nil) or an error occurs. The source is always closed
// before returning.
func (p *Pipeline) readFrom(ctx context.Context, src source.Source) error {
	// Unblock a pending read on shutdown; the serial read itself cannot
	// watch the context.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			src.Close() //nolint:errcheck // Closing to unblock, outcome irrelevant
		case <-watchDone:
		}
	}()
	defer src.Close() //nolint:errcheck // Second close after watcher is a no-op

	for {
		raw, err := src.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.logger.Debug("received line", "line", raw)

		rec, err := lineprotocol.Parse(raw)
		if err != nil {
			// One bad line must not block the ones after it.
			p.logger.Warn("dropping malformed line", "line", raw, "error", err)
			continue
		}

		wire := lineprotocol.Enrich(rec, p.opts.StaticTags, p.opts.Now())
		if err := p.queue.Enqueue(ctx, wire); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// waitRetry sleeps out one backoff delay after a source failure. It
// returns a fatal error when the reconnect ceiling is reached or the
// context is cancelled (cancellation returns nil).
func (p *Pipeline) waitRetry(ctx context.Context, backoff *delivery.Backoff, cause error) error {
	max := p.opts.Reconnect.MaxAttempts
	if max > 0 && backoff.Attempts+1 >= max {
		return fmt.Errorf("%w: giving up after %d attempts: %w", source.ErrDeviceUnavailable, max, cause)
	}
	delay := backoff.Next()
	p.logger.Warn("source failed, reopening", "attempt", backoff.Attempts, "delay", delay.String(), "error", cause)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// drainLoop flushes the queue to the database: peek a batch, deliver it,
// acknowledge each entry in order.
//
// It exits on context cancellation, on a queue failure, or — once the
// ingest loop has halted — when the backlog is fully flushed.
func (p *Pipeline) drainLoop(ctx context.Context, ingestHalted <-chan struct{}) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		entries, err := p.queue.PeekBatch(ctx, p.opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if len(entries) == 0 {
			select {
			case <-ingestHalted:
				// Nothing more will arrive and the backlog is flushed.
				return nil
			default:
			}
			if !p.idle(ctx) {
				return nil
			}
			continue
		}

		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = e.Line
		}

		if err := p.deliverer.Deliver(ctx, lines); err != nil {
			if ctx.Err() != nil {
				// Aborted delivery attempt: nothing acknowledged.
				return nil
			}
			// Rejected or retries exhausted. The entries stay queued and
			// will be retried on the next cycle; a growing queue is the
			// intended degraded mode, not data loss.
			p.logger.Error("batch not delivered, entries remain queued",
				"entries", len(entries), "error", err)
			if !p.idle(ctx) {
				return nil
			}
			continue
		}

		// Acknowledge strictly in order, never skipping ahead.
		for _, e := range entries {
			if err := p.queue.Acknowledge(ctx, e.ID); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		p.logger.Debug("batch delivered", "entries", len(entries))
	}
}

// idle sleeps one poll interval; false means the context was cancelled.
func (p *Pipeline) idle(ctx context.Context) bool {
	timer := time.NewTimer(p.opts.PollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
