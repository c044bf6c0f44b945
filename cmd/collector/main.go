// arduino-influxdb collector
//
// Reads newline-delimited metric samples from a microcontroller over a
// serial link (or an MQTT bridge), stamps them with static tags and a
// capture timestamp, persists them in a durable on-disk queue, and
// forwards them to an InfluxDB write endpoint. The queue guarantees that
// no accepted sample is lost even when the database or network is down
// for extended periods; the collector is designed to run unattended.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppetr/arduino-influxdb/internal/delivery"
	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
	"github.com/ppetr/arduino-influxdb/internal/infrastructure/database"
	"github.com/ppetr/arduino-influxdb/internal/infrastructure/logging"
	"github.com/ppetr/arduino-influxdb/internal/lineprotocol"
	"github.com/ppetr/arduino-influxdb/internal/pipeline"
	"github.com/ppetr/arduino-influxdb/internal/queue"
	"github.com/ppetr/arduino-influxdb/internal/source"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Process exit codes. Supervisors distinguish why the collector stopped.
const (
	exitGeneric       = 1
	exitInvalidConfig = 2
	exitSourceFailure = 3
	exitQueueFailure  = 4
)

// errInvalidConfig marks configuration problems for exit code mapping.
var errInvalidConfig = errors.New("invalid configuration")

var (
	configPath = flag.String("config", "", "path to config.yaml (default $COLLECTOR_CONFIG or "+defaultConfigPath+")")
	extraTags  = flag.String("tags", "", "additional static tags as key=value,... merged over the config file's tags")
)

func main() {
	flag.Parse()

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a fatal error to the collector's exit code contract.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errInvalidConfig):
		return exitInvalidConfig
	case errors.Is(err, source.ErrDeviceUnavailable):
		return exitSourceFailure
	case errors.Is(err, queue.ErrUnavailable):
		return exitQueueFailure
	default:
		return exitGeneric
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting collector", "version", version, "commit", commit)

	// Load configuration
	cfgPath := getConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	log.Info("configuration loaded", "path", cfgPath)

	// Merge command line tags over the config file's tags
	staticTags, err := mergeTags(cfg.Tags, *extraTags)
	if err != nil {
		return fmt.Errorf("%w: parsing -tags: %w", errInvalidConfig, err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open the durable queue
	db, err := database.Open(cfg.Queue)
	if err != nil {
		return fmt.Errorf("%w: %w", queue.ErrUnavailable, err)
	}
	defer func() {
		log.Info("closing queue database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing queue database", "error", closeErr)
		}
	}()

	q, err := queue.Open(ctx, db)
	if err != nil {
		return err
	}
	if backlog, lenErr := q.Len(ctx); lenErr == nil && backlog > 0 {
		log.Info("resuming with persisted backlog", "entries", backlog)
	}
	log.Info("durable queue ready", "path", cfg.Queue.Path)

	// Delivery client
	client, err := delivery.New(cfg.InfluxDB, log.With("component", "delivery"))
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	defer client.Close() //nolint:errcheck // Nothing actionable at shutdown
	log.Info("delivery configured",
		"url", cfg.InfluxDB.URL,
		"api", cfg.InfluxDB.API,
		"batch_size", cfg.InfluxDB.BatchSize,
	)

	// Pipeline
	p := pipeline.New(
		sourceOpener(cfg, log),
		q,
		client,
		pipeline.Options{
			StaticTags: staticTags,
			BatchSize:  cfg.InfluxDB.BatchSize,
			Reconnect:  cfg.Serial.Reconnect,
			Now:        time.Now,
		},
		log.With("component", "pipeline"),
	)

	err = p.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("clean shutdown")
	return nil
}

// sourceOpener builds the configured line source factory.
func sourceOpener(cfg *config.Config, log *logging.Logger) pipeline.SourceOpener {
	return func() (source.Source, error) {
		var (
			src source.Source
			err error
		)
		switch cfg.Source.Type {
		case "mqtt":
			src, err = source.OpenMQTT(cfg.MQTT, log.With("component", "mqtt"))
		default:
			src, err = source.OpenSerial(cfg.Serial)
		}
		if err != nil {
			return nil, err
		}
		if cfg.Source.Geiger {
			src = source.NewGeiger(src, time.Now)
		}
		return src, nil
	}
}

// mergeTags overlays flag-supplied tags on the config file's tags.
func mergeTags(fromConfig map[string]string, fromFlag string) (map[string]string, error) {
	flagTags, err := lineprotocol.ParseTags(fromFlag)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(fromConfig)+len(flagTags))
	for k, v := range fromConfig {
		merged[k] = v
	}
	for k, v := range flagTags {
		merged[k] = v
	}
	return merged, nil
}

// getConfigPath resolves the config file path from the -config flag, the
// COLLECTOR_CONFIG environment variable, or the default location.
func getConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	if env := os.Getenv("COLLECTOR_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}
