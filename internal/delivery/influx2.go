package delivery

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

// v2Writer sends batches through the official influxdb-client-go v2
// blocking write API, which accepts raw line protocol records.
//
// There is deliberately no ping at construction: an unreachable database
// at startup must queue data, not prevent the collector from running.
type v2Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// newV2Writer builds a v2 writer with token authentication.
func newV2Writer(cfg config.InfluxDBConfig) *v2Writer {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions(),
	)

	return &v2Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// WriteBatch sends the batch as one write request.
func (w *v2Writer) WriteBatch(ctx context.Context, lines []string) error {
	err := w.writeAPI.WriteRecord(ctx, lines...)
	if err == nil {
		return nil
	}

	var serverErr *influxhttp.Error
	if errors.As(err, &serverErr) && serverErr.StatusCode != 0 {
		return &StatusError{
			StatusCode: serverErr.StatusCode,
			Body:       serverErr.Message,
		}
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Close shuts down the underlying client.
func (w *v2Writer) Close() error {
	w.client.Close()
	return nil
}
