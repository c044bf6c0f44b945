package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Timeouts and limits for write requests.
const (
	// defaultWriteTimeout is the per-request HTTP timeout.
	defaultWriteTimeout = 10 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is kept.
	maxErrorBodyBytes = 1024
)

// Writer sends one batch of wire lines to the database.
//
// Implementations are stateless across calls: a failed batch leaves
// nothing behind, and the same batch can be sent again verbatim.
type Writer interface {
	// WriteBatch issues a single write request for the batch.
	// Failures wrap ErrTransient or ErrRejected.
	WriteBatch(ctx context.Context, lines []string) error

	// Close releases any connections held by the writer.
	Close() error
}

// v1Writer posts newline-joined line protocol to the InfluxDB v1 write
// endpoint: POST /write?db=<database>&precision=ns.
type v1Writer struct {
	writeURL   string
	httpClient *http.Client
}

// newV1Writer builds a v1 writer for the given server URL and database.
func newV1Writer(serverURL, database string) *v1Writer {
	params := url.Values{}
	params.Set("db", database)
	params.Set("precision", "ns")

	return &v1Writer{
		writeURL: strings.TrimRight(serverURL, "/") + "/write?" + params.Encode(),
		httpClient: &http.Client{
			Timeout: defaultWriteTimeout,
		},
	}
}

// WriteBatch sends the batch as one POST of newline-delimited lines.
func (w *v1Writer) WriteBatch(ctx context.Context, lines []string) error {
	body := strings.Join(lines, "\n") + "\n"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.writeURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrTransient, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	explanation, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(explanation)),
	}
}

// Close releases idle connections.
func (w *v1Writer) Close() error {
	w.httpClient.CloseIdleConnections()
	return nil
}
