package source

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

// MQTT connection constants.
const (
	// defaultConnectTimeout is the maximum wait for the initial connection.
	defaultConnectTimeout = 10 * time.Second

	// disconnectQuiesceMillis is how long Disconnect waits for in-flight work.
	disconnectQuiesceMillis = 250

	// lineBufferSize is the capacity of incoming line buffer. Remember that
	// anything before the durable queue is best-effort; if the broker
	// outruns the ingest loop this far, the oldest unread lines are shed.
	lineBufferSize = 256
)

// Logger is the narrow logging interface the MQTT source needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// MQTT reads sample lines published to a broker topic.
//
// Some deployments put the microcontroller behind an ESP bridge that
// publishes each serial line to MQTT instead of exposing a local device.
// Each message payload carries one or more newline-delimited lines in the
// same format the serial source produces.
//
// Thread Safety:
//   - ReadLine must be called from a single goroutine. Close may be
//     called concurrently; subscription callbacks run on paho goroutines.
type MQTT struct {
	client    pahomqtt.Client
	topic     string
	lines     chan string
	done      chan struct{}
	closeOnce sync.Once
	logger    Logger
}

// OpenMQTT connects to the broker and subscribes to the sample topic.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Enables auto-reconnect; paho restores the subscription itself
//  3. Attempts the initial connection with a timeout
//  4. Subscribes to the configured topic
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - logger: Destination for dropped-line warnings (may be nil)
//
// Returns:
//   - *MQTT: Connected source ready for ReadLine
//   - error: Wrapping ErrDeviceUnavailable if connect or subscribe fails
func OpenMQTT(cfg config.MQTTConfig, logger Logger) (*MQTT, error) {
	m := &MQTT{
		topic:  cfg.Topic,
		lines:  make(chan string, lineBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetResumeSubs(true)
	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	m.client = pahomqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: mqtt connect timeout after %v", ErrDeviceUnavailable, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: mqtt connect: %w", ErrDeviceUnavailable, err)
	}

	// #nosec G115 -- QoS validated by config to be 0..2
	sub := m.client.Subscribe(cfg.Topic, byte(cfg.QoS), m.handleMessage)
	if !sub.WaitTimeout(defaultConnectTimeout) || sub.Error() != nil {
		m.client.Disconnect(disconnectQuiesceMillis)
		return nil, fmt.Errorf("%w: mqtt subscribe %q: %v", ErrDeviceUnavailable, cfg.Topic, sub.Error())
	}

	return m, nil
}

// handleMessage splits a payload into lines and buffers them for ReadLine.
func (m *MQTT) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	for _, line := range strings.Split(string(msg.Payload()), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		select {
		case m.lines <- line:
		case <-m.done:
			return
		default:
			if m.logger != nil {
				m.logger.Warn("mqtt line buffer full, dropping line", "topic", m.topic)
			}
		}
	}
}

// ReadLine returns the next buffered line from the subscription.
func (m *MQTT) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-m.lines:
		return line, nil
	case <-m.done:
		return "", fmt.Errorf("%w: mqtt source closed", ErrDeviceUnavailable)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close unsubscribes and disconnects from the broker. Safe to call more
// than once.
func (m *MQTT) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		if m.client.IsConnected() {
			m.client.Unsubscribe(m.topic).WaitTimeout(defaultConnectTimeout)
			m.client.Disconnect(disconnectQuiesceMillis)
		}
	})
	return nil
}

// brokerURL builds the paho broker URL from config.
func brokerURL(cfg config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}
