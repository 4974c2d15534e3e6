package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/gesture"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt not connected")

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	// Broker is a URL such as tcp://localhost:1883. A bare host:port gets tcp://.
	Broker      string
	TopicPrefix string
	ClientID    string
	QoS         byte
}

// MQTT publishes each event as JSON to <prefix>/<stream>/gesture.
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
	logger zerolog.Logger

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTT creates an MQTT sink. Call Connect before publishing.
func NewMQTT(cfg MQTTConfig, logger zerolog.Logger) *MQTT {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "mudra"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mudra"
	}
	return &MQTT{
		cfg:    cfg,
		logger: logger.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger(),
	}
}

// Connect establishes the broker connection. The client reconnects on its own
// after a connection loss.
func (m *MQTT) Connect(ctx context.Context) error {
	broker := m.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(m.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		m.setConnected(true)
		m.logger.Info().Str("client_id", m.cfg.ClientID).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		m.setConnected(false)
		m.logger.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
	}

	client := mqtt.NewClient(opts)
	m.logger.Info().Msg("connecting to mqtt broker")

	token := client.Connect()
	select {
	case <-token.Done():
	case <-time.After(mqttConnectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.connected = true
	m.mu.Unlock()

	return nil
}

// Topic returns the topic events of streamID are published to.
func (m *MQTT) Topic(streamID string) string {
	return fmt.Sprintf("%s/%s/gesture", m.cfg.TopicPrefix, streamID)
}

// Handle publishes ev.
func (m *MQTT) Handle(_ context.Context, ev gesture.Event) error {
	m.mu.RLock()
	client, connected := m.client, m.connected
	m.mu.RUnlock()

	if client == nil || !connected {
		m.countError()
		return ErrNotConnected
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		m.countError()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := m.Topic(ev.StreamID)
	token := client.Publish(topic, m.cfg.QoS, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		m.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		m.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	m.mu.Lock()
	m.published++
	m.mu.Unlock()

	m.logger.Debug().Str("topic", topic).Int("size", len(payload)).Msg("event published")
	return nil
}

// Stats returns the number of published events and failures.
func (m *MQTT) Stats() (published, failed uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.published, m.errors
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.connected = false
	m.mu.Unlock()

	if client != nil {
		client.Disconnect(250)
	}
	return nil
}

func (m *MQTT) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *MQTT) countError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}
