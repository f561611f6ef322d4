package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second
	mqttQoS            = 1
)

// MQTTEvent is the JSON payload published for every notification.
type MQTTEvent struct {
	Recipient string    `json:"recipient"`
	Parts     []Part    `json:"parts"`
	SentAt    time.Time `json:"sent_at"`
}

// MQTT publishes notifications to <topic>/<recipient> on a broker.
type MQTT struct {
	broker   string
	clientID string
	topic    string
	log      *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	client    mqtt.Client
	connected bool
}

// NewMQTT returns a notifier for broker (host:port or a full URL). It does
// not connect until Connect is called.
func NewMQTT(broker, clientID, topic string, log *slog.Logger) *MQTT {
	return &MQTT{
		broker:   broker,
		clientID: clientID,
		topic:    strings.TrimRight(topic, "/"),
		log:      log,
		now:      time.Now,
	}
}

// Name identifies the notifier in logs and metrics.
func (m *MQTT) Name() string { return "mqtt" }

// Configured reports whether a broker address is set.
func (m *MQTT) Configured() bool {
	return m.broker != ""
}

// Connected reports whether the broker connection is currently up.
func (m *MQTT) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *MQTT) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect dials the broker. The client keeps reconnecting in the background
// after the first successful connection.
func (m *MQTT) Connect(ctx context.Context) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(m.broker))
	opts.SetClientID(m.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		m.setConnected(true)
		m.log.Info("mqtt connected", slog.String("broker", m.broker), slog.String("client_id", m.clientID))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.setConnected(false)
		m.log.Warn("mqtt connection lost", slog.String("broker", m.broker), slog.String("error", err.Error()))
	}

	client := mqtt.NewClient(opts)
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttConnectTimeout):
		return errors.New("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	m.setConnected(true)
	return nil
}

// Send publishes parts as an MQTTEvent to <topic>/<recipient>.
func (m *MQTT) Send(ctx context.Context, recipient string, parts []Part) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	m.mu.RLock()
	client, connected := m.client, m.connected
	m.mu.RUnlock()
	if client == nil || !connected {
		return errors.New("mqtt: not connected")
	}

	payload, err := json.Marshal(MQTTEvent{Recipient: recipient, Parts: parts, SentAt: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("mqtt: marshal: %w", err)
	}

	topic := m.topicFor(recipient)
	token := client.Publish(topic, mqttQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttPublishTimeout):
		return errors.New("mqtt: publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish: %w", err)
	}

	m.log.Debug("mqtt event published", slog.String("topic", topic), slog.Int("size", len(payload)))
	return nil
}

func (m *MQTT) topicFor(recipient string) string {
	if recipient == "" {
		recipient = "default"
	}
	return m.topic + "/" + recipient
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.mu.Lock()
	client := m.client
	m.connected = false
	m.mu.Unlock()
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		m.log.Info("mqtt disconnected")
	}
}
