package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"semp-gateway/config"
	"semp-gateway/internal/events"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	maxQoS                   = 2
)

// Publisher sends device events to an MQTT broker.
type Publisher struct {
	client pahomqtt.Client
	prefix string
	qos    byte
}

// Connect dials the broker described by cfg and returns a ready Publisher.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return NewPublisher(client, cfg.TopicPrefix, cfg.QoS)
}

// NewPublisher wraps an existing client.
func NewPublisher(client pahomqtt.Client, prefix string, qos int) (*Publisher, error) {
	if qos < 0 || qos > maxQoS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, qos)
	}
	return &Publisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    byte(qos),
	}, nil
}

// EventTopic returns the topic events for deviceID are published on.
func EventTopic(prefix, deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/events", prefix, deviceID)
}

// Publish implements events.Publisher.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	if e.DeviceID == "" || strings.ContainsAny(e.DeviceID, "/+#\x00") {
		return fmt.Errorf("%w: device id %q", ErrInvalidTopic, e.DeviceID)
	}
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}

	token := p.client.Publish(EventTopic(p.prefix, e.DeviceID), p.qos, false, payload)
	select {
	case <-token.Done():
	case <-time.After(defaultPublishTimeout):
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(defaultDisconnectQuiesce)
	}
}
