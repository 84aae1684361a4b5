package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"sensor-cloud/internal/observability/metrics"
	readingapp "sensor-cloud/internal/readings/application"
)

// Config holds MQTT bridge settings.
type Config struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
}

// Bridge subscribes to a broker topic and stores incoming readings.
type Bridge struct {
	client  paho.Client
	service *readingapp.Service
	topic   string
	logger  *log.Logger
}

// NewBridge constructs an MQTT bridge.
func NewBridge(cfg Config, service *readingapp.Service, logger *log.Logger) (*Bridge, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("mqtt bridge: broker url required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt bridge: topic required")
	}
	if service == nil {
		return nil, errors.New("mqtt bridge: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Printf("mqtt bridge: connection lost: %v", err)
	})

	return &Bridge{
		client:  paho.NewClient(opts),
		service: service,
		topic:   cfg.Topic,
		logger:  logger,
	}, nil
}

// Start connects and subscribes. Message handling runs on paho's goroutines.
func (b *Bridge) Start() error {
	if b == nil || b.client == nil {
		return errors.New("mqtt bridge: nil client")
	}
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := b.client.Subscribe(b.topic, 0, b.handleMessage); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	b.logger.Printf("mqtt bridge: subscribed to %s", b.topic)
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	if b == nil || b.client == nil {
		return
	}
	b.client.Disconnect(250)
}

type payload struct {
	SensorID  string      `json:"sensor_id"`
	Value     json.Number `json:"value"`
	Timestamp string      `json:"timestamp"`
}

func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	var p payload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		metrics.IncMQTTMessage(metrics.ResultError)
		b.logger.Printf("mqtt bridge: decode error: %v", err)
		return
	}
	if p.SensorID == "" {
		metrics.IncMQTTMessage(metrics.ResultError)
		b.logger.Printf("mqtt bridge: missing sensor_id on topic %s", msg.Topic())
		return
	}
	value, err := p.Value.Float64()
	if err != nil {
		metrics.IncMQTTMessage(metrics.ResultError)
		b.logger.Printf("mqtt bridge: invalid value for sensor %s: %v", p.SensorID, err)
		return
	}
	var at time.Time
	if p.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			at = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := b.service.Submit(ctx, p.SensorID, value, at); err != nil {
		metrics.IncMQTTMessage(metrics.ResultError)
		b.logger.Printf("mqtt bridge: store error for sensor %s: %v", p.SensorID, err)
		return
	}
	metrics.IncMQTTMessage(metrics.ResultSuccess)
}
