// Package mqtt republishes forwarded alerts to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"iotmon/internal/logging"
	"iotmon/internal/models"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 1000 // milliseconds
	alertQoS              = 1
)

var ErrConnectionFailed = errors.New("mqtt connection failed")

type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Publisher sends each alert as JSON to <topic>/<device id>, or to the base
// topic when the alert carries no device.
type Publisher struct {
	client pahomqtt.Client
	topic  string
	logger *logging.Logger
}

func Connect(cfg Config, logger *logging.Logger) (*Publisher, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		logger.Infof("MQTT connected: %s", cfg.Broker)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// TopicFor returns the topic an alert is published to.
func (p *Publisher) TopicFor(alert models.Alert) string {
	if alert.DeviceID == "" {
		return p.topic
	}
	return p.topic + "/" + alert.DeviceID
}

// Forward publishes the alert with QoS 1 and waits for the broker ack.
func (p *Publisher) Forward(ctx context.Context, task models.Task) error {
	payload, err := json.Marshal(task.Alert)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", task.Alert.ID, err)
	}

	topic := p.TopicFor(task.Alert)
	token := p.client.Publish(topic, alertQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(defaultPublishTimeout):
		return fmt.Errorf("publish to %s: timeout after %v", topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.client == nil {
		return
	}
	p.client.Disconnect(disconnectQuiesce)
	p.logger.Info("MQTT publisher disconnected")
}
