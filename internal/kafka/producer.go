package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"iotmon/internal/logging"
	"iotmon/internal/models"
)

type Config struct {
	Broker string
	Topic  string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes forwarded alerts keyed by alert id.
type Producer struct {
	writer messageWriter
	topic  string
	logger *logging.Logger
}

func NewProducer(cfg Config, logger *logging.Logger) (*Producer, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka broker and topic are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	logger.Infof("Kafka producer ready: broker=%s topic=%s", cfg.Broker, cfg.Topic)
	return &Producer{writer: w, topic: cfg.Topic, logger: logger}, nil
}

// Forward writes the alert as JSON.
func (p *Producer) Forward(ctx context.Context, task models.Task) error {
	value, err := json.Marshal(task.Alert)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", task.Alert.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(task.Alert.ID),
		Value: value,
		Time:  task.ReceivedAt,
		Headers: []kafka.Header{
			{Key: "request_id", Value: []byte(task.RequestID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Errorf("Kafka producer close failed: %v", err)
		return err
	}
	p.logger.Info("Kafka producer closed")
	return nil
}
