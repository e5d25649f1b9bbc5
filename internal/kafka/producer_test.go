package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotmon/internal/logging"
	"iotmon/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewProducer_RequiresBrokerAndTopic(t *testing.T) {
	_, err := NewProducer(Config{Broker: "localhost:9092"}, logging.NewNop())
	assert.Error(t, err)
}

func TestProducer_Forward(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "iot-alerts", logger: logging.NewNop()}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Forward(context.Background(), models.Task{
		RequestID:  "req-1",
		Alert:      models.Alert{ID: "alert-9", Metric: models.MetricCPUUsage, Value: 95},
		ReceivedAt: now,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "alert-9", string(msg.Key))
	assert.Equal(t, now, msg.Time)
	assert.Equal(t, "req-1", string(msg.Headers[0].Value))

	var got models.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "alert-9", got.ID)
	assert.InDelta(t, 95, got.Value, 0.001)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_ForwardError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}, topic: "iot-alerts", logger: logging.NewNop()}
	err := p.Forward(context.Background(), models.Task{Alert: models.Alert{ID: "x"}})
	assert.ErrorContains(t, err, "iot-alerts")
}
