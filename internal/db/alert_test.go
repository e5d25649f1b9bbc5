package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotmon/internal/models"
)

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, maxPageSize, 0},
		{20, 40, 20, 40},
		{1000, -5, maxPageSize, 0},
	}
	for _, tt := range tests {
		l, o := clampPage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}

func TestCreateAlert_RejectsBadRequestID(t *testing.T) {
	d := &DB{}
	err := d.CreateAlert(context.Background(), models.Task{RequestID: "not-a-uuid"})
	assert.ErrorContains(t, err, "invalid request ID")
}

// Runs against a real PostgreSQL when IOTMON_TEST_DSN is set.
func TestArchive_RoundTrip(t *testing.T) {
	dsn := os.Getenv("IOTMON_TEST_DSN")
	if dsn == "" {
		t.Skip("IOTMON_TEST_DSN not set")
	}
	ctx := context.Background()
	d, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.EnsureSchema(ctx))

	task := models.Task{
		RequestID:  uuid.NewString(),
		Alert:      models.Alert{ID: "a1", DeviceName: "Pi", Metric: models.MetricCPUUsage, Value: 91, Threshold: 80},
		ReceivedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, d.Forward(ctx, task))
	require.NoError(t, d.Forward(ctx, task))

	list, total, err := d.ListAlerts(ctx, 10, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, 1)
	require.NotEmpty(t, list)

	var found bool
	for _, item := range list {
		if item.RequestID.String() == task.RequestID {
			found = true
			assert.Equal(t, "Pi", item.Alert.DeviceName)
			assert.True(t, item.Alert.CreatedAt.IsZero())
		}
	}
	assert.True(t, found)
}
