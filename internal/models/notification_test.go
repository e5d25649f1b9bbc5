package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationRule_Validate(t *testing.T) {
	valid := NotificationRule{Name: "Hot CPU", Metric: MetricCPUUsage, Condition: ">", Threshold: 80}
	assert.NoError(t, valid.Validate())

	tests := map[string]NotificationRule{
		"blank name":        {Name: "  ", Metric: MetricCPUUsage, Condition: ">"},
		"unknown metric":    {Name: "x", Metric: "humidity", Condition: ">"},
		"unknown condition": {Name: "x", Metric: MetricCPUUsage, Condition: "!="},
	}
	for name, rule := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, rule.Validate())
		})
	}
}

func TestNotificationRule_Describe(t *testing.T) {
	r := NotificationRule{Metric: MetricCPUUsage, Condition: ">", Threshold: 80}
	assert.Equal(t, "CPU Usage > 80%", r.Describe())

	r = NotificationRule{Metric: MetricTemperature, Condition: ">=", Threshold: 70.5}
	assert.Equal(t, "Temperature >= 70.5°C", r.Describe())
}

func TestMetricHelpers(t *testing.T) {
	assert.Equal(t, "DNS Latency", MetricLabel(MetricDNSLatency))
	assert.Equal(t, "custom", MetricLabel("custom"))
	assert.Equal(t, "%", MetricUnit(MetricRAMUsage))
	assert.Equal(t, "%", MetricUnit(MetricDiskFree))
	assert.Equal(t, "ms", MetricUnit(MetricDNSLatency))
	assert.Empty(t, MetricUnit("custom"))
}

func TestTask_Subject(t *testing.T) {
	assert.Equal(t, "IoT alert", Task{}.Subject())
	assert.Equal(t, "IoT alert: Pi", Task{Alert: Alert{DeviceName: "Pi"}}.Subject())
}
