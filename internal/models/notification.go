package models

import (
	"fmt"
	"strings"
)

// Metrics a notification rule can watch.
const (
	MetricCPUUsage    = "cpu_usage"
	MetricRAMUsage    = "ram_usage"
	MetricTemperature = "temperature"
	MetricDiskFree    = "disk_free"
	MetricDNSLatency  = "dns_latency"
)

var metricLabels = map[string]string{
	MetricCPUUsage:    "CPU Usage",
	MetricRAMUsage:    "RAM Usage",
	MetricTemperature: "Temperature",
	MetricDiskFree:    "Disk Free Space",
	MetricDNSLatency:  "DNS Latency",
}

var conditions = map[string]bool{">": true, "<": true, ">=": true, "<=": true, "==": true}

// NotificationRule is a threshold rule evaluated server-side against incoming heartbeats.
// DeviceIDs is a JSON-encoded array of device ids; empty means all devices.
type NotificationRule struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Metric    string    `json:"metric"`
	Condition string    `json:"condition"`
	Threshold float64   `json:"threshold"`
	DeviceIDs *string   `json:"device_ids,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at,omitzero"`
}

// NotificationRuleUpdate carries only the fields being changed.
type NotificationRuleUpdate struct {
	Name      *string  `json:"name,omitempty"`
	Metric    *string  `json:"metric,omitempty"`
	Condition *string  `json:"condition,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	DeviceIDs *string  `json:"device_ids,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// Validate checks the fields the dashboard form constrains.
func (r NotificationRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name is required")
	}
	if _, ok := metricLabels[r.Metric]; !ok {
		return fmt.Errorf("unknown metric %q", r.Metric)
	}
	if !conditions[r.Condition] {
		return fmt.Errorf("unknown condition %q", r.Condition)
	}
	return nil
}

// Alert is a fired notification rule as returned by the alerts listing and
// embedded in live notification events.
type Alert struct {
	ID             string    `json:"id,omitempty"`
	NotificationID string    `json:"notification_id,omitempty"`
	DeviceID       string    `json:"device_id,omitempty"`
	DeviceName     string    `json:"device_name,omitempty"`
	Metric         string    `json:"metric,omitempty"`
	Message        string    `json:"message"`
	Value          float64   `json:"value,omitempty"`
	Threshold      float64   `json:"threshold,omitempty"`
	CreatedAt      Timestamp `json:"created_at,omitzero"`
}

// MetricLabel returns the human-readable metric name.
func MetricLabel(metric string) string {
	if l, ok := metricLabels[metric]; ok {
		return l
	}
	return metric
}

// MetricUnit returns the display unit of a metric.
func MetricUnit(metric string) string {
	switch {
	case strings.Contains(metric, "usage"), metric == MetricDiskFree:
		return "%"
	case metric == MetricTemperature:
		return "°C"
	case metric == MetricDNSLatency:
		return "ms"
	default:
		return ""
	}
}

// Describe renders a rule the way the rules list shows it, e.g. "CPU Usage > 80%".
func (r NotificationRule) Describe() string {
	return fmt.Sprintf("%s %s %g%s", MetricLabel(r.Metric), r.Condition, r.Threshold, MetricUnit(r.Metric))
}
