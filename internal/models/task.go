package models

import "time"

// Task is one live alert queued for forwarding.
type Task struct {
	RequestID  string
	Alert      Alert
	ReceivedAt time.Time
}

// Subject is the one-line summary forwarders use as a title.
func (t Task) Subject() string {
	if t.Alert.DeviceName != "" {
		return "IoT alert: " + t.Alert.DeviceName
	}
	return "IoT alert"
}
