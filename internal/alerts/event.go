package alerts

import (
	"encoding/json"
	"errors"
	"fmt"

	"iotmon/internal/models"
)

// TypeNotification tags events that carry a newly fired alert.
const TypeNotification = "notification"

var errNoAlert = errors.New("notification event without alert")

// Event is one inbound frame of the live channel.
type Event struct {
	Type  string        `json:"type"`
	Alert *models.Alert `json:"alert,omitempty"`
}

// decodeEvent parses a text frame. The returned bool is false for events that
// are well-formed but not meant for the alert list.
func decodeEvent(data []byte) (models.Alert, bool, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Alert{}, false, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type != TypeNotification {
		return models.Alert{}, false, nil
	}
	if ev.Alert == nil {
		return models.Alert{}, false, errNoAlert
	}
	return *ev.Alert, true, nil
}
