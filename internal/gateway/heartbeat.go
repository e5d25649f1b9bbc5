package gateway

import (
	"context"
	"net/http"

	"iotmon/internal/models"
)

type HeartbeatAPI struct{ c *Client }

// GetHistory lists heartbeats of a device between two ISO-8601 instants.
// Empty bounds are omitted and the server falls back to the last seven days.
func (h *HeartbeatAPI) GetHistory(ctx context.Context, deviceID, startDate, endDate string) ([]models.Heartbeat, error) {
	var history []models.Heartbeat
	err := h.c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   pathf("/api/heartbeat/%s/history", deviceID),
		Query: []Param{
			{Key: "start_date", Value: startDate},
			{Key: "end_date", Value: endDate},
		},
	}, &history)
	return history, err
}

// Send reports one heartbeat on behalf of the device identified by hb.DeviceSN.
func (h *HeartbeatAPI) Send(ctx context.Context, hb models.Heartbeat) (models.Heartbeat, error) {
	var stored models.Heartbeat
	err := h.c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/heartbeat/", Body: hb}, &stored)
	return stored, err
}
