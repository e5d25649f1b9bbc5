package gateway

import (
	"context"
	"net/http"

	"iotmon/internal/models"
)

type DevicesAPI struct{ c *Client }

func (d *DevicesAPI) GetAll(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	err := d.c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/devices"}, &devices)
	return devices, err
}

func (d *DevicesAPI) GetByID(ctx context.Context, id string) (models.Device, error) {
	var device models.Device
	err := d.c.Do(ctx, Request{Method: http.MethodGet, Path: pathf("/api/devices/%s", id)}, &device)
	return device, err
}

func (d *DevicesAPI) Create(ctx context.Context, device models.Device) (models.Device, error) {
	var created models.Device
	err := d.c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/devices", Body: device}, &created)
	return created, err
}

func (d *DevicesAPI) Update(ctx context.Context, id string, device models.DeviceUpdate) (models.Device, error) {
	var updated models.Device
	err := d.c.Do(ctx, Request{Method: http.MethodPut, Path: pathf("/api/devices/%s", id), Body: device}, &updated)
	return updated, err
}

func (d *DevicesAPI) Delete(ctx context.Context, id string) error {
	return d.c.Do(ctx, Request{Method: http.MethodDelete, Path: pathf("/api/devices/%s", id)}, nil)
}
