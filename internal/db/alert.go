package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"iotmon/internal/models"
)

const maxPageSize = 200

// ArchivedAlert is an alert as stored by the archive forwarder.
type ArchivedAlert struct {
	RequestID  uuid.UUID    `json:"request_id"`
	Alert      models.Alert `json:"alert"`
	ReceivedAt time.Time    `json:"received_at"`
}

// CreateAlert inserts a forwarded alert. Re-forwarding the same request is a no-op.
func (d *DB) CreateAlert(ctx context.Context, task models.Task) error {
	reqID, err := uuid.Parse(task.RequestID)
	if err != nil {
		return fmt.Errorf("invalid request ID %s: %w", task.RequestID, err)
	}

	var firedAt *time.Time
	if !task.Alert.CreatedAt.IsZero() {
		firedAt = &task.Alert.CreatedAt.Time
	}

	query := `
    INSERT INTO alert_archive (
        request_id, alert_id, device_id, device_name, metric, message, value, threshold, fired_at, received_at
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
    )
    ON CONFLICT (request_id) DO NOTHING`

	a := task.Alert
	_, err = d.Pool.Exec(ctx, query,
		reqID,
		a.ID,
		a.DeviceID,
		a.DeviceName,
		a.Metric,
		a.Message,
		a.Value,
		a.Threshold,
		firedAt,
		task.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Forward lets the archive act as a forwarding destination.
func (d *DB) Forward(ctx context.Context, task models.Task) error {
	return d.CreateAlert(ctx, task)
}

// ListAlerts returns archived alerts, newest first, with the total count.
func (d *DB) ListAlerts(ctx context.Context, limit, offset int) ([]ArchivedAlert, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM alert_archive`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `
	SELECT
		request_id, alert_id, device_id, device_name, metric, message, value, threshold, fired_at, received_at
	FROM alert_archive
	ORDER BY received_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := d.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	list := []ArchivedAlert{}
	for rows.Next() {
		var (
			item    ArchivedAlert
			firedAt *time.Time
		)
		err := rows.Scan(
			&item.RequestID,
			&item.Alert.ID,
			&item.Alert.DeviceID,
			&item.Alert.DeviceName,
			&item.Alert.Metric,
			&item.Alert.Message,
			&item.Alert.Value,
			&item.Alert.Threshold,
			&firedAt,
			&item.ReceivedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		if firedAt != nil {
			item.Alert.CreatedAt = models.At(*firedAt)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read alerts: %w", err)
	}

	return list, total, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
