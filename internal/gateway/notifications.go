package gateway

import (
	"context"
	"net/http"

	"iotmon/internal/models"
)

type NotificationsAPI struct{ c *Client }

func (n *NotificationsAPI) GetAll(ctx context.Context) ([]models.NotificationRule, error) {
	var rules []models.NotificationRule
	err := n.c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/notifications"}, &rules)
	return rules, err
}

func (n *NotificationsAPI) Create(ctx context.Context, rule models.NotificationRule) (models.NotificationRule, error) {
	var created models.NotificationRule
	err := n.c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/notifications", Body: rule}, &created)
	return created, err
}

func (n *NotificationsAPI) Update(ctx context.Context, id string, rule models.NotificationRuleUpdate) (models.NotificationRule, error) {
	var updated models.NotificationRule
	err := n.c.Do(ctx, Request{Method: http.MethodPut, Path: pathf("/api/notifications/%s", id), Body: rule}, &updated)
	return updated, err
}

func (n *NotificationsAPI) Delete(ctx context.Context, id string) error {
	return n.c.Do(ctx, Request{Method: http.MethodDelete, Path: pathf("/api/notifications/%s", id)}, nil)
}

// GetAlerts lists alerts already fired for the current user.
func (n *NotificationsAPI) GetAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := n.c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/notifications/alerts"}, &alerts)
	return alerts, err
}
