package api

import (
	"context"
	"sync"

	"iotmon/internal/alerts"
	"iotmon/internal/gateway"
	"iotmon/internal/logging"
)

// Dashboard routes.
const (
	RouteRoot          = "/"
	RouteLogin         = gateway.LoginRoute
	RouteRegister      = "/register"
	RouteHome          = "/home"
	RouteDevices       = "/devices"
	RouteNotifications = "/notifications"
)

// Navigator tracks the route the dashboard user is on.
type Navigator struct {
	mu      sync.RWMutex
	route   string
	monitor *alerts.Monitor
	logger  *logging.Logger
}

func NewNavigator(monitor *alerts.Monitor, logger *logging.Logger) *Navigator {
	return &Navigator{route: RouteLogin, monitor: monitor, logger: logger}
}

func (n *Navigator) Current() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.route
}

// Navigate moves to route. Leaving the notifications page unmounts its live channel.
func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	prev := n.route
	n.route = route
	n.mu.Unlock()

	if prev == RouteNotifications && route != RouteNotifications && n.monitor != nil {
		n.monitor.Leave()
	}
}

// OpenNotifications navigates to the notifications page and mounts its live
// channel. If the user navigated away while the channel was connecting, the
// channel is closed again.
func (n *Navigator) OpenNotifications(ctx context.Context) error {
	n.Navigate(RouteNotifications)
	err := n.monitor.Visit(ctx)
	if n.Current() != RouteNotifications {
		n.logger.Debugf("Left notifications while the live channel was connecting")
		n.monitor.Leave()
	}
	return err
}

// HandleUnauthenticated is subscribed to the gateway's 401 signal.
func (n *Navigator) HandleUnauthenticated(ev gateway.UnauthenticatedEvent) {
	n.logger.Warnf("Session rejected by %s %s, redirecting to %s", ev.Method, ev.Path, ev.Redirect)
	n.mu.Lock()
	n.route = ev.Redirect
	n.mu.Unlock()
	if n.monitor != nil {
		n.monitor.Leave()
	}
}
