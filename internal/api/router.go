package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"iotmon/internal/alerts"
	"iotmon/internal/db"
	"iotmon/internal/gateway"
	"iotmon/internal/logging"
)

// Session is the credential store the dashboard signs users in and out of.
type Session interface {
	gateway.Credentials
	Set(token string)
}

// Archive lists alerts stored by the archive forwarder.
type Archive interface {
	ListAlerts(ctx context.Context, limit, offset int) ([]db.ArchivedAlert, int, error)
}

type Deps struct {
	Gateway   *gateway.Client
	Session   Session
	Monitor   *alerts.Monitor
	Navigator *Navigator
	Hub       *Hub
	Archive   Archive // optional
	Logger    *logging.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(d.Logger))

	h := NewHandler(d)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(RouteRoot, func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, RouteHome)
	})
	r.GET(RouteLogin, h.LoginPage)
	r.POST(RouteLogin, h.Login)
	r.POST(RouteRegister, h.Register)
	r.GET("/route", h.CurrentRoute)

	auth := r.Group("/", RequireSession(d.Session, d.Navigator))
	{
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Profile)
		auth.GET(RouteHome, h.Home)

		// Devices
		auth.GET(RouteDevices, h.ListDevices)
		auth.POST(RouteDevices, h.CreateDevice)
		auth.GET("/devices/:id", h.GetDevice)
		auth.PUT("/devices/:id", h.UpdateDevice)
		auth.DELETE("/devices/:id", h.DeleteDevice)
		auth.GET("/devices/:id/history", h.DeviceHistory)

		// Notifications
		auth.GET(RouteNotifications, h.NotificationsPage)
		auth.DELETE("/notifications/live", h.LeaveNotifications)
		auth.POST("/notifications/rules", h.CreateRule)
		auth.PUT("/notifications/rules/:id", h.UpdateRule)
		auth.DELETE("/notifications/rules/:id", h.DeleteRule)
		auth.GET("/notifications/alerts", h.LiveAlerts)
		auth.GET("/notifications/ws", d.Hub.ServeWS)

		if d.Archive != nil {
			auth.GET("/alerts/archive", h.ArchivedAlerts)
		}
	}
	return r
}
