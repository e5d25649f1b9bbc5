package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"iotmon/internal/alerts"
	"iotmon/internal/gateway"
	"iotmon/internal/logging"
	"iotmon/internal/models"
)

type Handler struct {
	gw      *gateway.Client
	session Session
	monitor *alerts.Monitor
	nav     *Navigator
	archive Archive
	logger  *logging.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		gw:      d.Gateway,
		session: d.Session,
		monitor: d.Monitor,
		nav:     d.Navigator,
		archive: d.Archive,
		logger:  d.Logger,
	}
}

// gatewayError maps a failed backend call onto the dashboard response.
// Client errors keep their status; transport and server failures become 502.
func (h *Handler) gatewayError(c *gin.Context, op string, err error) {
	h.logger.Errorf("%s failed: %v", op, err)

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.StatusCode >= 400 && gwErr.StatusCode < 500 {
		body := gin.H{"error": gwErr.Error()}
		if gwErr.StatusCode == http.StatusUnauthorized {
			body["route"] = RouteLogin
		}
		c.JSON(gwErr.StatusCode, body)
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func (h *Handler) LoginPage(c *gin.Context) {
	_, ok := h.session.Get()
	h.nav.Navigate(RouteLogin)
	c.JSON(http.StatusOK, gin.H{"route": RouteLogin, "authenticated": ok})
}

func (h *Handler) Login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.logger.Errorf("Invalid login request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	token, err := h.gw.Auth.Login(c.Request.Context(), creds)
	if err != nil {
		h.gatewayError(c, "Login", err)
		return
	}
	if token.AccessToken == "" {
		h.logger.Errorf("Login returned no access token")
		c.JSON(http.StatusBadGateway, gin.H{"error": "login returned no access token"})
		return
	}

	h.session.Set(token.AccessToken)
	h.nav.Navigate(RouteHome)
	h.logger.Infof("Signed in as %s", creds.Email)
	c.JSON(http.StatusOK, gin.H{"route": RouteHome, "token_type": token.TokenType})
}

func (h *Handler) Register(c *gin.Context) {
	var reg models.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		h.logger.Errorf("Invalid registration request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.gw.Auth.Register(c.Request.Context(), reg)
	if err != nil {
		h.gatewayError(c, "Register", err)
		return
	}
	h.nav.Navigate(RouteLogin)
	h.logger.Infof("Registered user %s", user.Email)
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) CurrentRoute(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"route": h.nav.Current()})
}

func (h *Handler) Logout(c *gin.Context) {
	h.session.Clear()
	h.monitor.Leave()
	h.nav.Navigate(RouteLogin)
	c.JSON(http.StatusOK, gin.H{"route": RouteLogin})
}

func (h *Handler) Profile(c *gin.Context) {
	user, err := h.gw.Auth.GetProfile(c.Request.Context())
	if err != nil {
		h.gatewayError(c, "Get profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Home(c *gin.Context) {
	devices, err := h.gw.Devices.GetAll(c.Request.Context())
	if err != nil {
		h.gatewayError(c, "List devices", err)
		return
	}
	h.nav.Navigate(RouteHome)
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.gw.Devices.GetAll(c.Request.Context())
	if err != nil {
		h.gatewayError(c, "List devices", err)
		return
	}
	h.nav.Navigate(RouteDevices)
	c.JSON(http.StatusOK, devices)
}

func (h *Handler) GetDevice(c *gin.Context) {
	id := c.Param("id")
	device, err := h.gw.Devices.GetByID(c.Request.Context(), id)
	if err != nil {
		h.gatewayError(c, "Get device "+id, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

func (h *Handler) CreateDevice(c *gin.Context) {
	var device models.Device
	if err := c.ShouldBindJSON(&device); err != nil {
		h.logger.Errorf("Invalid request body for device: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if device.Name == "" || device.SN == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and sn are required"})
		return
	}

	created, err := h.gw.Devices.Create(c.Request.Context(), device)
	if err != nil {
		h.gatewayError(c, "Create device", err)
		return
	}
	h.logger.Infof("Created device: %s", created.ID)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateDevice(c *gin.Context) {
	id := c.Param("id")
	var update models.DeviceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Errorf("Invalid request body for device %s: %v", id, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	device, err := h.gw.Devices.Update(c.Request.Context(), id, update)
	if err != nil {
		h.gatewayError(c, "Update device "+id, err)
		return
	}
	h.logger.Infof("Updated device: %s", id)
	c.JSON(http.StatusOK, device)
}

func (h *Handler) DeleteDevice(c *gin.Context) {
	id := c.Param("id")
	if err := h.gw.Devices.Delete(c.Request.Context(), id); err != nil {
		h.gatewayError(c, "Delete device "+id, err)
		return
	}
	h.logger.Infof("Deleted device: %s", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeviceHistory(c *gin.Context) {
	id := c.Param("id")
	history, err := h.gw.Heartbeat.GetHistory(c.Request.Context(), id, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.gatewayError(c, "Heartbeat history for "+id, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// NotificationsPage loads rules, fired alerts and devices, seeds the live
// feed and mounts the alert channel.
func (h *Handler) NotificationsPage(c *gin.Context) {
	ctx := c.Request.Context()
	rules, err := h.gw.Notifications.GetAll(ctx)
	if err != nil {
		h.gatewayError(c, "List notification rules", err)
		return
	}
	fired, err := h.gw.Notifications.GetAlerts(ctx)
	if err != nil {
		h.gatewayError(c, "List alerts", err)
		return
	}
	devices, err := h.gw.Devices.GetAll(ctx)
	if err != nil {
		h.gatewayError(c, "List devices", err)
		return
	}

	h.monitor.Seed(fired)
	if err := h.nav.OpenNotifications(ctx); err != nil {
		h.logger.Errorf("Live alert channel unavailable: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"rules":   rules,
		"alerts":  h.monitor.Feed().Snapshot(),
		"devices": devices,
		"live":    h.monitor.State().String(),
	})
}

func (h *Handler) LeaveNotifications(c *gin.Context) {
	h.monitor.Leave()
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateRule(c *gin.Context) {
	// A rule is active unless the request says otherwise.
	rule := models.NotificationRule{IsActive: true}
	if err := c.ShouldBindJSON(&rule); err != nil {
		h.logger.Errorf("Invalid request body for rule: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := rule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.gw.Notifications.Create(c.Request.Context(), rule)
	if err != nil {
		h.gatewayError(c, "Create rule", err)
		return
	}
	h.logger.Infof("Created rule %s: %s", created.ID, created.Describe())
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	id := c.Param("id")
	var update models.NotificationRuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Errorf("Invalid request body for rule %s: %v", id, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rule, err := h.gw.Notifications.Update(c.Request.Context(), id, update)
	if err != nil {
		h.gatewayError(c, "Update rule "+id, err)
		return
	}
	h.logger.Infof("Updated rule: %s", id)
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id := c.Param("id")
	if err := h.gw.Notifications.Delete(c.Request.Context(), id); err != nil {
		h.gatewayError(c, "Delete rule "+id, err)
		return
	}
	h.logger.Infof("Deleted rule: %s", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) LiveAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts": h.monitor.Feed().Snapshot(),
		"live":   h.monitor.State().String(),
	})
}

func (h *Handler) ArchivedAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	list, total, err := h.archive.ListAlerts(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list archived alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list archived alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total": total})
}
