package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("ALERTS_WS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:8000/api/notifications/ws", cfg.API.AlertsURL)
	assert.Equal(t, "iotmon.db", cfg.Session.DBPath)
	assert.Equal(t, 500, cfg.Notification.QueueSize)
	assert.Equal(t, 60*time.Second, cfg.Simulator.Interval)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoad_HTTPSDerivesWSS(t *testing.T) {
	t.Setenv("API_URL", "https://iot.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://iot.example.com", cfg.API.BaseURL)
	assert.Equal(t, "wss://iot.example.com/api/notifications/ws", cfg.API.AlertsURL)
}

func TestLoad_ExplicitAlertsURL(t *testing.T) {
	t.Setenv("ALERTS_WS_URL", "ws://push.local/alerts")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ws://push.local/alerts", cfg.API.AlertsURL)
}

func TestLoad_RejectsRelativeURL(t *testing.T) {
	t.Setenv("API_URL", "localhost:8000")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("QUEUE_SIZE", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUEUE_SIZE")
}

func TestLoad_TelegramRequiresChatID(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
}

func TestLoad_EmailRecipients(t *testing.T) {
	t.Setenv("EMAIL_SMTP_SERVER", "smtp.example.com")
	t.Setenv("EMAIL_RECIPIENTS", "ops@example.com, ,oncall@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EmailEnabled())
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, cfg.Email.Recipients)
}

func TestAlertsURLFor_KeepsBasePath(t *testing.T) {
	base, err := url.Parse("http://gateway.local/iot?x=1")
	require.NoError(t, err)
	assert.Equal(t, "ws://gateway.local/iot/api/notifications/ws", AlertsURLFor(base))
}
