package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AlertsPath is the live alert endpoint under the notification namespace.
const AlertsPath = "/api/notifications/ws"

// Config holds application configuration loaded from environment.
type Config struct {
	API struct {
		BaseURL   string
		AlertsURL string
	}
	Session struct {
		DBPath string
	}
	Dashboard struct {
		Addr string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Notification struct {
		QueueSize  int
		MaxWorkers int
	}
	Telegram struct {
		BotToken  string
		ChatID    int64
		RateLimit int
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		Recipients []string
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	MQTT struct {
		Broker   string
		Topic    string
		ClientID string
	}
	DB struct {
		DSN string
	}
	Simulator Simulator
}

// Simulator configures cmd/simulator.
type Simulator struct {
	DeviceSN     string
	Interval     time.Duration
	BaseCPU      float64
	BaseRAM      float64
	BaseTemp     float64
	BaseDiskFree float64
	MultiDevice  bool
}

// TelegramEnabled reports whether alerts are forwarded to Telegram.
func (c Config) TelegramEnabled() bool { return c.Telegram.BotToken != "" }

// EmailEnabled reports whether alerts are forwarded by e-mail.
func (c Config) EmailEnabled() bool {
	return c.Email.SMTPServer != "" && len(c.Email.Recipients) > 0
}

func (c Config) KafkaEnabled() bool   { return c.Kafka.Broker != "" }
func (c Config) MQTTEnabled() bool    { return c.MQTT.Broker != "" }
func (c Config) ArchiveEnabled() bool { return c.DB.DSN != "" }

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	var errs []string
	intVar := func(name string, def int) int {
		v := os.Getenv(name)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not an integer", name, v))
			return def
		}
		return n
	}
	floatVar := func(name string, def float64) float64 {
		v := os.Getenv(name)
		if v == "" {
			return def
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not a number", name, v))
			return def
		}
		return f
	}

	// API settings
	cfg.API.BaseURL = strings.TrimSuffix(envOr("API_URL", "http://localhost:8000"), "/")
	cfg.API.AlertsURL = os.Getenv("ALERTS_WS_URL")

	cfg.Session.DBPath = envOr("SESSION_DB_PATH", "iotmon.db")
	cfg.Dashboard.Addr = envOr("DASHBOARD_ADDR", "127.0.0.1:3000")

	cfg.Logging.Dir = envOr("LOG_DIR", "logs")
	cfg.Logging.Level = envOr("LOG_LEVEL", "info")

	// Forwarding worker settings
	cfg.Notification.QueueSize = intVar("QUEUE_SIZE", 500)
	cfg.Notification.MaxWorkers = intVar("MAX_WORKERS", 4)

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("TELEGRAM_CHAT_ID=%q is not an integer", v))
		}
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.RateLimit = intVar("TELEGRAM_RATE_LIMIT", 1)

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	cfg.Email.SMTPPort = intVar("EMAIL_SMTP_PORT", 587)
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.Recipients = splitList(os.Getenv("EMAIL_RECIPIENTS"))

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = envOr("KAFKA_TOPIC", "iot_alerts")

	cfg.MQTT.Broker = os.Getenv("MQTT_BROKER")
	cfg.MQTT.Topic = envOr("MQTT_TOPIC", "iotmon/alerts")
	cfg.MQTT.ClientID = envOr("MQTT_CLIENT_ID", "iotmon-console")

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Simulator settings
	cfg.Simulator.DeviceSN = envOr("SIM_DEVICE_SN", "TEST12345678")
	cfg.Simulator.Interval = time.Duration(intVar("SIM_INTERVAL", 60)) * time.Second
	cfg.Simulator.BaseCPU = floatVar("SIM_BASE_CPU", 30)
	cfg.Simulator.BaseRAM = floatVar("SIM_BASE_RAM", 40)
	cfg.Simulator.BaseTemp = floatVar("SIM_BASE_TEMP", 45)
	cfg.Simulator.BaseDiskFree = floatVar("SIM_BASE_DISK_FREE", 75)
	cfg.Simulator.MultiDevice = strings.EqualFold(os.Getenv("SIM_MULTI_DEVICE"), "true")

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %v", errs)
	}

	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return Config{}, fmt.Errorf("API_URL must be an absolute http(s) URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.AlertsURL == "" {
		cfg.API.AlertsURL = AlertsURLFor(base)
	}

	// Validate required settings
	missing := []string{}
	if cfg.TelegramEnabled() && cfg.Telegram.ChatID == 0 {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if cfg.Email.SMTPServer != "" && len(cfg.Email.Recipients) == 0 {
		missing = append(missing, "EMAIL_RECIPIENTS")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply floors
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 500
	}
	if cfg.Notification.MaxWorkers <= 0 {
		cfg.Notification.MaxWorkers = 4
	}
	if cfg.Telegram.RateLimit <= 0 {
		cfg.Telegram.RateLimit = 1
	}
	if cfg.Simulator.Interval <= 0 {
		cfg.Simulator.Interval = 60 * time.Second
	}

	return cfg, nil
}

// AlertsURLFor derives the websocket alert endpoint from the API base URL.
func AlertsURLFor(base *url.URL) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + AlertsPath
	u.RawQuery = ""
	return u.String()
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
