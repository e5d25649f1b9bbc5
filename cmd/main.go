package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"iotmon/internal/alerts"
	"iotmon/internal/api"
	"iotmon/internal/config"
	"iotmon/internal/db"
	"iotmon/internal/gateway"
	"iotmon/internal/kafka"
	"iotmon/internal/logging"
	"iotmon/internal/mqtt"
	"iotmon/internal/notification"
	"iotmon/internal/providers"
	"iotmon/internal/session"
)

const (
	feedLimit       = 200
	shutdownTimeout = 5 * time.Second
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store
	store, err := session.OpenSQLite(cfg.Session.DBPath)
	if err != nil {
		logger.Errorf("Failed to open session store: %v", err)
		log.Fatalf("Session store failed: %v", err)
	}
	defer store.Close()
	sess := session.New(ctx, store, logger)

	gw, err := gateway.New(cfg.API.BaseURL, sess, logger)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	// Forwarding destinations
	forwarders := map[string]notification.Forwarder{}
	var archive api.Archive

	if cfg.TelegramEnabled() {
		tg, err := providers.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RateLimit, logger)
		if err != nil {
			log.Fatalf("Telegram forwarder failed: %v", err)
		}
		forwarders["telegram"] = tg.Forward
	}
	if cfg.EmailEnabled() {
		em, err := providers.NewEmail(cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password, cfg.Email.Recipients)
		if err != nil {
			log.Fatalf("Email forwarder failed: %v", err)
		}
		forwarders["email"] = em.Forward
	}
	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(kafka.Config{Broker: cfg.Kafka.Broker, Topic: cfg.Kafka.Topic}, logger)
		if err != nil {
			log.Fatalf("Kafka forwarder failed: %v", err)
		}
		defer producer.Close()
		forwarders["kafka"] = producer.Forward
	}
	if cfg.MQTTEnabled() {
		pub, err := mqtt.Connect(mqtt.Config{Broker: cfg.MQTT.Broker, Topic: cfg.MQTT.Topic, ClientID: cfg.MQTT.ClientID}, logger)
		if err != nil {
			logger.Errorf("MQTT connect failed: %v", err)
			log.Fatalf("MQTT forwarder failed: %v", err)
		}
		defer pub.Close()
		forwarders["mqtt"] = pub.Forward
	}
	if cfg.ArchiveEnabled() {
		dbConn, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			log.Fatalf("Database connection failed: %v", err)
		}
		defer dbConn.Close()
		if err := dbConn.EnsureSchema(ctx); err != nil {
			log.Fatalf("Archive schema failed: %v", err)
		}
		forwarders["archive"] = dbConn.Forward
		archive = dbConn
	}

	// Forwarding service
	svc := notification.New(logger, cfg, forwarders)
	var wg sync.WaitGroup
	svc.Start(&wg)
	logger.Infof("Alert forwarding via %v", svc.Forwarders())

	// Live alerts
	hub := api.NewHub(logger)
	sinks := []alerts.Sink{hub}
	if len(forwarders) > 0 {
		sinks = append(sinks, svc)
	}
	monitor := alerts.NewMonitor(cfg.API.AlertsURL, sess, alerts.NewFeed(feedLimit), logger, sinks...)
	nav := api.NewNavigator(monitor, logger)
	gw.OnUnauthenticated(nav.HandleUnauthenticated)

	// Dashboard
	router := api.NewRouter(api.Deps{
		Gateway:   gw,
		Session:   sess,
		Monitor:   monitor,
		Navigator: nav,
		Hub:       hub,
		Archive:   archive,
		Logger:    logger,
	})
	srv := &http.Server{Addr: cfg.Dashboard.Addr, Handler: router}
	go func() {
		logger.Infof("Starting dashboard on %s (API %s)", cfg.Dashboard.Addr, cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Dashboard server failed: %v", err)
			stop()
		}
	}()

	// Handle graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Dashboard shutdown failed: %v", err)
	}
	monitor.Leave()
	hub.Close()
	svc.Stop()
	wg.Wait()
	logger.Info("Service stopped")
}
