package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"iotmon/internal/config"
	"iotmon/internal/gateway"
	"iotmon/internal/logging"
	"iotmon/internal/session"
	"iotmon/internal/simulator"
)

const stagger = time.Second

func main() {
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

	// Heartbeats are device-originated and carry no session credential.
	gw, err := gateway.New(cfg.API.BaseURL, session.New(ctx, nil, logger), logger)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	profiles := []simulator.Profile{{
		DeviceSN:     cfg.Simulator.DeviceSN,
		BaseCPU:      cfg.Simulator.BaseCPU,
		BaseRAM:      cfg.Simulator.BaseRAM,
		BaseTemp:     cfg.Simulator.BaseTemp,
		BaseDiskFree: cfg.Simulator.BaseDiskFree,
	}}
	if cfg.Simulator.MultiDevice {
		profiles = simulator.Presets
	}

	logger.Infof("Simulating %d device(s) against %s", len(profiles), cfg.API.BaseURL)
	var wg sync.WaitGroup
	for i, p := range profiles {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(stagger):
			}
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(p simulator.Profile) {
			defer wg.Done()
			simulator.Run(ctx, simulator.NewGenerator(p, nil), gw.Heartbeat, cfg.Simulator.Interval, logger)
		}(p)
		if p.Name != "" {
			logger.Infof("Started simulator for %s (%s)", p.Name, p.Location)
		}
	}

	wg.Wait()
	logger.Info("All simulators stopped")
}
