package simulator

import (
	"context"
	"time"

	"iotmon/internal/logging"
	"iotmon/internal/models"
)

// Sender delivers one heartbeat; gateway.HeartbeatAPI satisfies it.
type Sender interface {
	Send(ctx context.Context, hb models.Heartbeat) (models.Heartbeat, error)
}

// Run sends a heartbeat immediately and then every interval until ctx is
// done. Failed sends are logged and the loop carries on.
func Run(ctx context.Context, gen *Generator, sender Sender, interval time.Duration, logger *logging.Logger) {
	log := logger.WithField("device_sn", gen.profile.DeviceSN)
	log.Infof("Starting heartbeat simulator (interval %v, boot time %s)", interval, gen.BootTime().Format(time.RFC3339))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		hb := gen.Next()
		if _, err := sender.Send(ctx, hb); err != nil {
			log.Errorf("Failed to send heartbeat: %v", err)
		} else {
			log.Infof("Heartbeat sent - CPU: %.2f%%, RAM: %.2f%%, Temp: %.2f°C, Connectivity: %d",
				hb.CPUUsage, hb.RAMUsage, hb.Temperature, hb.Connectivity)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			log.Info("Simulator stopped")
			return
		}
	}
}
