// Package jobs contains background jobs of the guardian server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/models"
	"github.com/aiguardian/guardian/internal/registry"
)

const (
	// LowBatteryThreshold is the charge at or below which a battery_low alert fires.
	LowBatteryThreshold = 20
	// OfflineChance is the per-tick probability that an online device drops out.
	OfflineChance = 0.05
	// ReconnectChance is the per-tick probability that an offline device returns.
	ReconnectChance = 0.5
)

// Rand is the randomness used by the simulator.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// AlertRecorder appends alerts to the alert log.
type AlertRecorder interface {
	RecordAlert(ctx context.Context, deviceName string, kind models.AlertKind, description string) models.AlertLogEntry
}

type pendingAlert struct {
	device      string
	kind        models.AlertKind
	description string
}

// SimulateStatus runs one round of device status changes: batteries drain by
// 0-2%, online devices may drop out and offline ones may come back. Going
// offline and crossing the low battery threshold each produce one alert.
func SimulateStatus(ctx context.Context, reg *registry.Registry, alerts AlertRecorder, rnd Rand, now time.Time) int {
	var pending []pendingAlert

	reg.Each(func(d *models.Device) {
		if d.Battery != nil {
			before := *d.Battery
			after := max(before-rnd.Intn(3), 0)
			*d.Battery = after
			if before > LowBatteryThreshold && after <= LowBatteryThreshold {
				pending = append(pending, pendingAlert{
					device:      d.Name,
					kind:        models.AlertBatteryLow,
					description: fmt.Sprintf("%s battery low (%d%%)", d.Name, after),
				})
			}
		}

		switch {
		case d.Online && rnd.Float64() < OfflineChance:
			d.Online = false
			d.LastActivity = now
			pending = append(pending, pendingAlert{
				device:      d.Name,
				kind:        models.AlertOffline,
				description: fmt.Sprintf("%s went offline", d.Name),
			})
		case !d.Online && rnd.Float64() < ReconnectChance:
			d.Online = true
			d.LastActivity = now
		}
	})

	for _, p := range pending {
		alerts.RecordAlert(ctx, p.device, p.kind, p.description)
	}
	return len(pending)
}

// StartStatusSimulator refreshes device status every interval until ctx is
// cancelled. The returned channel is closed once the job has stopped.
func StartStatusSimulator(
	ctx context.Context,
	reg *registry.Registry,
	alerts AlertRecorder,
	rnd Rand,
	interval time.Duration,
	log *zap.Logger,
) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := SimulateStatus(ctx, reg, alerts, rnd, now); n > 0 {
					log.Info("device status changed", zap.Int("alerts", n))
				}
			}
		}
	}()
	return done
}
