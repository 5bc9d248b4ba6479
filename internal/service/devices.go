package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/alertlog"
	"github.com/aiguardian/guardian/internal/models"
	"github.com/aiguardian/guardian/internal/registry"
)

// Notifier delivers alert notifications outside the process.
type Notifier interface {
	Notify(ctx context.Context, entry models.AlertLogEntry) error
}

// Metrics receives counters about authentication and alerts.
type Metrics interface {
	ObserveAuth(result models.AuthResult, confidence int)
	ObserveAlert(kind models.AlertKind)
	SetLockedDevices(locked, total int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAuth(models.AuthResult, int) {}
func (nopMetrics) ObserveAlert(models.AlertKind)      {}
func (nopMetrics) SetLockedDevices(int, int)          {}

// DeviceController mutates device lock state and records the resulting alerts.
type DeviceController struct {
	devices  *registry.Registry
	alerts   *alertlog.Log
	notifier Notifier
	metrics  Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewDeviceController wires a controller. notifier and metrics may be nil.
func NewDeviceController(devices *registry.Registry, alerts *alertlog.Log, notifier Notifier, metrics Metrics, log *zap.Logger) *DeviceController {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	c := &DeviceController{
		devices:  devices,
		alerts:   alerts,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
	c.refreshLockGauge()
	return c
}

// Devices returns all devices in registry order.
func (c *DeviceController) Devices() []models.Device {
	return c.devices.List()
}

// Device returns a single device.
func (c *DeviceController) Device(id string) (models.Device, error) {
	d, ok := c.devices.Get(id)
	if !ok {
		return models.Device{}, ErrDeviceNotFound
	}
	return d, nil
}

// Status summarises the lock state of all devices.
func (c *DeviceController) Status() models.SecurityStatus {
	return models.ComputeSecurityStatus(c.devices.List())
}

// Alerts returns the alert log, newest first.
func (c *DeviceController) Alerts() []models.AlertLogEntry {
	return c.alerts.List()
}

// ToggleLock sets the lock state of a device. The online check belongs to
// the caller. An unknown id leaves everything untouched and returns
// ErrDeviceNotFound.
func (c *DeviceController) ToggleLock(_ context.Context, id string, shouldLock bool) (models.Device, error) {
	d, ok := c.devices.Update(id, func(d *models.Device) {
		d.Locked = shouldLock
		d.LastActivity = c.now()
	})
	if !ok {
		c.log.Debug("toggle on unknown device", zap.String("device_id", id))
		return models.Device{}, ErrDeviceNotFound
	}
	c.refreshLockGauge()
	c.log.Info("device lock toggled", zap.String("device_id", id), zap.Bool("locked", shouldLock))
	return d, nil
}

// UnlockAfterAuth unlocks a device after a successful authentication and
// logs a success alert.
func (c *DeviceController) UnlockAfterAuth(ctx context.Context, id string) (models.Device, error) {
	d, ok := c.devices.Update(id, func(d *models.Device) {
		d.Locked = false
		d.LastActivity = c.now()
	})
	if !ok {
		return models.Device{}, ErrDeviceNotFound
	}
	c.refreshLockGauge()
	c.RecordAlert(ctx, d.Name, models.AlertSuccess,
		fmt.Sprintf("%s unlocked after successful biometric authentication", d.Name))
	return d, nil
}

// RecordAuthFailure logs a failure alert for a device and notifies. The
// device itself is left unchanged.
func (c *DeviceController) RecordAuthFailure(ctx context.Context, id string) error {
	d, ok := c.devices.Get(id)
	if !ok {
		return ErrDeviceNotFound
	}
	c.RecordAlert(ctx, d.Name, models.AlertFailure,
		fmt.Sprintf("Unauthorized access attempt detected on %s: biometric authentication failed, device remains locked", d.Name))
	return nil
}

// RecordAlert appends an alert and, for anything but a success, notifies.
// Notification errors are logged and dropped.
func (c *DeviceController) RecordAlert(ctx context.Context, deviceName string, kind models.AlertKind, description string) models.AlertLogEntry {
	entry := models.AlertLogEntry{
		ID:          uuid.NewString(),
		DeviceName:  deviceName,
		Timestamp:   c.now(),
		Kind:        kind,
		Description: description,
	}
	c.alerts.Append(entry)
	c.metrics.ObserveAlert(kind)
	c.log.Info("alert recorded",
		zap.String("device", deviceName),
		zap.String("kind", string(kind)),
	)

	if kind != models.AlertSuccess && c.notifier != nil {
		if err := c.notifier.Notify(ctx, entry); err != nil {
			c.log.Warn("alert notification failed", zap.Error(err))
		}
	}
	return entry
}

func (c *DeviceController) refreshLockGauge() {
	st := c.Status()
	c.metrics.SetLockedDevices(st.Locked, st.Total)
}
