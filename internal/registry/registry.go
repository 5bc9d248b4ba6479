// Package registry holds the in-memory list of dashboard devices.
package registry

import (
	"sync"
	"time"

	"github.com/aiguardian/guardian/internal/models"
)

// Registry is an in-memory device list. Devices are kept in insertion order.
type Registry struct {
	mu      sync.Mutex
	devices []models.Device
}

// New creates a Registry holding copies of the given devices.
func New(devices ...models.Device) *Registry {
	r := &Registry{devices: make([]models.Device, 0, len(devices))}
	for _, d := range devices {
		r.devices = append(r.devices, clone(d))
	}
	return r
}

// DefaultDevices returns the three demo devices, all locked and online.
func DefaultDevices(now time.Time) []models.Device {
	laptop, door := 85, 62
	return []models.Device{
		{ID: "1", Name: "MacBook Pro", Type: models.Laptop, Locked: true, Online: true, Battery: &laptop, LastActivity: now},
		{ID: "2", Name: "Front Door", Type: models.Door, Locked: true, Online: true, Battery: &door, LastActivity: now},
		{ID: "3", Name: "Garage Door", Type: models.Garage, Locked: true, Online: true, LastActivity: now},
	}
}

// List returns copies of all devices.
func (r *Registry) List() []models.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Device, len(r.devices))
	for i, d := range r.devices {
		out[i] = clone(d)
	}
	return out
}

// Get looks a device up by id.
func (r *Registry) Get(id string) (models.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.ID == id {
			return clone(d), true
		}
	}
	return models.Device{}, false
}

// Update applies fn to the device with the given id under the registry lock
// and returns the updated copy. It reports false and leaves the registry
// untouched when no such device exists.
func (r *Registry) Update(id string, fn func(d *models.Device)) (models.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.devices {
		if r.devices[i].ID == id {
			fn(&r.devices[i])
			return clone(r.devices[i]), true
		}
	}
	return models.Device{}, false
}

// Each calls fn for every device under the registry lock, in order.
func (r *Registry) Each(fn func(d *models.Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.devices {
		fn(&r.devices[i])
	}
}

func clone(d models.Device) models.Device {
	if d.Battery != nil {
		b := *d.Battery
		d.Battery = &b
	}
	return d
}
