package reconciler

import (
	"sync"

	client "github.com/caarlos0/homekit-lupusec"
	"golang.org/x/exp/slices"
)

// Registry holds the last reconciled device list.
//
// Only the Reconciler writes to it, the whole list is replaced on every
// write.
type Registry struct {
	lock    sync.RWMutex
	devices []client.Device
	dupes   map[string]bool
}

// Devices returns a copy of the current list, sorted by area and zone.
func (r *Registry) Devices() []client.Device {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return slices.Clone(r.devices)
}

// Device looks a device up by name. Names are not guaranteed to be unique
// by the panel: with duplicates, the one in the lowest area/zone wins.
func (r *Registry) Device(name string) (client.Device, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	idx := slices.IndexFunc(r.devices, func(d client.Device) bool {
		return d.Name == name
	})
	if idx < 0 {
		return client.Device{}, false
	}
	return r.devices[idx], true
}

// DeviceAt looks a device up by its area and zone.
func (r *Registry) DeviceAt(key client.Key) (client.Device, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	idx := slices.IndexFunc(r.devices, func(d client.Device) bool {
		return d.Key() == key
	})
	if idx < 0 {
		return client.Device{}, false
	}
	return r.devices[idx], true
}

func (r *Registry) replace(devices []client.Device) {
	devices = slices.Clone(devices)
	slices.SortFunc(devices, func(a, b client.Device) int {
		if a.Area != b.Area {
			return a.Area - b.Area
		}
		return a.Zone - b.Zone
	})
	dupes := map[string]bool{}
	for name, keys := range duplicateNames(devices) {
		dupes[name] = true
		if !r.dupes[name] {
			log.Warn("device name is not unique, lookups by name are ambiguous", "name", name, "zones", keys)
		}
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.devices = devices
	r.dupes = dupes
}

func duplicateNames(devices []client.Device) map[string][]string {
	seen := map[string][]string{}
	for _, d := range devices {
		seen[d.Name] = append(seen[d.Name], d.Key().String())
	}
	for name, keys := range seen {
		if len(keys) < 2 {
			delete(seen, name)
		}
	}
	return seen
}
