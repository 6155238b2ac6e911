package gateway

import (
	"sort"
	"sync"
	"sync/atomic"

	"semp-gateway/internal/model"
)

// Info describes the gateway itself.
type Info struct {
	Name     string
	UID      string
	Address  string
	Port     int
	SSDPPort int
}

// Gateway is the in-memory registry of devices keyed by device id.
// All methods are safe for concurrent use.
type Gateway struct {
	info Info

	mu      sync.RWMutex
	devices map[string]*model.Device

	revision atomic.Uint64
}

// New creates an empty gateway.
func New(info Info) *Gateway {
	return &Gateway{
		info:    info,
		devices: make(map[string]*model.Device),
	}
}

// Info returns the gateway's identification.
func (g *Gateway) Info() Info {
	return g.info
}

// Revision returns a counter that changes whenever a device is set or
// removed, or a held device's planning requests change.
func (g *Gateway) Revision() uint64 {
	return g.revision.Load()
}

func (g *Gateway) bump() {
	g.revision.Add(1)
}

// SetDevice inserts device under id, replacing any device already there.
// It reports whether a previous device was replaced.
func (g *Gateway) SetDevice(id string, device *model.Device) bool {
	device.SetChangeHook(g.bump)

	g.mu.Lock()
	_, replaced := g.devices[id]
	g.devices[id] = device
	g.mu.Unlock()

	g.bump()
	return replaced
}

// GetDevice returns the device registered under id.
func (g *Gateway) GetDevice(id string) (*model.Device, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	d, ok := g.devices[id]
	return d, ok
}

// GetAllDevices returns a snapshot of all devices ordered by id.
func (g *Gateway) GetAllDevices() []*model.Device {
	g.mu.RLock()
	ids := make([]string, 0, len(g.devices))
	for id := range g.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	devices := make([]*model.Device, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, g.devices[id])
	}
	g.mu.RUnlock()

	return devices
}

// Count returns the number of registered devices.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.devices)
}

// DeleteDevice removes the device under id and reports whether one was present.
func (g *Gateway) DeleteDevice(id string) bool {
	g.mu.Lock()
	_, ok := g.devices[id]
	if ok {
		delete(g.devices, id)
	}
	g.mu.Unlock()

	if ok {
		g.bump()
	}
	return ok
}

// DeleteAllDevices empties the registry.
func (g *Gateway) DeleteAllDevices() {
	g.mu.Lock()
	g.devices = make(map[string]*model.Device)
	g.mu.Unlock()

	g.bump()
}
