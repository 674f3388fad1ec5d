// Package cache holds the latest polled state in memory for the HTTP API.
package cache

import (
	"maps"
	"sync"
	"time"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// Cache is a thread-safe in-memory store of the most recent snapshot per
// controller.
type Cache struct {
	mu sync.RWMutex

	Devices  map[string]map[string]*model.DeviceRecord
	Clients  map[string]map[string]*model.ClientRecord
	LastRun  map[string]model.CollectionRun
	LastPoll map[string]time.Time
}

// Snapshot is a read-only deep copy of the cache state.
type Snapshot struct {
	Devices  map[string]map[string]*model.DeviceRecord
	Clients  map[string]map[string]*model.ClientRecord
	LastRun  map[string]model.CollectionRun
	LastPoll map[string]time.Time
}

// New returns an initialized Cache.
func New() *Cache {
	return &Cache{
		Devices:  make(map[string]map[string]*model.DeviceRecord),
		Clients:  make(map[string]map[string]*model.ClientRecord),
		LastRun:  make(map[string]model.CollectionRun),
		LastPoll: make(map[string]time.Time),
	}
}

// Snapshot returns a deep copy of the cache contents.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Devices:  make(map[string]map[string]*model.DeviceRecord, len(c.Devices)),
		Clients:  make(map[string]map[string]*model.ClientRecord, len(c.Clients)),
		LastRun:  make(map[string]model.CollectionRun, len(c.LastRun)),
		LastPoll: make(map[string]time.Time, len(c.LastPoll)),
	}

	for ctrl, devices := range c.Devices {
		m := make(map[string]*model.DeviceRecord, len(devices))
		for k, v := range devices {
			cp := *v
			m[k] = &cp
		}
		snap.Devices[ctrl] = m
	}

	for ctrl, clients := range c.Clients {
		m := make(map[string]*model.ClientRecord, len(clients))
		for k, v := range clients {
			cp := *v
			m[k] = &cp
		}
		snap.Clients[ctrl] = m
	}

	maps.Copy(snap.LastRun, c.LastRun)
	maps.Copy(snap.LastPoll, c.LastPoll)

	return snap
}

// UpdateDevices replaces all devices for the given controller.
func (c *Cache) UpdateDevices(controller string, devices map[string]*model.DeviceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Devices[controller] = devices
}

// UpdateClients replaces all clients for the given controller.
func (c *Cache) UpdateClients(controller string, clients map[string]*model.ClientRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Clients[controller] = clients
}

// SetLastRun records the most recent collection run for a controller.
func (c *Cache) SetLastRun(controller string, run model.CollectionRun) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastRun[controller] = run
}

// SetLastPoll records the last poll time for a collector.
func (c *Cache) SetLastPoll(collectorID string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastPoll[collectorID] = t
}
