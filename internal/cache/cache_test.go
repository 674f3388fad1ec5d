package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and3rn3t/network-sub004/internal/model"
)

func TestUpdateDevicesAndSnapshot(t *testing.T) {
	c := New()

	c.UpdateDevices("home", map[string]*model.DeviceRecord{
		"aa:01": {MAC: "aa:01", Controller: "home", Name: "switch", State: model.StateOnline},
	})

	snap := c.Snapshot()
	require.Contains(t, snap.Devices, "home")
	require.Contains(t, snap.Devices["home"], "aa:01")
	assert.Equal(t, "switch", snap.Devices["home"]["aa:01"].Name)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	c := New()
	c.UpdateDevices("home", map[string]*model.DeviceRecord{
		"aa:01": {MAC: "aa:01", Name: "switch"},
	})
	c.UpdateClients("home", map[string]*model.ClientRecord{
		"11:01": {MAC: "11:01", Hostname: "laptop"},
	})

	snap := c.Snapshot()
	snap.Devices["home"]["aa:01"].Name = "mutated"
	snap.Clients["home"]["11:01"].Hostname = "mutated"

	fresh := c.Snapshot()
	assert.Equal(t, "switch", fresh.Devices["home"]["aa:01"].Name)
	assert.Equal(t, "laptop", fresh.Clients["home"]["11:01"].Hostname)
}

func TestUpdateDevices_ReplacesPerController(t *testing.T) {
	c := New()
	c.UpdateDevices("home", map[string]*model.DeviceRecord{
		"aa:01": {MAC: "aa:01"},
		"aa:02": {MAC: "aa:02"},
	})
	c.UpdateDevices("home", map[string]*model.DeviceRecord{
		"aa:03": {MAC: "aa:03"},
	})
	c.UpdateDevices("office", map[string]*model.DeviceRecord{
		"bb:01": {MAC: "bb:01"},
	})

	snap := c.Snapshot()
	assert.Len(t, snap.Devices["home"], 1)
	assert.Contains(t, snap.Devices["home"], "aa:03")
	assert.Len(t, snap.Devices["office"], 1)
}

func TestSetLastRunAndPoll(t *testing.T) {
	c := New()
	now := time.Now()

	c.SetLastRun("home", model.CollectionRun{ID: "run-1", Status: model.RunSuccess})
	c.SetLastPoll("unifi:home", now)

	snap := c.Snapshot()
	assert.Equal(t, "run-1", snap.LastRun["home"].ID)
	assert.Equal(t, now, snap.LastPoll["unifi:home"])
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.UpdateDevices("home", map[string]*model.DeviceRecord{
				"aa:01": {MAC: "aa:01", UptimeSecs: int64(n)},
			})
			c.SetLastPoll("unifi:home", time.Now())
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Contains(t, snap.Devices, "home")
}
