package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and3rn3t/network-sub004/internal/model"
)

func TestEmitEvents_DeviceNew(t *testing.T) {
	d := dev("aa:01", model.StateOnline)
	now := time.Now()

	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassNew,
		Device:     &d,
	}}, now)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, model.EventDeviceNew, ev.Type)
	assert.Equal(t, model.EntityDevice, ev.EntityType)
	assert.Equal(t, "aa:01", ev.EntityMAC)
	assert.Equal(t, now, ev.Timestamp)
	assert.Contains(t, ev.Description, "discovered")
	assert.Equal(t, "192.168.1.10", ev.Details["ip"])
}

func TestEmitEvents_DeviceMissing(t *testing.T) {
	d := dev("aa:01", model.StateOnline)

	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassMissing,
		Device:     &d,
	}}, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, model.EventDeviceOffline, events[0].Type)
	assert.Equal(t, "absent from snapshot", events[0].Details["reason"])
}

func TestEmitEvents_DeviceStateFlip(t *testing.T) {
	d := dev("aa:01", model.StateOffline)

	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassUpdated,
		Device:     &d,
		Diff: []FieldChange{
			{Field: "state", Old: string(model.StateOnline), New: string(model.StateOffline)},
		},
	}}, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, model.EventDeviceOffline, events[0].Type)
	assert.Equal(t, string(model.StateOnline), events[0].Details["old"])
}

func TestEmitEvents_DeviceCameOnline(t *testing.T) {
	d := dev("aa:01", model.StateOnline)

	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassUpdated,
		Device:     &d,
		Diff: []FieldChange{
			{Field: "state", Old: string(model.StateMissing), New: string(model.StateOnline)},
		},
	}}, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, model.EventDeviceOnline, events[0].Type)
}

func TestEmitEvents_StateChangeWithinSameReachability(t *testing.T) {
	d := dev("aa:01", model.StateUpgrading)

	// online -> upgrading is still reachable: no event.
	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassUpdated,
		Device:     &d,
		Diff: []FieldChange{
			{Field: "state", Old: string(model.StateOnline), New: string(model.StateUpgrading)},
		},
	}}, time.Now())

	assert.Empty(t, events)
}

func TestEmitEvents_FirmwareAndIP(t *testing.T) {
	d := dev("aa:01", model.StateOnline)

	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassUpdated,
		Device:     &d,
		Diff: []FieldChange{
			{Field: "firmware", Old: "7.0.50", New: "7.1.0"},
			{Field: "ip", Old: "192.168.1.10", New: "192.168.1.20"},
		},
	}}, time.Now())

	require.Len(t, events, 2)
	assert.Equal(t, model.EventFirmwareChanged, events[0].Type)
	assert.Contains(t, events[0].Description, "7.0.50 -> 7.1.0")
	assert.Equal(t, model.EventIPChanged, events[1].Type)
}

func TestEmitEvents_Unchanged(t *testing.T) {
	d := dev("aa:01", model.StateOnline)

	events := EmitEvents([]Transition{{
		EntityType: model.EntityDevice,
		MAC:        d.MAC,
		Class:      ClassUnchanged,
		Device:     &d,
	}}, time.Now())

	assert.Empty(t, events)
}

func TestEmitEvents_ClientLifecycle(t *testing.T) {
	now := time.Now()
	newClient := cl("11:01", true)
	gone := cl("11:02", true)
	back := cl("11:03", true)

	events := EmitEvents([]Transition{
		{EntityType: model.EntityClient, MAC: newClient.MAC, Class: ClassNew, Client: &newClient},
		{EntityType: model.EntityClient, MAC: gone.MAC, Class: ClassMissing, Client: &gone},
		{
			EntityType: model.EntityClient, MAC: back.MAC, Class: ClassUpdated, Client: &back,
			Diff: []FieldChange{{Field: "state", Old: "offline", New: "online"}},
		},
	}, now)

	require.Len(t, events, 3)
	assert.Equal(t, model.EventClientNew, events[0].Type)
	assert.Equal(t, model.EventClientDisconnected, events[1].Type)
	assert.Equal(t, model.EventClientConnected, events[2].Type)
}

func TestEmitEvents_ClientNameFallsBackToMAC(t *testing.T) {
	c := cl("11:01", true)
	c.Hostname = ""

	events := EmitEvents([]Transition{{
		EntityType: model.EntityClient,
		MAC:        c.MAC,
		Class:      ClassNew,
		Client:     &c,
	}}, time.Now())

	require.Len(t, events, 1)
	assert.Contains(t, events[0].Description, "11:01")
}
