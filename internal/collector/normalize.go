package collector

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// MalformedSnapshotError reports a payload that could not be parsed at all.
// Individual records missing their MAC are dropped and counted instead.
type MalformedSnapshotError struct {
	Entity model.EntityType
	Err    error
}

func (e *MalformedSnapshotError) Error() string {
	return fmt.Sprintf("malformed %s snapshot: %s", e.Entity, e.Err)
}

func (e *MalformedSnapshotError) Unwrap() error { return e.Err }

// rawDevice mirrors the fields of a UniFi stat/device entry that unipoll
// consumes. Everything else in the payload is ignored.
type rawDevice struct {
	ID       string `json:"_id"`
	MAC      string `json:"mac"`
	Name     string `json:"name"`
	Model    string `json:"model"`
	Type     string `json:"type"`
	IP       string `json:"ip"`
	Version  string `json:"version"`
	State    int    `json:"state"`
	Uptime   int64  `json:"uptime"`
	SysStats struct {
		CPU string `json:"cpu"` // reported as strings, e.g. "12.3"
		Mem string `json:"mem"`
	} `json:"system-stats"`
	Temperature *float64 `json:"general_temperature"`
}

// rawClient mirrors the fields of a UniFi stat/sta entry.
type rawClient struct {
	MAC      string `json:"mac"`
	Hostname string `json:"hostname"`
	Name     string `json:"name"` // user-assigned alias, fallback for hostname
	IP       string `json:"ip"`
	APMAC    string `json:"ap_mac"` // wireless uplink
	SwMAC    string `json:"sw_mac"` // wired uplink
	Signal   *int   `json:"signal"`
	RxBytes  int64  `json:"rx_bytes"`
	TxBytes  int64  `json:"tx_bytes"`
}

// deviceState maps the controller's numeric state codes to the normalized
// enumeration. Unrecognized codes map to unknown rather than failing.
func deviceState(code int) model.DeviceState {
	switch code {
	case 0:
		return model.StateOffline
	case 1:
		return model.StateOnline
	case 2:
		return model.StateAdopting
	case 4:
		return model.StateUpgrading
	case 5:
		return model.StateProvisioning
	case 6:
		return model.StateHeartbeat
	default:
		return model.StateUnknown
	}
}

// NormalizeDevices converts a raw device payload into canonical records.
// Records without a MAC are dropped and counted in the second return value.
func NormalizeDevices(controller string, data json.RawMessage, now time.Time) ([]model.DeviceRecord, int, error) {
	var raw []rawDevice
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, &MalformedSnapshotError{Entity: model.EntityDevice, Err: err}
	}

	devices := make([]model.DeviceRecord, 0, len(raw))
	dropped := 0
	for _, rd := range raw {
		if rd.MAC == "" {
			dropped++
			continue
		}
		name := rd.Name
		if name == "" {
			name = rd.MAC
		}
		dev := model.DeviceRecord{
			MAC:          rd.MAC,
			ControllerID: rd.ID,
			Controller:   controller,
			Name:         name,
			Model:        rd.Model,
			Type:         rd.Type,
			IP:           rd.IP,
			Firmware:     rd.Version,
			State:        deviceState(rd.State),
			UptimeSecs:   rd.Uptime,
			Temperature:  rd.Temperature,
			LastSeen:     now,
		}
		if v, ok := parsePct(rd.SysStats.CPU); ok {
			dev.CPUPct = &v
		}
		if v, ok := parsePct(rd.SysStats.Mem); ok {
			dev.MemPct = &v
		}
		devices = append(devices, dev)
	}
	return devices, dropped, nil
}

// NormalizeClients converts a raw active-client payload into canonical
// records. Every client present in the snapshot is online by definition.
func NormalizeClients(controller string, data json.RawMessage, now time.Time) ([]model.ClientRecord, int, error) {
	var raw []rawClient
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, &MalformedSnapshotError{Entity: model.EntityClient, Err: err}
	}

	clients := make([]model.ClientRecord, 0, len(raw))
	dropped := 0
	for _, rc := range raw {
		if rc.MAC == "" {
			dropped++
			continue
		}
		hostname := rc.Hostname
		if hostname == "" {
			hostname = rc.Name
		}
		uplink := rc.APMAC
		if uplink == "" {
			uplink = rc.SwMAC
		}
		clients = append(clients, model.ClientRecord{
			MAC:        rc.MAC,
			Controller: controller,
			Hostname:   hostname,
			IP:         rc.IP,
			DeviceMAC:  uplink,
			SignalDBM:  rc.Signal,
			RxBytes:    rc.RxBytes,
			TxBytes:    rc.TxBytes,
			IsOnline:   true,
			LastSeen:   now,
		})
	}
	return clients, dropped, nil
}

// parsePct parses the string-typed percentage values from system-stats.
func parsePct(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
