// Package model defines all shared domain types for unipoll.
package model

import "time"

// EntityType distinguishes infrastructure devices from connected clients.
type EntityType string

const (
	EntityDevice EntityType = "device"
	EntityClient EntityType = "client"
)

// DeviceState is the normalized lifecycle state of a UniFi device.
type DeviceState string

const (
	StateOnline       DeviceState = "online"
	StateOffline      DeviceState = "offline"
	StateAdopting     DeviceState = "adopting"
	StateUpgrading    DeviceState = "upgrading"
	StateProvisioning DeviceState = "provisioning"
	StateHeartbeat    DeviceState = "heartbeat_missed"
	StateMissing      DeviceState = "missing"
	StateUnknown      DeviceState = "unknown"
)

// DeviceRecord is one physical network device (AP, switch, gateway).
// MAC is the durable join key across polls; ControllerID is a fast-path
// hint that may change or be absent.
type DeviceRecord struct {
	MAC          string      `json:"mac"`
	ControllerID string      `json:"controller_id,omitempty"`
	Controller   string      `json:"controller"`
	Name         string      `json:"name"`
	Model        string      `json:"model"`
	Type         string      `json:"type"` // "uap", "usw", "ugw", ...
	IP           string      `json:"ip"`
	Firmware     string      `json:"firmware"`
	State        DeviceState `json:"state"`
	UptimeSecs   int64       `json:"uptime_secs"`
	CPUPct       *float64    `json:"cpu_pct,omitempty"`
	MemPct       *float64    `json:"mem_pct,omitempty"`
	Temperature  *float64    `json:"temperature,omitempty"`
	FirstSeen    time.Time   `json:"first_seen"`
	LastSeen     time.Time   `json:"last_seen"`
}

// Online reports whether the device is reachable from the controller's
// point of view.
func (d DeviceRecord) Online() bool {
	switch d.State {
	case StateOnline, StateUpgrading, StateProvisioning:
		return true
	}
	return false
}

// ClientRecord is one connected client. Clients have no persistent
// controller ID; MAC is the only stable key.
type ClientRecord struct {
	MAC        string    `json:"mac"`
	Controller string    `json:"controller"`
	Hostname   string    `json:"hostname"`
	IP         string    `json:"ip"`
	DeviceMAC  string    `json:"device_mac"` // uplink AP/switch
	SignalDBM  *int      `json:"signal_dbm,omitempty"`
	RxBytes    int64     `json:"rx_bytes"`
	TxBytes    int64     `json:"tx_bytes"`
	IsOnline   bool      `json:"is_online"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// EventType enumerates the detected state transitions.
type EventType string

const (
	EventDeviceNew          EventType = "device_new"
	EventDeviceOnline       EventType = "device_online"
	EventDeviceOffline      EventType = "device_offline"
	EventClientNew          EventType = "client_new"
	EventClientConnected    EventType = "client_connected"
	EventClientDisconnected EventType = "client_disconnected"
	EventFirmwareChanged    EventType = "firmware_changed"
	EventIPChanged          EventType = "ip_changed"
)

// Event is an immutable record of one detected state transition.
type Event struct {
	ID          int64             `json:"id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	EntityType  EntityType        `json:"entity_type"`
	EntityMAC   string            `json:"entity_mac"`
	Type        EventType         `json:"event_type"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
}

// MetricName enumerates the recorded time-series observations.
type MetricName string

const (
	MetricCPUUsage    MetricName = "cpu_usage"
	MetricMemoryUsage MetricName = "memory_usage"
	MetricTemperature MetricName = "temperature"
	MetricUptime      MetricName = "uptime"
	MetricClientCount MetricName = "client_count"
	MetricRxBytes     MetricName = "rx_bytes"
	MetricTxBytes     MetricName = "tx_bytes"
	MetricSignal      MetricName = "signal"
)

// Metric is one timestamped numeric observation for an entity.
type Metric struct {
	Timestamp time.Time  `json:"timestamp"`
	EntityMAC string     `json:"entity_mac"`
	Name      MetricName `json:"metric"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
}

// RunStatus is the terminal outcome of one collection cycle.
type RunStatus string

const (
	RunSuccess        RunStatus = "success"
	RunPartialFailure RunStatus = "partial_failure"
	RunFailure        RunStatus = "failure"
)

// CollectionRun is the metadata of one poll cycle. A row is written for
// every cycle, including failed ones.
type CollectionRun struct {
	ID               string    `json:"id"`
	Controller       string    `json:"controller"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	DevicesProcessed int       `json:"devices_processed"`
	ClientsProcessed int       `json:"clients_processed"`
	RecordsDropped   int       `json:"records_dropped"`
	EventsCreated    int       `json:"events_created"`
	MetricsCreated   int       `json:"metrics_created"`
	Status           RunStatus `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// MetricPoint is a single data point for time-series rendering.
type MetricPoint struct {
	Timestamp int64   `json:"ts"`
	Value     float64 `json:"value"`
}

// Notification is a structured message forwarded to notify providers.
type Notification struct {
	EventType  EventType         `json:"event_type"`
	Severity   string            `json:"severity"` // "info", "warning", "critical"
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Controller string            `json:"controller"`
	Subject    string            `json:"subject"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
