// Package store provides SQLite persistence for unipoll.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/and3rn3t/network-sub004/internal/model"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database. It implements the collector's persistence
// gateway and the query surface of the HTTP API.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DeviceStates returns the last persisted device record per MAC for one
// controller, as left by the previous collection run.
func (s *Store) DeviceStates(controller string) (map[string]model.DeviceRecord, error) {
	rows, err := s.db.Query(`
		SELECT mac, controller_id, name, model, device_type, ip, firmware, state,
		       uptime_secs, cpu_pct, mem_pct, temperature, first_seen, last_seen
		FROM devices WHERE controller = ?`, controller)
	if err != nil {
		return nil, fmt.Errorf("querying device states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]model.DeviceRecord)
	for rows.Next() {
		dev, err := scanDevice(rows, controller)
		if err != nil {
			return nil, err
		}
		states[dev.MAC] = dev
	}
	return states, rows.Err()
}

// ClientStates returns the last persisted client record per MAC for one
// controller.
func (s *Store) ClientStates(controller string) (map[string]model.ClientRecord, error) {
	rows, err := s.db.Query(`
		SELECT mac, hostname, ip, device_mac, signal_dbm, rx_bytes, tx_bytes,
		       is_online, first_seen, last_seen
		FROM clients WHERE controller = ?`, controller)
	if err != nil {
		return nil, fmt.Errorf("querying client states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]model.ClientRecord)
	for rows.Next() {
		cl, err := scanClient(rows, controller)
		if err != nil {
			return nil, err
		}
		states[cl.MAC] = cl
	}
	return states, rows.Err()
}

// UpsertDevice inserts or refreshes a device record. first_seen is set on
// first sighting and preserved afterwards.
func (s *Store) UpsertDevice(dev model.DeviceRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO devices (controller, mac, controller_id, name, model, device_type,
			ip, firmware, state, uptime_secs, cpu_pct, mem_pct, temperature, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(controller, mac) DO UPDATE SET
			controller_id = excluded.controller_id,
			name = excluded.name,
			model = excluded.model,
			device_type = excluded.device_type,
			ip = excluded.ip,
			firmware = excluded.firmware,
			state = excluded.state,
			uptime_secs = excluded.uptime_secs,
			cpu_pct = excluded.cpu_pct,
			mem_pct = excluded.mem_pct,
			temperature = excluded.temperature,
			last_seen = excluded.last_seen`,
		dev.Controller, dev.MAC, dev.ControllerID, dev.Name, dev.Model, dev.Type,
		dev.IP, dev.Firmware, string(dev.State), dev.UptimeSecs,
		dev.CPUPct, dev.MemPct, dev.Temperature,
		dev.LastSeen.Unix(), dev.LastSeen.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", dev.MAC, err)
	}
	return nil
}

// UpsertClient inserts or refreshes a client record.
func (s *Store) UpsertClient(cl model.ClientRecord) error {
	online := 0
	if cl.IsOnline {
		online = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO clients (controller, mac, hostname, ip, device_mac, signal_dbm,
			rx_bytes, tx_bytes, is_online, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(controller, mac) DO UPDATE SET
			hostname = excluded.hostname,
			ip = excluded.ip,
			device_mac = excluded.device_mac,
			signal_dbm = excluded.signal_dbm,
			rx_bytes = excluded.rx_bytes,
			tx_bytes = excluded.tx_bytes,
			is_online = excluded.is_online,
			last_seen = excluded.last_seen`,
		cl.Controller, cl.MAC, cl.Hostname, cl.IP, cl.DeviceMAC, cl.SignalDBM,
		cl.RxBytes, cl.TxBytes, online, cl.LastSeen.Unix(), cl.LastSeen.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting client %s: %w", cl.MAC, err)
	}
	return nil
}

// MarkDeviceMissing flags a device that disappeared from the snapshot.
// last_seen is left untouched; it records the last actual sighting.
func (s *Store) MarkDeviceMissing(controller, mac string, ts time.Time) error {
	_, err := s.db.Exec(`
		UPDATE devices SET state = ? WHERE controller = ? AND mac = ?`,
		string(model.StateMissing), controller, mac,
	)
	if err != nil {
		return fmt.Errorf("marking device %s missing: %w", mac, err)
	}
	return nil
}

// MarkClientOffline flags a client absent from the snapshot.
func (s *Store) MarkClientOffline(controller, mac string, ts time.Time) error {
	_, err := s.db.Exec(`
		UPDATE clients SET is_online = 0 WHERE controller = ? AND mac = ?`,
		controller, mac,
	)
	if err != nil {
		return fmt.Errorf("marking client %s offline: %w", mac, err)
	}
	return nil
}

// InsertEvent appends one event and fills in its assigned ID.
func (s *Store) InsertEvent(ev *model.Event) error {
	var details any
	if ev.Details != nil {
		data, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("marshaling event details: %w", err)
		}
		details = string(data)
	}
	res, err := s.db.Exec(`
		INSERT INTO events (ts, entity_type, entity_mac, event_type, description, details_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.Unix(), string(ev.EntityType), ev.EntityMAC,
		string(ev.Type), ev.Description, details,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// InsertMetrics appends a batch of metric rows in one transaction.
func (s *Store) InsertMetrics(metrics []model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting metrics transaction: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO metrics (ts, entity_mac, metric, value, unit)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if _, err := stmt.Exec(m.Timestamp.Unix(), m.EntityMAC, string(m.Name), m.Value, m.Unit); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting metric %s/%s: %w", m.EntityMAC, m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing metrics: %w", err)
	}
	return nil
}

// InsertRun records the outcome of one collection cycle.
func (s *Store) InsertRun(run model.CollectionRun) error {
	_, err := s.db.Exec(`
		INSERT INTO collection_runs
		(id, controller, started_at, finished_at, devices_processed, clients_processed,
		 records_dropped, events_created, metrics_created, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Controller, run.StartTime.Unix(), run.EndTime.Unix(),
		run.DevicesProcessed, run.ClientsProcessed, run.RecordsDropped,
		run.EventsCreated, run.MetricsCreated, string(run.Status), run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("inserting collection run: %w", err)
	}
	return nil
}

// Devices returns all device records for a controller, missing ones included.
func (s *Store) Devices(controller string) ([]model.DeviceRecord, error) {
	states, err := s.DeviceStates(controller)
	if err != nil {
		return nil, err
	}
	devices := make([]model.DeviceRecord, 0, len(states))
	for _, dev := range states {
		devices = append(devices, dev)
	}
	return devices, nil
}

// RecentEvents returns the newest events, most recent first.
func (s *Store) RecentEvents(limit int) ([]model.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, ts, entity_type, entity_mac, event_type, description, details_json
		FROM events ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			ev          model.Event
			ts          int64
			entityType  string
			eventType   string
			detailsJSON sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ts, &entityType, &ev.EntityMAC, &eventType, &ev.Description, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Timestamp = time.Unix(ts, 0)
		ev.EntityType = model.EntityType(entityType)
		ev.Type = model.EventType(eventType)
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &ev.Details); err != nil {
				return nil, fmt.Errorf("parsing event details: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MetricSeries returns data points for one entity and metric since a cutoff.
func (s *Store) MetricSeries(mac string, metric model.MetricName, since int64) ([]model.MetricPoint, error) {
	rows, err := s.db.Query(`
		SELECT ts, value FROM metrics
		WHERE entity_mac = ? AND metric = ? AND ts >= ?
		ORDER BY ts ASC`, mac, string(metric), since)
	if err != nil {
		return nil, fmt.Errorf("querying metric series: %w", err)
	}
	defer rows.Close()

	var points []model.MetricPoint
	for rows.Next() {
		var p model.MetricPoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning metric point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RecentRuns returns the newest collection runs, most recent first.
func (s *Store) RecentRuns(limit int) ([]model.CollectionRun, error) {
	rows, err := s.db.Query(`
		SELECT id, controller, started_at, finished_at, devices_processed,
		       clients_processed, records_dropped, events_created, metrics_created,
		       status, error_message
		FROM collection_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying collection runs: %w", err)
	}
	defer rows.Close()

	var runs []model.CollectionRun
	for rows.Next() {
		var (
			run      model.CollectionRun
			started  int64
			finished int64
			status   string
			errMsg   sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Controller, &started, &finished,
			&run.DevicesProcessed, &run.ClientsProcessed, &run.RecordsDropped,
			&run.EventsCreated, &run.MetricsCreated, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning collection run: %w", err)
		}
		run.StartTime = time.Unix(started, 0)
		run.EndTime = time.Unix(finished, 0)
		run.Status = model.RunStatus(status)
		run.ErrorMessage = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanDevice(rows *sql.Rows, controller string) (model.DeviceRecord, error) {
	var (
		dev          model.DeviceRecord
		controllerID sql.NullString
		devModel     sql.NullString
		devType      sql.NullString
		ip           sql.NullString
		firmware     sql.NullString
		state        string
		cpu          sql.NullFloat64
		mem          sql.NullFloat64
		temp         sql.NullFloat64
		firstSeen    int64
		lastSeen     int64
	)
	if err := rows.Scan(&dev.MAC, &controllerID, &dev.Name, &devModel, &devType,
		&ip, &firmware, &state, &dev.UptimeSecs, &cpu, &mem, &temp, &firstSeen, &lastSeen); err != nil {
		return dev, fmt.Errorf("scanning device: %w", err)
	}
	dev.Controller = controller
	dev.ControllerID = controllerID.String
	dev.Model = devModel.String
	dev.Type = devType.String
	dev.IP = ip.String
	dev.Firmware = firmware.String
	dev.State = model.DeviceState(state)
	if cpu.Valid {
		dev.CPUPct = &cpu.Float64
	}
	if mem.Valid {
		dev.MemPct = &mem.Float64
	}
	if temp.Valid {
		dev.Temperature = &temp.Float64
	}
	dev.FirstSeen = time.Unix(firstSeen, 0)
	dev.LastSeen = time.Unix(lastSeen, 0)
	return dev, nil
}

func scanClient(rows *sql.Rows, controller string) (model.ClientRecord, error) {
	var (
		cl        model.ClientRecord
		hostname  sql.NullString
		ip        sql.NullString
		deviceMAC sql.NullString
		signal    sql.NullInt64
		online    int
		firstSeen int64
		lastSeen  int64
	)
	if err := rows.Scan(&cl.MAC, &hostname, &ip, &deviceMAC, &signal,
		&cl.RxBytes, &cl.TxBytes, &online, &firstSeen, &lastSeen); err != nil {
		return cl, fmt.Errorf("scanning client: %w", err)
	}
	cl.Controller = controller
	cl.Hostname = hostname.String
	cl.IP = ip.String
	cl.DeviceMAC = deviceMAC.String
	if signal.Valid {
		v := int(signal.Int64)
		cl.SignalDBM = &v
	}
	cl.IsOnline = online != 0
	cl.FirstSeen = time.Unix(firstSeen, 0)
	cl.LastSeen = time.Unix(lastSeen, 0)
	return cl, nil
}
