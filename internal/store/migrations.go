package store

const schema = `
-- Known devices, keyed by controller + hardware MAC. Devices are never
-- deleted; ones that stop appearing are marked missing.
CREATE TABLE IF NOT EXISTS devices (
    controller    TEXT NOT NULL,
    mac           TEXT NOT NULL,
    controller_id TEXT,
    name          TEXT NOT NULL,
    model         TEXT,
    device_type   TEXT,
    ip            TEXT,
    firmware      TEXT,
    state         TEXT NOT NULL,
    uptime_secs   INTEGER NOT NULL DEFAULT 0,
    cpu_pct       REAL,
    mem_pct       REAL,
    temperature   REAL,
    first_seen    INTEGER NOT NULL,
    last_seen     INTEGER NOT NULL,
    PRIMARY KEY (controller, mac)
);

-- Known clients. Transient by nature; absent clients are marked offline
-- and eventually pruned by retention, never deleted inline.
CREATE TABLE IF NOT EXISTS clients (
    controller  TEXT NOT NULL,
    mac         TEXT NOT NULL,
    hostname    TEXT,
    ip          TEXT,
    device_mac  TEXT,
    signal_dbm  INTEGER,
    rx_bytes    INTEGER NOT NULL DEFAULT 0,
    tx_bytes    INTEGER NOT NULL DEFAULT 0,
    is_online   INTEGER NOT NULL DEFAULT 0,
    first_seen  INTEGER NOT NULL,
    last_seen   INTEGER NOT NULL,
    PRIMARY KEY (controller, mac)
);

-- Append-only event log of detected state transitions.
CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    ts           INTEGER NOT NULL,
    entity_type  TEXT NOT NULL,
    entity_mac   TEXT NOT NULL,
    event_type   TEXT NOT NULL,
    description  TEXT NOT NULL,
    details_json TEXT
);

-- Append-only time-series observations.
CREATE TABLE IF NOT EXISTS metrics (
    ts          INTEGER NOT NULL,
    entity_mac  TEXT NOT NULL,
    metric      TEXT NOT NULL,
    value       REAL NOT NULL,
    unit        TEXT NOT NULL,
    PRIMARY KEY (ts, entity_mac, metric)
) WITHOUT ROWID;

-- One row per poll cycle, written even for failed cycles.
CREATE TABLE IF NOT EXISTS collection_runs (
    id                TEXT PRIMARY KEY,
    controller        TEXT NOT NULL,
    started_at        INTEGER NOT NULL,
    finished_at       INTEGER NOT NULL,
    devices_processed INTEGER NOT NULL DEFAULT 0,
    clients_processed INTEGER NOT NULL DEFAULT 0,
    records_dropped   INTEGER NOT NULL DEFAULT 0,
    events_created    INTEGER NOT NULL DEFAULT 0,
    metrics_created   INTEGER NOT NULL DEFAULT 0,
    status            TEXT NOT NULL,
    error_message     TEXT
);

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
CREATE INDEX IF NOT EXISTS idx_events_mac ON events(entity_mac, ts);
CREATE INDEX IF NOT EXISTS idx_metrics_mac ON metrics(entity_mac, metric, ts);
CREATE INDEX IF NOT EXISTS idx_runs_started ON collection_runs(started_at);
`
