package store

import (
	"context"
	"log/slog"
	"time"
)

// Retention defines how long each kind of history is kept.
type Retention struct {
	Hosts   time.Duration // offline clients not seen within this window
	Metrics time.Duration
	Events  time.Duration
	Runs    time.Duration
}

// DefaultRetention returns the default retention periods.
func DefaultRetention() Retention {
	return Retention{
		Hosts:   30 * 24 * time.Hour,
		Metrics: 14 * 24 * time.Hour,
		Events:  30 * 24 * time.Hour,
		Runs:    7 * 24 * time.Hour,
	}
}

// Pruner periodically removes expired history from the store. Devices are
// exempt: they are long-lived inventory, not history.
type Pruner struct {
	store     *Store
	retention Retention
	interval  time.Duration
}

// NewPruner creates a pruner with the given retention config.
func NewPruner(store *Store, retention Retention) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  1 * time.Hour,
	}
}

// Run starts the pruner loop. It blocks until the context is cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	slog.Info("pruner started", "interval", p.interval)

	// Run once at startup
	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pruner stopped")
			return ctx.Err()
		case <-ticker.C:
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	now := time.Now().Unix()
	tables := []struct {
		name      string
		query     string
		retention time.Duration
	}{
		{"metrics", "DELETE FROM metrics WHERE ts < ?", p.retention.Metrics},
		{"events", "DELETE FROM events WHERE ts < ?", p.retention.Events},
		{"collection_runs", "DELETE FROM collection_runs WHERE started_at < ?", p.retention.Runs},
		{"clients", "DELETE FROM clients WHERE is_online = 0 AND last_seen < ?", p.retention.Hosts},
	}

	for _, t := range tables {
		cutoff := now - int64(t.retention.Seconds())
		result, err := p.store.db.Exec(t.query, cutoff)
		if err != nil {
			slog.Error("pruning failed", "table", t.name, "error", err)
			continue
		}
		rows, _ := result.RowsAffected()
		if rows > 0 {
			slog.Info("pruned old data", "table", t.name, "rows", rows)
		}
	}
}
