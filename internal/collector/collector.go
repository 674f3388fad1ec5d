// Package collector implements the polling data collector: it acquires
// snapshots from a UniFi controller, reconciles them against persisted
// state, and turns the differences into events and metrics.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/and3rn3t/network-sub004/internal/cache"
	"github.com/and3rn3t/network-sub004/internal/model"
	"github.com/and3rn3t/network-sub004/internal/notify"
)

// ControllerClient is the remote controller contract the collector polls.
type ControllerClient interface {
	Login(ctx context.Context) error
	Devices(ctx context.Context) (json.RawMessage, error)
	Clients(ctx context.Context) (json.RawMessage, error)
	Logout(ctx context.Context) error
}

// Gateway is the persistence contract the collector writes through. Each
// call is individually durable; no transaction spans device and client
// writes, so a failed write mid-cycle leaves earlier writes in place.
type Gateway interface {
	PriorStateProvider
	UpsertDevice(dev model.DeviceRecord) error
	UpsertClient(cl model.ClientRecord) error
	MarkDeviceMissing(controller, mac string, ts time.Time) error
	MarkClientOffline(controller, mac string, ts time.Time) error
	InsertEvent(ev *model.Event) error
	InsertMetrics(metrics []model.Metric) error
	InsertRun(run model.CollectionRun) error
}

// Config holds per-controller collector settings.
type Config struct {
	Name         string
	PollInterval time.Duration
	MaxRetries   int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	CycleTimeout time.Duration
}

// Collector drives the poll cycle for one controller. Cycles are strictly
// serialized: a new cycle never starts before the previous one finishes,
// because reconciliation compares against the state left by the
// immediately preceding run.
type Collector struct {
	config    Config
	client    ControllerClient
	gateway   Gateway
	cache     *cache.Cache
	providers []notify.Provider

	// injected for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a collector for one controller.
func New(cfg Config, client ControllerClient, gw Gateway, c *cache.Cache, providers []notify.Provider) *Collector {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffCap < cfg.BackoffBase {
		cfg.BackoffCap = 30 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 2 * time.Minute
	}
	return &Collector{
		config:    cfg,
		client:    client,
		gateway:   gw,
		cache:     c,
		providers: providers,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func (c *Collector) Name() string            { return "unifi:" + c.config.Name }
func (c *Collector) Interval() time.Duration { return c.config.PollInterval }

// Run loops RunOnce on the poll interval until ctx is cancelled. A cycle in
// flight always completes: each cycle runs under its own timeout context
// detached from ctx, and cancellation is only observed between cycles. A
// failed cycle is logged and the loop continues.
func (c *Collector) Run(ctx context.Context) error {
	slog.Info("collector started", "controller", c.config.Name, "interval", c.config.PollInterval)

	if err := c.loginWithContext(); err != nil {
		slog.Warn("initial login failed, will retry during collection", "controller", c.config.Name, "error", err)
	}

	c.runCycle()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logout()
			slog.Info("collector stopped", "controller", c.config.Name)
			return ctx.Err()
		case <-ticker.C:
			c.runCycle()
		}
	}
}

func (c *Collector) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.CycleTimeout)
	defer cancel()

	run := c.RunOnce(ctx)
	switch run.Status {
	case model.RunSuccess:
		slog.Debug("collection complete",
			"controller", c.config.Name,
			"devices", run.DevicesProcessed,
			"clients", run.ClientsProcessed,
			"events", run.EventsCreated,
			"metrics", run.MetricsCreated,
		)
	default:
		slog.Error("collection cycle failed",
			"controller", c.config.Name,
			"status", run.Status,
			"error", run.ErrorMessage,
		)
	}
}

// RunOnce executes exactly one fetch -> reconcile -> persist cycle and
// returns its summary. A CollectionRun row is written even when the cycle
// fails.
func (c *Collector) RunOnce(ctx context.Context) model.CollectionRun {
	run := model.CollectionRun{
		ID:         uuid.NewString(),
		Controller: c.config.Name,
		StartTime:  c.now(),
		Status:     model.RunSuccess,
	}

	c.cycle(ctx, &run)

	run.EndTime = c.now()
	if err := c.gateway.InsertRun(run); err != nil {
		slog.Error("recording collection run", "controller", c.config.Name, "error", err)
	}
	c.cache.SetLastRun(c.config.Name, run)
	return run
}

// cycle performs the body of one run, mutating the run summary in place.
// Panics are converted into a failed run so a daemon survives them.
func (c *Collector) cycle(ctx context.Context, run *model.CollectionRun) {
	defer func() {
		if r := recover(); r != nil {
			run.Status = model.RunFailure
			run.ErrorMessage = fmt.Sprintf("panic during collection: %v", r)
		}
	}()

	fail := func(err error) {
		run.Status = model.RunFailure
		run.ErrorMessage = err.Error()
	}

	devRaw, clRaw, err := c.fetchSnapshot(ctx)
	if err != nil {
		fail(err)
		return
	}

	ts := c.now()
	devices, droppedDevices, err := NormalizeDevices(c.config.Name, devRaw, ts)
	if err != nil {
		fail(err)
		return
	}
	clients, droppedClients, err := NormalizeClients(c.config.Name, clRaw, ts)
	if err != nil {
		fail(err)
		return
	}
	run.DevicesProcessed = len(devices)
	run.ClientsProcessed = len(clients)
	run.RecordsDropped = droppedDevices + droppedClients

	priorDevices, err := c.gateway.DeviceStates(c.config.Name)
	if err != nil {
		fail(fmt.Errorf("reading prior device state: %w", err))
		return
	}
	priorClients, err := c.gateway.ClientStates(c.config.Name)
	if err != nil {
		fail(fmt.Errorf("reading prior client state: %w", err))
		return
	}

	devTransitions := ReconcileDevices(devices, priorDevices)
	clTransitions := ReconcileClients(clients, priorClients)

	// Persist phase is best effort: one bad write downgrades the run to
	// partial_failure but never discards the rest of the poll's work.
	var persistErr error
	record := func(err error) {
		if err != nil {
			slog.Error("persisting record", "controller", c.config.Name, "error", err)
			if persistErr == nil {
				persistErr = err
			}
		}
	}

	for _, tr := range devTransitions {
		if tr.Class == ClassMissing {
			record(c.gateway.MarkDeviceMissing(c.config.Name, tr.MAC, ts))
			continue
		}
		record(c.gateway.UpsertDevice(*tr.Device))
	}
	for _, tr := range clTransitions {
		if tr.Class == ClassMissing {
			record(c.gateway.MarkClientOffline(c.config.Name, tr.MAC, ts))
			continue
		}
		record(c.gateway.UpsertClient(*tr.Client))
	}

	transitions := append(devTransitions, clTransitions...)
	events := EmitEvents(transitions, ts)
	for i := range events {
		if err := c.gateway.InsertEvent(&events[i]); err != nil {
			record(err)
			continue
		}
		run.EventsCreated++
	}
	c.notifyEvents(ctx, events)

	metrics := RecordMetrics(devices, clients, ts)
	if len(metrics) > 0 {
		if err := c.gateway.InsertMetrics(metrics); err != nil {
			record(err)
		} else {
			run.MetricsCreated = len(metrics)
		}
	}

	c.updateCache(devices, clients, ts)

	if persistErr != nil {
		run.Status = model.RunPartialFailure
		run.ErrorMessage = persistErr.Error()
	}
}

// fetchSnapshot acquires the raw device and client payloads with bounded
// retry. Transient failures back off exponentially between attempts; an
// auth failure triggers exactly one re-login before counting as fatal.
func (c *Collector) fetchSnapshot(ctx context.Context) (json.RawMessage, json.RawMessage, error) {
	var (
		devices, clients json.RawMessage
		err              error
		reauthed         bool
	)
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		devices, clients, err = c.fetchOnce(ctx)
		if err == nil {
			return devices, clients, nil
		}

		if isAuthFailure(err) {
			if reauthed {
				return nil, nil, err
			}
			reauthed = true
			if lerr := c.client.Login(ctx); lerr != nil {
				return nil, nil, fmt.Errorf("re-authenticating: %w", lerr)
			}
			// re-login does not consume an attempt
			attempt--
			continue
		}

		if !isRetryable(err) {
			return nil, nil, err
		}
		if attempt == c.config.MaxRetries {
			break
		}
		slog.Warn("snapshot fetch failed, retrying",
			"controller", c.config.Name,
			"attempt", attempt,
			"backoff", c.backoff(attempt),
			"error", err,
		)
		if serr := c.sleep(ctx, c.backoff(attempt)); serr != nil {
			return nil, nil, serr
		}
	}
	return nil, nil, fmt.Errorf("fetching snapshot after %d attempts: %w", c.config.MaxRetries, err)
}

func (c *Collector) fetchOnce(ctx context.Context) (json.RawMessage, json.RawMessage, error) {
	devices, err := c.client.Devices(ctx)
	if err != nil {
		return nil, nil, err
	}
	clients, err := c.client.Clients(ctx)
	if err != nil {
		return nil, nil, err
	}
	return devices, clients, nil
}

// backoff returns the delay before the next attempt: base doubled per
// attempt, capped.
func (c *Collector) backoff(attempt int) time.Duration {
	d := c.config.BackoffBase << (attempt - 1)
	if d <= 0 || d > c.config.BackoffCap {
		d = c.config.BackoffCap
	}
	return d
}

// notifyEvents forwards device lifecycle events to notification providers.
// Client events are deliberately excluded: client churn would make the
// notification channel useless.
func (c *Collector) notifyEvents(ctx context.Context, events []model.Event) {
	if len(c.providers) == 0 {
		return
	}
	for _, ev := range events {
		if ev.EntityType != model.EntityDevice {
			continue
		}
		notif := model.Notification{
			EventType:  ev.Type,
			Severity:   eventSeverity(ev.Type),
			Title:      eventTitle(ev.Type),
			Message:    ev.Description,
			Controller: c.config.Name,
			Subject:    ev.EntityMAC,
			Timestamp:  ev.Timestamp,
			Metadata:   ev.Details,
		}
		for _, p := range c.providers {
			if err := p.Send(ctx, notif); err != nil {
				slog.Error("sending notification", "provider", p.Name(), "event", ev.Type, "error", err)
			}
		}
	}
}

func eventSeverity(t model.EventType) string {
	switch t {
	case model.EventDeviceOffline:
		return "warning"
	default:
		return "info"
	}
}

func eventTitle(t model.EventType) string {
	switch t {
	case model.EventDeviceNew:
		return "Device Discovered"
	case model.EventDeviceOnline:
		return "Device Online"
	case model.EventDeviceOffline:
		return "Device Offline"
	case model.EventFirmwareChanged:
		return "Firmware Changed"
	case model.EventIPChanged:
		return "IP Changed"
	default:
		return string(t)
	}
}

func (c *Collector) updateCache(devices []model.DeviceRecord, clients []model.ClientRecord, ts time.Time) {
	devMap := make(map[string]*model.DeviceRecord, len(devices))
	for i := range devices {
		devMap[devices[i].MAC] = &devices[i]
	}
	clMap := make(map[string]*model.ClientRecord, len(clients))
	for i := range clients {
		clMap[clients[i].MAC] = &clients[i]
	}
	c.cache.UpdateDevices(c.config.Name, devMap)
	c.cache.UpdateClients(c.config.Name, clMap)
	c.cache.SetLastPoll(c.Name(), ts)
}

func (c *Collector) loginWithContext() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return c.client.Login(ctx)
}

func (c *Collector) logout() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.client.Logout(ctx); err != nil {
		slog.Debug("logout failed", "controller", c.config.Name, "error", err)
	}
}

// retryable and authFailure classify client errors without depending on the
// concrete client package.
type retryable interface{ IsRetryable() bool }
type authFailure interface{ AuthFailure() bool }

func isRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r) && r.IsRetryable()
}

func isAuthFailure(err error) bool {
	var a authFailure
	return errors.As(err, &a) && a.AuthFailure()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
