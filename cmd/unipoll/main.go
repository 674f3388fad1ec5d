package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/and3rn3t/network-sub004/internal/api"
	"github.com/and3rn3t/network-sub004/internal/cache"
	"github.com/and3rn3t/network-sub004/internal/collector"
	"github.com/and3rn3t/network-sub004/internal/config"
	"github.com/and3rn3t/network-sub004/internal/model"
	"github.com/and3rn3t/network-sub004/internal/notify"
	"github.com/and3rn3t/network-sub004/internal/store"
	"github.com/and3rn3t/network-sub004/internal/unifi"
)

// @title unipoll API
// @version 1.0
// @description UniFi controller polling collector API
// @host localhost:3900
// @BasePath /

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

func main() {
	configPath := flag.String("config", "", "path to unipoll.yml config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	once := flag.Bool("once", false, "run one collection cycle per controller and exit")
	flag.Parse()

	ver, sha, built, dirty := buildInfo()

	if *showVersion {
		fmt.Printf("unipoll %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
			ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
			fmt.Fprintf(os.Stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(os.Stderr, "  cp unipoll.example.yml %s\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "error: loading config (%s): %s\n", *configPath, err)
		}
		os.Exit(1)
	}

	// Configure logging
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting unipoll",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
	)

	// Initialize store
	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Initialize cache
	c := cache.New()

	// Build notification providers
	var providers []notify.Provider
	for _, ncfg := range cfg.Notifications {
		switch ncfg.Type {
		case "ntfy":
			providers = append(providers, notify.NewNtfy(ncfg.URL, ncfg.Topic))
		case "webhook":
			providers = append(providers, notify.NewWebhook(ncfg.URL, ncfg.Method, ncfg.Headers))
		}
	}

	// Build one collector per controller
	var collectors []*collector.Collector
	for _, ctrlCfg := range cfg.Controllers {
		client, err := unifi.New(unifi.Config{
			Name:     ctrlCfg.Name,
			Host:     ctrlCfg.Host,
			Site:     ctrlCfg.Site,
			Username: ctrlCfg.Username,
			Password: ctrlCfg.Password,
			Insecure: ctrlCfg.Insecure,
		})
		if err != nil {
			slog.Error("creating controller client", "controller", ctrlCfg.Name, "error", err)
			os.Exit(1)
		}
		coll := collector.New(collector.Config{
			Name:         ctrlCfg.Name,
			PollInterval: ctrlCfg.PollInterval.Duration,
			MaxRetries:   ctrlCfg.MaxRetries,
			BackoffBase:  ctrlCfg.RetryBackoffBase.Duration,
			BackoffCap:   ctrlCfg.RetryBackoffCap.Duration,
		}, client, st, c, providers)
		collectors = append(collectors, coll)
	}

	if *once {
		os.Exit(runOnce(collectors))
	}

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, coll := range collectors {
		g.Go(func() error { return coll.Run(ctx) })
	}

	// Start pruner
	pruner := store.NewPruner(st, store.Retention{
		Hosts:   time.Duration(cfg.Retention.HostDays) * 24 * time.Hour,
		Metrics: time.Duration(cfg.Retention.MetricsDays) * 24 * time.Hour,
		Events:  time.Duration(cfg.Retention.EventsDays) * 24 * time.Hour,
		Runs:    time.Duration(cfg.Retention.RunsDays) * 24 * time.Hour,
	})
	g.Go(func() error { return pruner.Run(ctx) })

	// Start HTTP server
	server := api.NewServer(cfg.Listen, c, st)
	g.Go(func() error { return server.Run(ctx) })

	slog.Info("all components started",
		"controllers", len(collectors),
		"notifications", len(providers),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "error", err)
	}

	slog.Info("unipoll stopped gracefully")
}

// runOnce executes a single collection cycle per controller and returns the
// process exit code: non-zero if any cycle failed outright.
func runOnce(collectors []*collector.Collector) int {
	exit := 0
	for _, coll := range collectors {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		run := coll.RunOnce(ctx)
		cancel()

		slog.Info("collection run finished",
			"controller", run.Controller,
			"status", run.Status,
			"devices", run.DevicesProcessed,
			"clients", run.ClientsProcessed,
			"events", run.EventsCreated,
		)
		if run.Status == model.RunFailure {
			exit = 1
		}
	}
	return exit
}
