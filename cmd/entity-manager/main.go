// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Command entity-manager is the hardware inventory manager daemon: it
// loads declarative templates, probes the detector mirror against
// them, and projects the resulting System Configuration onto a local
// object bus.
//
// On startup it:
//  1. Loads configuration from --config / ENTITYMGR_CONFIG.
//  2. Confirms the advisory global schema is present (fatal if not).
//  3. Loads the template library and computes the probe-interest set.
//  4. Bootstraps the previous System Configuration from disk.
//  5. Starts the bus transport, the detector poller, and the scheduler
//     loop, and blocks until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/bmc-tools/entity-manager/bus"
	"github.com/bmc-tools/entity-manager/busproject"
	"github.com/bmc-tools/entity-manager/clock"
	"github.com/bmc-tools/entity-manager/config"
	"github.com/bmc-tools/entity-manager/debounce"
	"github.com/bmc-tools/entity-manager/mirror"
	"github.com/bmc-tools/entity-manager/persist"
	"github.com/bmc-tools/entity-manager/scheduler"
	"github.com/bmc-tools/entity-manager/schema"
	"github.com/bmc-tools/entity-manager/templatestore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to the entity-manager YAML config file (overrides ENTITYMGR_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("entity-manager (development build)")
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	globalSchemaPath := filepath.Join(cfg.Paths.SchemaDir, "global.json")
	if _, err := os.Stat(globalSchemaPath); err != nil {
		return fmt.Errorf("missing global schema at %s: %w", globalSchemaPath, err)
	}

	store, report, err := templatestore.Load(
		filepath.Join(cfg.Paths.PackageDir, "configurations"),
		filepath.Join(cfg.Paths.SysConfDir, "configurations"),
		logger,
	)
	if err != nil {
		return fmt.Errorf("loading template library: %w", err)
	}
	for _, rejected := range report.Rejected {
		logger.Warn("main: rejected malformed template", "file", rejected.Path, "reason", rejected.Reason)
	}
	logger.Info("main: loaded templates", "count", len(store.Templates()), "files", len(report.FilesLoaded))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persistStore := persist.New(cfg.Paths.CurrentConfig, cfg.Paths.LastConfig, cfg.Paths.VersionMarker, logger)
	previous, err := persistStore.Bootstrap(cfg.FirmwareVersion)
	if err != nil {
		return fmt.Errorf("bootstrapping persisted configuration: %w", err)
	}

	clk := clock.Real()
	// The chassis power detector rides alongside the probe interest set:
	// no template needs to probe it for the power gate to read it.
	interest := mirror.NewInterestSet(append(store.ProbeInterestSet(), scheduler.ChassisPowerInterface))
	mir := mirror.New(interest, logger)

	server := bus.NewSocketServer(cfg.Bus.SocketPath, logger)

	rescanCh := make(chan struct{}, 1)
	rescan := func() {
		select {
		case rescanCh <- struct{}{}:
		default:
		}
	}

	writeBack := func(detector schema.DetectorPath, property string, value schema.Value) error {
		client := bus.NewClient(detector.Service)
		return client.SetProperty(detector.Path, property, value)
	}

	projector := busproject.New(server, cfg.Paths.SchemaDir, writeBack, rescan, logger)

	sched := &scheduler.Scheduler{
		Mirror:    mir,
		Debouncer: debounce.New(clk, cfg.Debounce.Window),
		PowerGate: debounce.NewPowerGate(clk, cfg.Debounce.Settle),
		Templates: store.Templates(),
		Projector: projector,
		Persist:   persistStore,
		Logger:    logger,
	}
	sched.Power = &scheduler.MirrorPowerObserver{Mirror: mir}

	projector.SetOnMutated(func(mutated *schema.SystemConfiguration) {
		if err := persistStore.Save(mutated); err != nil {
			logger.Error("main: re-persisting after bus-triggered mutation failed", "error", err)
		}
	})

	fetchers := make([]mirror.Fetch, 0, len(cfg.Bus.DetectorSockets))
	for _, socketPath := range cfg.Bus.DetectorSockets {
		client := bus.NewClient(socketPath)
		fetchers = append(fetchers, client.GetManagedObjects)
	}
	poller := mirror.NewPoller(mir, fetchers, clk, logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(ctx); err != nil {
			errCh <- fmt.Errorf("bus server: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx, cfg.Bus.PollInterval)
	}()

	sched.SetPrevious(previous)

	schedErrCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		schedErrCh <- sched.Run(ctx, rescanCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case err := <-schedErrCh:
		stop()
		wg.Wait()
		if err != nil && ctx.Err() == nil {
			return err
		}
	case <-ctx.Done():
		wg.Wait()
	}

	logger.Info("main: shutdown complete")
	return nil
}

func loadConfig(explicitPath string) (*config.Config, error) {
	if explicitPath != "" {
		return config.LoadFile(explicitPath)
	}
	return config.Load()
}
