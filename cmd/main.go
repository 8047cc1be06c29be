package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/openmapping/tasking/config"
	"github.com/openmapping/tasking/internal/app"
	"github.com/openmapping/tasking/internal/db"
	"github.com/openmapping/tasking/internal/db/repos"
	"github.com/openmapping/tasking/internal/events"
	"github.com/openmapping/tasking/internal/logger"
	"github.com/openmapping/tasking/internal/services"
	"github.com/openmapping/tasking/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitializeAndConfigure(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	ssl := cfg.DB.SSLEnabled
	gdb, err := db.New(db.Options{
		Driver:      cfg.DB.Driver,
		Host:        cfg.DB.Host,
		Port:        cfg.DB.Port,
		User:        cfg.DB.User,
		Password:    cfg.DB.Password,
		DBName:      cfg.DB.Name,
		SSLEnabled:  &ssl,
		Path:        cfg.DB.Path,
		LogLevel:    db.ParseLogLevel(cfg.DB.LogLevel),
		AutoMigrate: cfg.DB.AutoMigrate,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	tel, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise telemetry: %w", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()

	bus := events.NewBus(events.EventChannelSize)
	for _, typ := range events.AllTypes {
		bus.Subscribe(typ, events.LogActivity)
	}
	bus.Start(sweepCtx)

	store := repos.NewStore(gdb)
	projects := services.NewProjectService(store)
	tasks := services.NewTaskService(store,
		services.WithTelemetry(tel),
		services.WithLockTimeout(cfg.Sweep.LockTimeout),
		services.WithSplitThresholds(cfg.Split.MinAreaM2, cfg.Split.MaxZoom),
		services.WithEvents(bus),
	)

	var wg sync.WaitGroup
	if cfg.Sweep.Enabled {
		wg.Add(1)
		go services.LaunchSweeper(sweepCtx, &wg, services.NewSweeper(store, tasks, cfg.Sweep.Schedule))
	}

	server := app.New(projects, tasks)
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Infof("Listening on %s", addr)
		errCh <- server.Listen(addr)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.ShutdownWithContext(shutdownCtx); serr != nil {
		logger.Warnf("HTTP shutdown: %v", serr)
	}
	stopSweep()
	wg.Wait()
	bus.Wait()
	if serr := tel.Shutdown(shutdownCtx); serr != nil {
		logger.Warnf("Telemetry shutdown: %v", serr)
	}
	if sqlDB, serr := gdb.DB(); serr == nil {
		_ = sqlDB.Close()
	}
	return err
}
