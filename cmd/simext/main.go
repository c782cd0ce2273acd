package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parkwise/simext/internal/config"
	"github.com/parkwise/simext/internal/core/arena"
	"github.com/parkwise/simext/internal/core/event"
	coresys "github.com/parkwise/simext/internal/core/system"
	"github.com/parkwise/simext/internal/data"
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/gate"
	"github.com/parkwise/simext/internal/host"
	"github.com/parkwise/simext/internal/pathmode"
	"github.com/parkwise/simext/internal/persist"
	"github.com/parkwise/simext/internal/recovery"
	"github.com/parkwise/simext/internal/scripting"
	"github.com/parkwise/simext/internal/simhost"
	"github.com/parkwise/simext/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/simext.toml"
	if p := os.Getenv("SIMEXT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Optional snapshot database
	var repo *persist.SnapshotRepo
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		repo = persist.NewSnapshotRepo(db)
		log.Info("snapshot database ready")
	}

	// 4. Load static tables
	parkingTable, err := data.LoadParkingTable("data/yaml/parking_list.yaml")
	if err != nil {
		return fmt.Errorf("load parking table: %w", err)
	}
	log.Info("parking locations loaded", zap.Int("count", parkingTable.Count()))

	// 5. Optional Lua parking policy
	var scorer pathmode.Scorer
	if cfg.Scripting.Enabled {
		engine, err := scripting.NewEngine(cfg.Scripting.ScriptsDir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer engine.Close()
		scorer = engine
		log.Info("parking policy scripts loaded")
	}

	// 6. Reference host + extension core
	paths := simhost.NewPathManager(3, 23, 8192)
	geom := simhost.NewRingRoad(12, 2, 110)
	world := simhost.NewWorld(cfg.Simulation.MaxInstances, cfg.Simulation.MaxVehicles, paths, geom)

	store := extstate.NewStore(cfg.Simulation.MaxInstances, cfg.Simulation.MaxVehicles)
	machine := pathmode.NewMachine(store, paths, parkingTable, scorer, cfg.Parking, log)
	transitionGate := gate.New(geom, machine, store, cfg.Parking.EmergencyBrakeMult)

	requests := &recovery.Requests{}
	sweep := recovery.NewSweep(store, machine, world.CitizenView(), world.VehicleView(), paths, world.Clock, log)

	// 7. Event wiring: path completions route into the state machine.
	bus := event.NewBus()
	event.Subscribe(bus, func(ev event.PathCompleted) {
		switch ev.Owner.Kind {
		case event.KindVehicle:
			if ev.Ready {
				machine.OnVehiclePathReady(host.VehicleID(ev.Owner.ID), ev.Path)
			} else {
				machine.OnVehiclePathFailed(host.VehicleID(ev.Owner.ID), ev.Path)
			}
		case event.KindCitizen:
			if ev.Ready {
				machine.OnReturnPathReady(host.CitizenID(ev.Owner.ID), ev.Path)
			} else {
				machine.OnReturnPathFailed(host.CitizenID(ev.Owner.ID), ev.Path)
			}
		}
	})

	// Release notifications reset extended records across all stores.
	citizenReleases := arena.NewReleaseRegistry()
	citizenReleases.Register(arena.ResetFunc(func(id uint32) { machine.ResetCitizen(host.CitizenID(id)) }))
	vehicleReleases := arena.NewReleaseRegistry()
	vehicleReleases.Register(arena.ResetFunc(func(id uint32) { machine.ResetVehicle(host.VehicleID(id)) }))

	// 8. Register systems
	runner := coresys.NewRunner()
	runner.Register(system.NewDispatchSystem(bus))
	runner.Register(system.NewMaintenanceSystem(requests, sweep, cfg.Recovery.AutoSweepInterval))
	runner.Register(system.NewTrafficSystem(world, store, machine, transitionGate, 64, time.Now().UnixNano(), log))
	runner.Register(system.NewPathPollSystem(bus, store, paths, world.CitizenView(), world.VehicleView()))
	var saver system.SnapshotSaver
	if repo != nil {
		saver = repo
	}
	autosave := system.NewAutosaveSystem(store, saver, world.CitizenView(), world.VehicleView(), cfg.Database.SnapshotTicks, log)
	runner.Register(autosave)
	runner.Register(system.NewCleanupSystem(world, citizenReleases, vehicleReleases))

	// 9. Resume previous session if a snapshot exists.
	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snap, err := repo.Load(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if !store.Import(snap, log) {
			log.Warn("snapshot import skipped some records")
		}
	}

	// 10. Tick loop. SIGUSR1 requests a recovery sweep, SIGUSR2 a bulk
	// vehicle clear; both are deferred to the next tick boundary. SIGHUP
	// dumps diagnostics (read-only, runs between ticks).
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	maintCh := make(chan os.Signal, 4)
	signal.Notify(maintCh, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGHUP)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	log.Info("simulation loop started",
		zap.Duration("tick", cfg.Simulation.TickRate),
		zap.Int("max_vehicles", cfg.Simulation.MaxVehicles))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case sig := <-maintCh:
			switch sig {
			case syscall.SIGUSR1:
				log.Info("recovery sweep requested")
				requests.RequestSweep()
			case syscall.SIGUSR2:
				log.Info("vehicle clear requested")
				requests.RequestClearVehicles()
			case syscall.SIGHUP:
				sweep.DumpDiagnostics()
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			autosave.SaveNow()
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
