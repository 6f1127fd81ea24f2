// Nuvo Core - Grand Concerto / Essentia G whole-home audio daemon
//
// This is the main entry point for the Nuvo Core daemon. It connects to
// the nuvo-serial driver service that owns the amplifier's RS-232 link
// and exposes the zones over MQTT, HTTP and WebSocket:
//   - Zone power, volume, mute, source selection and speaker groups
//   - Amplifier EQ and volume-configuration controls
//   - Zone state history (SQLite) and telemetry (InfluxDB)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/api"
	"github.com/nuvoserial/nuvo-core/internal/bridge"
	"github.com/nuvoserial/nuvo-core/internal/controls"
	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/database"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/influxdb"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/mqtt"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Nuvo Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "zones", len(cfg.Zones), "sources", len(cfg.Sources))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and run migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// In-process event bus carries zone state, keypad and control events
	// between the managers and the MQTT/WebSocket surfaces.
	bus := eventbus.New(log)
	defer bus.Close()

	// Connect to the nuvo-serial driver service
	driver, err := nuvo.Connect(ctx, cfg.Amplifier.Driver, log)
	if err != nil {
		return fmt.Errorf("connecting to driver: %w", err)
	}
	defer func() {
		log.Info("disconnecting from driver")
		if closeErr := driver.Disconnect(); closeErr != nil {
			log.Error("error closing driver connection", "error", closeErr)
		}
	}()
	log.Info("driver connected",
		"address", fmt.Sprintf("%s:%d", cfg.Amplifier.Driver.Host, cfg.Amplifier.Driver.Port),
	)

	if fw, verErr := driver.GetVersion(ctx); verErr != nil {
		log.Warn("amplifier version query failed", "error", verErr)
	} else {
		log.Info("amplifier detected", "model", fw.Model, "firmware", fw.FirmwareVersion)
	}

	// The amplifier keeps its own clock for keypad displays.
	if timeErr := driver.ConfigureTime(ctx, time.Now()); timeErr != nil {
		log.Warn("amplifier clock sync failed", "error", timeErr)
	}

	// Zone manager owns per-zone state and speaker group coordination
	zones, err := zone.NewManager(cfg, driver, bus, log)
	if err != nil {
		return fmt.Errorf("creating zone manager: %w", err)
	}
	if err := zones.Start(ctx); err != nil {
		return fmt.Errorf("starting zone manager: %w", err)
	}
	defer func() {
		log.Info("stopping zone manager")
		zones.Close()
	}()
	log.Info("zone manager started", "zones", len(zones.Zones()))

	// Controls manager mirrors EQ, volume configuration and system switches
	ctrls := controls.NewManager(cfg, driver, bus, log)
	if err := ctrls.Start(ctx); err != nil {
		return fmt.Errorf("starting controls manager: %w", err)
	}
	defer func() {
		log.Info("stopping controls manager")
		ctrls.Close()
	}()
	log.Info("controls manager started")

	// Zone state history recorder (SQLite)
	historyRepo := zone.NewSQLiteHistoryRepository(db.DB)
	historyRecorder := zone.NewHistoryRecorder(historyRepo, cfg.History, log)
	historyRecorder.Start(bus)
	defer historyRecorder.Close()
	log.Info("state history recorder started", "retention_days", cfg.History.RetentionDays)

	// Telemetry to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		telemetry := zone.NewTelemetryRecorder(influxClient, log)
		telemetry.Start(bus)
		defer telemetry.Close()
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		br, brErr := bridge.New(bridge.Options{
			MQTT:     mqttClient,
			Zones:    zones,
			Controls: ctrls,
			Bus:      bus,
			Logger:   log,
		})
		if brErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", brErr)
		}
		if startErr := br.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			br.Close()
		}()
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT bridge disabled")
	}

	// HTTP API and WebSocket server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Zones:    zones,
		Controls: ctrls,
		History:  historyRepo,
		Bus:      bus,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, bridge,
	// MQTT, InfluxDB, recorders, managers, driver, bus, database.

	log.Info("Nuvo Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses NUVOCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NUVOCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
