// SkyLink Core - launch monitor control service.
//
// skylink owns the connection to the launch monitor over an MQTT device
// link, arms the device for each shot, scores every captured shot and keeps
// the last accepted one. Plugins drive it over MQTT; operators use the HTTP
// API (and skylinkctl on top of it).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/skylink-core/internal/api"
	"github.com/nerrad567/skylink-core/internal/devicelink"
	"github.com/nerrad567/skylink-core/internal/infrastructure/config"
	"github.com/nerrad567/skylink-core/internal/infrastructure/database"
	"github.com/nerrad567/skylink-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/skylink-core/internal/infrastructure/logging"
	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylink-core/internal/monitor"
	"github.com/nerrad567/skylink-core/internal/relay"
	"github.com/nerrad567/skylink-core/internal/shotstore"
	"github.com/nerrad567/skylink-core/migrations"
)

// Set at build time via -ldflags "-X main.version=1.0.0 -X main.commit=abc123".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "skylink",
		Short:         "Launch monitor control service",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", getConfigPath(), "config file (env "+config.EnvPrefix+"CONFIG)")
	return cmd
}

// getConfigPath returns SKYLINK_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv(config.EnvPrefix + "CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run wires every component and blocks until ctx is cancelled.
// Deferred shutdown runs in reverse start order.
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting SkyLink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	confidence, err := monitor.ParseConfidenceMode(cfg.Monitor.ShotConfidence)
	if err != nil {
		return fmt.Errorf("monitor.shot_confidence: %w", err)
	}
	handedness, err := monitor.ParseHandedness(cfg.Monitor.DefaultHandedness)
	if err != nil {
		return fmt.Errorf("monitor.default_handedness: %w", err)
	}

	// Database
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
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	shots := shotstore.NewSQLiteRepository(db.DB)
	recorders := monitor.Recorders{shots}

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
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
		recorders = append(recorders, influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device link and monitor
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated 0..2
	linkTopics := mqtt.LinkTopics{Prefix: cfg.Link.TopicPrefix}
	link, err := devicelink.New(devicelink.Options{
		MQTT:           mqttClient,
		Topics:         linkTopics,
		CommandTimeout: cfg.Link.CommandTimeout,
		QoS:            qos,
		Logger:         log.With("component", "devicelink"),
	})
	if err != nil {
		return fmt.Errorf("creating device link: %w", err)
	}

	mon, err := monitor.New(monitor.Options{
		Link:                   link,
		Logger:                 log.With("component", "monitor"),
		Confidence:             confidence,
		RefreshAfterModeSwitch: cfg.Monitor.RefreshConnectionAfterModeSwitch,
		RefreshDelay:           cfg.Link.RefreshDelay,
		DefaultHandedness:      handedness,
		Store:                  shots,
		Recorder:               recorders,
	})
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}
	bus := mon.Bus()
	if influxClient != nil {
		for _, t := range bus.StatusTopics() {
			t.Subscribe(func(ev monitor.StatusChange) {
				influxClient.WriteStatusEvent(string(ev.Event), ev.Timestamp)
			})
		}
	}

	health := devicelink.NewHealthReporter(devicelink.HealthReporterConfig{
		Topic:     linkTopics.Health(),
		Interval:  cfg.Link.HealthInterval,
		Publisher: mqttClient,
		Stats:     link,
		Logger:    log.With("component", "devicelink-health"),
	})
	if pubErr := health.PublishStarting(); pubErr != nil {
		log.Warn("publishing starting health failed", "error", pubErr)
	}
	health.Start(ctx)
	defer health.Stop()

	// Plugin relay
	rel, err := relay.New(relay.Options{
		MQTT:       mqttClient,
		Controller: mon,
		QoS:        qos,
		Logger:     log.With("component", "relay"),
	})
	if err != nil {
		return fmt.Errorf("creating plugin relay: %w", err)
	}
	if startErr := rel.Start(bus); startErr != nil {
		return fmt.Errorf("starting plugin relay: %w", startErr)
	}
	defer func() {
		log.Info("stopping plugin relay")
		rel.Stop()
	}()

	// HTTP API
	checks := map[string]api.HealthCheckFunc{
		"database": db.HealthCheck,
		"mqtt":     mqttClient.HealthCheck,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient.HealthCheck
	}
	apiServer, err := api.New(api.Deps{
		Config:          cfg.API,
		WS:              cfg.WebSocket,
		Logger:          log.With("component", "api"),
		Monitor:         mon,
		Bus:             bus,
		Classifications: shots,
		Link:            link,
		MQTT:            mqttClient,
		DB:              db,
		HealthChecks:    checks,
		Version:         version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if loadErr := mon.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading monitor: %w", loadErr)
	}

	// Device signals flow only once every bus subscriber is attached.
	if startErr := link.Start(mon); startErr != nil {
		return fmt.Errorf("starting device link: %w", startErr)
	}
	defer func() {
		log.Info("stopping device link")
		link.Stop()
	}()

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck runs every probe and joins the failures.
func healthCheck(ctx context.Context, checks map[string]api.HealthCheckFunc) error {
	var errs []error
	for name, check := range checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
