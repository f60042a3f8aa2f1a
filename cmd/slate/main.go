// Slate Core - Classroom Tablet Management
//
// This is the main entry point for the Slate Core application. Slate
// manages shared classroom tablets against a remote MDM/directory
// service:
//   - Idempotent directory provisioning (classes, teacher accounts, groups)
//   - Weekly per-student schedules resolved into app restrictions
//   - Batched lock/unlock/restart/assign actions with partial-success reporting
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/slatedesk/slate-core/migrations"

	"github.com/slatedesk/slate-core/internal/action"
	"github.com/slatedesk/slate-core/internal/api"
	"github.com/slatedesk/slate-core/internal/audit"
	"github.com/slatedesk/slate-core/internal/directory"
	"github.com/slatedesk/slate-core/internal/events"
	"github.com/slatedesk/slate-core/internal/infrastructure/config"
	"github.com/slatedesk/slate-core/internal/infrastructure/database"
	"github.com/slatedesk/slate-core/internal/infrastructure/influxdb"
	"github.com/slatedesk/slate-core/internal/infrastructure/logging"
	"github.com/slatedesk/slate-core/internal/infrastructure/mqtt"
	"github.com/slatedesk/slate-core/internal/provision"
	"github.com/slatedesk/slate-core/internal/schedule"
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
	log.Info("starting Slate Core",
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
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Directory client for the remote MDM service
	dirClient := directory.New(cfg.Directory)
	log.Info("directory client initialised", "base_url", cfg.Directory.BaseURL)

	// Schedule planner over the local profile store
	scheduleRepo := schedule.NewSQLiteRepository(db.DB)
	planner := schedule.NewPlanner(scheduleRepo, schedule.SettingsFromConfig(cfg.Timeslots))
	planner.SetLogger(log)
	if refreshErr := planner.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading schedule profiles: %w", refreshErr)
	}
	log.Info("schedule planner initialised")

	// Provisioning index and orchestrator
	index := provision.NewIndex()
	orchestrator := provision.NewOrchestrator(dirClient, index, cfg.Provision, cfg.School.ID)
	orchestrator.SetLogger(log)

	// Batch action executor
	executor := action.NewExecutor(dirClient, index, cfg.Actions.Workers)
	executor.SetLogger(log)

	// Audit trail
	auditRepo := audit.NewSQLiteRepository(db.DB)
	trail := audit.NewTrail(auditRepo, log.Logger)
	executor.SetRecorder(trail)

	// Connect to MQTT broker (optional: event mirroring for wall displays)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional: bootstrap/action/battery telemetry)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		orchestrator.SetMetrics(bootstrapMetrics{influxClient})
		executor.SetMetrics(actionMetrics{influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server
	deps := api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Company:      cfg.School.ID,
		Logger:       log,
		Directory:    dirClient,
		Planner:      planner,
		Orchestrator: orchestrator,
		Index:        index,
		Executor:     executor,
		Audit:        auditRepo,
		Trail:        trail,
		MQTT:         mqttClient,
		Version:      version,
	}
	if influxClient != nil {
		deps.Battery = influxClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Fan domain events out to WebSocket clients and, when MQTT is up,
	// mirror them for classroom wall displays.
	fanout := events.Fanout{server.Hub()}
	if mqttClient != nil {
		fanout = append(fanout, events.NewMirror(mqttClient, byte(cfg.MQTT.QoS), log.Logger))
	}
	planner.SetBroadcaster(fanout)
	executor.SetBroadcaster(fanout)

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Bootstrap the directory in the background so a slow or unreachable
	// MDM does not block startup. The API can re-trigger it on demand.
	go func() {
		bootCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, bootErr := orchestrator.Bootstrap(bootCtx); bootErr != nil {
			log.Warn("startup bootstrap failed; re-run via POST /api/v1/bootstrap", "error", bootErr)
			return
		}
		classGroups, _, _, _ := index.Snapshot()
		trail.RecordBootstrap(context.Background(), true, len(classGroups))
		log.Info("startup bootstrap complete", "locations", len(classGroups))
	}()

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Slate Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SLATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SLATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// bootstrapMetrics adapts the InfluxDB client to the provisioning
// orchestrator's Metrics interface.
type bootstrapMetrics struct {
	client *influxdb.Client
}

func (m bootstrapMetrics) RecordBootstrap(success bool, duration time.Duration, locations int) {
	m.client.WriteBootstrapMetric(success, duration, locations)
}

// actionMetrics adapts the InfluxDB client to the batch executor's
// Metrics interface.
type actionMetrics struct {
	client *influxdb.Client
}

func (m actionMetrics) RecordAction(actionName string, success, failed int, duration time.Duration) {
	m.client.WriteActionMetric(actionName, success, failed, duration)
}
