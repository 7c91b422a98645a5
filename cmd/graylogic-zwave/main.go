// Gray Logic Z-Wave - Z-Wave controller boundary for Gray Logic
//
// This is the main entry point of the Z-Wave daemon. It brings the controller
// engine up behind the ozw manager, bridges it to MQTT, records value history
// in SQLite and serves the HTTP/WebSocket API.
//
// For the MQTT topic layout, see internal/bridges/zwave/doc.go.
// For the HTTP routes, see internal/api/doc.go.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-zwave/internal/api"
	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/history"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw/simulator"
	"github.com/nerrad567/gray-logic-zwave/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// pruneInterval is how often expired value history is deleted.
	pruneInterval = time.Hour

	// healthCheckTimeout bounds the startup health checks.
	healthCheckTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Z-Wave",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	if !cfg.ZWave.Enabled {
		log.Info("Z-Wave disabled, waiting for shutdown signal")
		<-ctx.Done()
		return nil
	}

	manager, err := startManager(cfg.ZWave, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("destroying z-wave manager")
		if destroyErr := manager.Destroy(); destroyErr != nil {
			log.Error("error destroying z-wave manager", "error", destroyErr)
		}
	}()

	var repo *history.SQLiteRepository
	if cfg.ZWave.History.Enabled {
		repo = history.NewSQLiteRepository(db.DB)
		log.Info("value history enabled", "retention_days", cfg.ZWave.History.RetentionDays)
	}

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	bridge, err := startBridge(ctx, cfg.ZWave, manager, mqttClient, byte(cfg.MQTT.QoS), repo, influxClient, log)
	if err != nil {
		return fmt.Errorf("starting Z-Wave bridge: %w", err)
	}
	defer func() {
		log.Info("stopping Z-Wave bridge")
		bridge.Stop()
	}()
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		if pubErr := bridge.Health().PublishNow(); pubErr != nil {
			log.Warn("failed to republish health after reconnect", "error", pubErr)
		}
	})

	// Drivers come up after the bridge is watching, so it sees DriverReady.
	for _, d := range cfg.ZWave.Drivers {
		addDriver(manager, d, log)
	}

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Manager: manager,
		Bridge:  bridge,
		Version: version,
	}
	if repo != nil {
		deps.History = repo
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	g, gctx := errgroup.WithContext(ctx)
	if repo != nil && cfg.ZWave.History.RetentionDays > 0 {
		g.Go(func() error {
			pruneHistory(gctx, repo, cfg.ZWave.GetRetention(), log)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, bridge, MQTT, manager,
	// InfluxDB, database.
	log.Info("Gray Logic Z-Wave stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startManager builds the configured engine and the manager in front of it.
//
// Parameters:
//   - cfg: Z-Wave configuration
//   - log: Logger instance
//
// Returns:
//   - *ozw.Manager: Live manager with no drivers added yet
//   - error: If the engine cannot be built or a manager is already live
func startManager(cfg config.ZWaveConfig, log *logging.Logger) (*ozw.Manager, error) {
	if cfg.Engine != config.EngineSimulator {
		return nil, fmt.Errorf("unsupported z-wave engine %q", cfg.Engine)
	}

	network, err := simulator.LoadNetwork(cfg.NetworkFile)
	if err != nil {
		return nil, fmt.Errorf("loading z-wave network: %w", err)
	}
	log.Info("z-wave network loaded", "path", cfg.NetworkFile, "homes", len(network.Homes))

	engine, err := simulator.New(simulator.Options{
		Network:         network,
		PollInterval:    cfg.GetPollInterval(),
		PollBetweenEach: cfg.PollBetweenEach,
		Logger:          log.Component("simulator"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating z-wave engine: %w", err)
	}

	manager, err := ozw.Create(ozw.Options{
		Engine: engine,
		Logger: log.Component("ozw"),
	})
	if err != nil {
		//nolint:errcheck // The engine never started a driver
		engine.Close()
		return nil, fmt.Errorf("creating z-wave manager: %w", err)
	}
	return manager, nil
}

// addDriver brings one configured controller online. A controller that
// fails to start is logged and skipped so the others still come up.
func addDriver(manager *ozw.Manager, d config.ZWaveDriverConfig, log *logging.Logger) {
	var iface ozw.ControllerInterface
	if err := iface.UnmarshalText([]byte(d.Interface)); err != nil {
		log.Error("invalid controller interface", "path", d.Path, "error", err)
		return
	}
	if !manager.AddDriver(d.Path, iface) {
		log.Error("failed to add z-wave driver", "path", d.Path)
		return
	}
	log.Info("z-wave driver added", "path", d.Path, "interface", iface.String())
}

// connectMQTT connects to the broker with the bridge's offline health
// message registered as the will.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	willPayload, err := json.Marshal(zwave.NewLWTMessage(cfg.ZWave.Bridge.ID))
	if err != nil {
		return nil, fmt.Errorf("encoding MQTT will: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
		Topic:   zwave.HealthTopic(),
		Payload: willPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// startBridge creates and starts the Z-Wave MQTT bridge.
//
// Parameters:
//   - ctx: Context for the bridge's background work
//   - cfg: Z-Wave configuration
//   - manager: Live manager the bridge watches
//   - mqttClient: Connected MQTT client
//   - maxQoS: Configured mqtt.qos, capping the bridge's QoS
//   - repo: Value history (nil when disabled)
//   - influxClient: Metric writer (nil when disabled)
//   - log: Logger instance
//
// Returns:
//   - *zwave.Bridge: Running bridge
//   - error: If the bridge fails to start
func startBridge(
	ctx context.Context,
	cfg config.ZWaveConfig,
	manager *ozw.Manager,
	mqttClient *mqtt.Client,
	maxQoS byte,
	repo *history.SQLiteRepository,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*zwave.Bridge, error) {
	opts := zwave.BridgeOptions{
		ID:             cfg.Bridge.ID,
		Version:        version,
		HealthInterval: cfg.GetHealthInterval(),
		QueueSize:      cfg.Bridge.QueueSize,
		Manager:        manager,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient, maxQoS: maxQoS},
		Logger:         log.Component("zwave-bridge"),
	}
	// Typed nils must not reach the optional interfaces.
	if repo != nil {
		opts.History = repo
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	bridge, err := zwave.NewBridge(opts)
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		bridge.Stop()
		return nil, err
	}
	log.Info("Z-Wave bridge started", "bridge_id", bridge.ID())
	return bridge, nil
}

// healthCheck verifies all infrastructure connections are healthy. The
// checks run concurrently; the first failure is returned.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - apiServer: Started API server
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := db.HealthCheck(gctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := mqttClient.HealthCheck(gctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		return nil
	})
	if influxClient != nil {
		g.Go(func() error {
			if err := influxClient.HealthCheck(gctx); err != nil {
				return fmt.Errorf("influxdb: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := apiServer.HealthCheck(gctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// pruneHistory deletes readings older than retention once at startup and
// then every pruneInterval until ctx is cancelled.
func pruneHistory(ctx context.Context, repo history.Repository, retention time.Duration, log *logging.Logger) {
	prune := func() {
		deleted, err := repo.PruneHistory(ctx, retention)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			log.Error("pruning value history failed", "error", err)
		case deleted > 0:
			log.Info("pruned value history", "deleted", deleted, "retention", retention.String())
		}
	}

	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The bridge's handlers return nothing, and the
// configured mqtt.qos caps the QoS the bridge asks for.
type mqttBridgeAdapter struct {
	client *mqtt.Client
	maxQoS byte
}

// Publish implements zwave.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, min(qos, a.maxQoS), retained)
}

// Subscribe implements zwave.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, min(qos, a.maxQoS), func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements zwave.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
