package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/edgewatch/tolerance-monitor/internal/bootstrap"
	"github.com/edgewatch/tolerance-monitor/internal/config"
	"github.com/edgewatch/tolerance-monitor/internal/server"
	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
	"github.com/edgewatch/tolerance-monitor/pkg/notify"
	"github.com/edgewatch/tolerance-monitor/pkg/source"
)

// App holds all daemon dependencies and manages the application lifecycle.
type App struct {
	cfg *config.Config

	mon           *monitor.Monitor
	adminServer   *server.AdminServer
	metricsServer *server.MetricsServer
	redisClient   *redis.Client
	simulation    *bootstrap.Simulation

	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance. Components are
// initialized in dependency order: redis, monitor, notifiers, signal
// bootstrap, servers, telemetry.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	var redisSrc *source.Redis
	if cfg.RedisEnabled {
		if err := app.initRedis(ctx); err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		redisSrc = source.NewRedis(app.redisClient, source.RedisConfig{})
	}

	metrics := monitor.NewMetrics()
	app.mon = monitor.New(monitor.WithMetrics(metrics))

	notifier := app.buildNotifier()

	signalsConfig, err := bootstrap.LoadSignals(cfg.SignalsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals config from %s: %w", cfg.SignalsPath, err)
	}
	logrus.Infof("loaded %d signal definitions from %s", len(signalsConfig.Signals), cfg.SignalsPath)

	sources := &bootstrap.Sources{Redis: redisSrc}
	if err := bootstrap.RegisterSignals(app.mon, signalsConfig, sources, notifier); err != nil {
		return nil, fmt.Errorf("failed to register signals: %w", err)
	}

	if cfg.SimulationEnabled {
		app.simulation = bootstrap.NewSimulation(sources.Simulated)
		logrus.Info("sensor simulation enabled")
	}

	app.adminServer = server.NewAdminServer(
		cfg.AdminPort,
		strings.Split(cfg.CORSOrigins, ","),
		app.mon,
		redisSrc,
		notifier,
	)
	if err := app.adminServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup admin server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics", metrics)
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.ServiceName, cfg.Environment, cfg.ZipkinEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")
	return app, nil
}

// buildNotifier assembles the daemon's notifier chain: the structured log
// notifier always, the webhook notifier when a URL is configured.
func (a *App) buildNotifier() notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLog()}

	if a.cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(notify.WebhookConfig{URL: a.cfg.WebhookURL}))
		logrus.Info("webhook notifications enabled")
	}

	return notify.NewMulti(notifiers...)
}

// initRedis initializes the Redis client, retrying the initial ping with
// exponential backoff.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(a.cfg.RedisRetryDelayMs) * time.Millisecond

	err := backoff.Retry(
		func() error {
			if _, err := client.Ping(ctx).Result(); err != nil {
				logrus.Warnf("redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries)),
	)
	if err != nil {
		return err
	}

	a.redisClient = client
	logrus.Info("redis client initialized")
	return nil
}
