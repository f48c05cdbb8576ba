package config

// Config holds all daemon configuration loaded from environment variables.
// Struct tags follow github.com/caarlos0/env conventions.
type Config struct {
	// Server configuration
	AdminPort   int    `env:"ADMIN_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8081"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"tolerance-monitor"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Monitoring
	PollIntervalMs    int    `env:"POLL_INTERVAL_MS" envDefault:"100"`
	SignalsPath       string `env:"SIGNALS_PATH" envDefault:"config/signals.yaml"`
	SimulationEnabled bool   `env:"SIMULATION_ENABLED" envDefault:"false"`

	// Redis value source
	RedisEnabled      bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// Notifications
	WebhookURL string `env:"WEBHOOK_URL"`

	// Telemetry
	OtelEnabled    bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ZipkinEndpoint string `env:"ZIPKIN_ENDPOINT" envDefault:"http://localhost:9411/api/v2/spans"`
}
