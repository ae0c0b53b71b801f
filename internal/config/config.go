package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewStockPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint  string
	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	SnowflakeNode int64

	Redis     RedisConfig
	Lock      LockConfig
	Events    EventsConfig
	UOW       UOWConfig
	RateLimit RateLimitConfig

	SchedulerEnabled bool
	SchedulerJobs    []string

	StockPolicyPath string
}

// ObservabilityConfig feeds the logger, tracer and meter providers.
type ObservabilityConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelProtocol  string
	SamplingRatio float64
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type LockConfig struct {
	// Backend is "local" or "redis".
	Backend string
	TTL     time.Duration
	Retries int
}

type EventsConfig struct {
	// Publisher is "log", "redis" or "pubsub". Dispatched rows older than
	// Retention are purged by the scheduler.
	Publisher       string
	RedisChannel    string
	PubSubProjectID string
	PubSubTopic     string
	PubSubCredJSON  string
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	Retention       time.Duration
}

// RateLimitConfig throttles bulk endpoints per actor and needs Redis.
// BulkLockTTL bounds how long one actor may hold its bulk slot.
type RateLimitConfig struct {
	Enabled     bool
	BulkRate    float64
	BulkBurst   int
	BulkLockTTL time.Duration
}

type UOWConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	otlpProtocol := strings.ToLower(firstNonEmpty(
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"),
		os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"),
		"grpc",
	))

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "coretrack"),
		AppVersion:        firstNonEmpty(os.Getenv("SERVICE_VERSION"), getenv("APP_VERSION", "0.1.0")),
		Environment:       firstNonEmpty(os.Getenv("DEPLOYMENT_ENV"), getenv("ENVIRONMENT", "development")),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      firstNonEmpty(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), getenv("OTLP_ENDPOINT", "localhost:4317")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "coretrack"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 300),
		DBAutoMigrate:     getenvBool("DB_AUTO_MIGRATE", true),
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),
		Observability: ObservabilityConfig{
			LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
			LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "json")),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelProtocol:  otlpProtocol,
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Address:  strings.TrimSpace(getenv("REDIS_ADDRESS", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Lock: LockConfig{
			Backend: strings.ToLower(getenv("LOCK_BACKEND", LockBackendLocal)),
			TTL:     getenvDuration("LOCK_TTL", 30*time.Second),
			Retries: getenvInt("LOCK_RETRIES", 100),
		},
		Events: EventsConfig{
			Publisher:       strings.ToLower(getenv("EVENTS_PUBLISHER", PublisherLog)),
			RedisChannel:    getenv("EVENTS_REDIS_CHANNEL", "coretrack.ticket.events"),
			PubSubProjectID: firstNonEmpty(os.Getenv("PUBSUB_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT")),
			PubSubTopic:     getenv("PUBSUB_TOPIC", "coretrack-ticket-events"),
			PubSubCredJSON:  os.Getenv("PUBSUB_CREDENTIALS_JSON"),
			PollInterval:    getenvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:       getenvInt("OUTBOX_BATCH_SIZE", 100),
			MaxAttempts:     getenvInt("OUTBOX_MAX_ATTEMPTS", 10),
			Retention:       getenvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		},
		UOW: UOWConfig{
			MaxAttempts:     getenvInt("UOW_MAX_ATTEMPTS", 5),
			InitialInterval: getenvDuration("UOW_INITIAL_INTERVAL", 20*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			BulkRate:    getenvFloat("RATE_LIMIT_BULK_RATE", 1),
			BulkBurst:   getenvInt("RATE_LIMIT_BULK_BURST", 5),
			BulkLockTTL: getenvDuration("RATE_LIMIT_BULK_LOCK_TTL", 2*time.Minute),
		},
		SchedulerEnabled: getenvBool("SCHEDULER_ENABLED", true),
		SchedulerJobs:    splitList(os.Getenv("SCHEDULER_JOBS")),
		StockPolicyPath:  strings.TrimSpace(getenv("STOCK_POLICY_PATH", "")),
	}

	return cfg
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"

	PublisherLog    = "log"
	PublisherRedis  = "redis"
	PublisherPubSub = "pubsub"
)

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
