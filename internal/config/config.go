package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTPPort    string
	GRPCPort    string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Analytics   AnalyticsConfig
}

type HTTPConfig struct {
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	HealthInterval  time.Duration
}

type PostgresConfig struct {
	Host            string
	Port            string
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
	ScanTable       string
	InitSchema      bool
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	Topic            string
	ConsumerGroup    string
	ProducerRetries  int
	ProducerTimeout  time.Duration
	RequiredAcks     int
	CompressionType  string
	MaxMessageBytes  int
	IdempotentWrites bool
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AnalyticsConfig bounds the reads the dashboard views issue against the
// scan table.
type AnalyticsConfig struct {
	SummarySampleLimit    int
	CategorySampleLimit   int
	TimeSeriesSampleLimit int
	MaxWindowDays         int
	DefaultWindowDays     int
	RecentDefaultLimit    int
	RecentMaxLimit        int
	CacheTTL              time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPPort:    getEnv("HTTP_PORT", "5000"),
		GRPCPort:    getEnv("GRPC_HEALTH_PORT", "50051"),
	}

	cfg.HTTP = HTTPConfig{
		AllowedOrigins:  strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
		RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HealthInterval:  getEnvAsDuration("HEALTH_CHECK_INTERVAL", 15*time.Second),
	}

	cfg.Postgres = PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            getEnv("POSTGRES_PORT", "5432"),
		Database:        getEnv("POSTGRES_DB", "scans"),
		Username:        getEnv("POSTGRES_USER", "admin"),
		Password:        getEnv("POSTGRES_PASSWORD", "password"),
		MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
		ScanTable:       getEnv("SCAN_TABLE", "scans"),
		InitSchema:      getEnvAsBool("POSTGRES_INIT_SCHEMA", true),
	}

	brokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	topic := getEnv("KAFKA_TOPIC_SCANS", "scan.logged")
	cfg.Kafka = KafkaConfig{
		Enabled:          getEnvAsBool("KAFKA_ENABLED", true),
		Brokers:          strings.Split(brokers, ","),
		Topic:            topic,
		ConsumerGroup:    getEnv("KAFKA_CONSUMER_GROUP", topic+"-cache-invalidator"),
		ProducerRetries:  getEnvAsInt("KAFKA_PRODUCER_RETRIES", 3),
		ProducerTimeout:  getEnvAsDuration("KAFKA_PRODUCER_TIMEOUT", 10*time.Second),
		RequiredAcks:     getEnvAsInt("KAFKA_REQUIRED_ACKS", -1), // -1 = all in-sync replicas
		CompressionType:  getEnv("KAFKA_COMPRESSION", "snappy"),
		IdempotentWrites: getEnvAsBool("KAFKA_IDEMPOTENT", true),
		MaxMessageBytes:  getEnvAsInt("KAFKA_MAX_MESSAGE_BYTES", 1000000),
	}

	cfg.Redis = RedisConfig{
		Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
		PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
	}

	cfg.Analytics = AnalyticsConfig{
		SummarySampleLimit:    getEnvAsInt("SUMMARY_SAMPLE_LIMIT", 1000),
		CategorySampleLimit:   getEnvAsInt("CATEGORY_SAMPLE_LIMIT", 5000),
		TimeSeriesSampleLimit: getEnvAsInt("TIMESERIES_SAMPLE_LIMIT", 10000),
		MaxWindowDays:         getEnvAsInt("TIMESERIES_MAX_DAYS", 365),
		DefaultWindowDays:     getEnvAsInt("TIMESERIES_DEFAULT_DAYS", 30),
		RecentDefaultLimit:    getEnvAsInt("RECENT_DEFAULT_LIMIT", 20),
		RecentMaxLimit:        getEnvAsInt("RECENT_MAX_LIMIT", 1000),
		CacheTTL:              getEnvAsDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	a := c.Analytics
	if a.SummarySampleLimit <= 0 || a.CategorySampleLimit <= 0 || a.TimeSeriesSampleLimit <= 0 {
		return fmt.Errorf("sample limits must be positive")
	}
	if a.MaxWindowDays <= 0 {
		return fmt.Errorf("TIMESERIES_MAX_DAYS must be positive, got %d", a.MaxWindowDays)
	}
	if a.RecentMaxLimit <= 0 {
		return fmt.Errorf("RECENT_MAX_LIMIT must be positive, got %d", a.RecentMaxLimit)
	}
	if c.HTTP.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL must be positive, got %s", c.HTTP.HealthInterval)
	}
	if c.Postgres.ScanTable == "" {
		return fmt.Errorf("SCAN_TABLE must not be empty")
	}
	return nil
}

func (c *PostgresConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
