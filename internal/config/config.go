package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const serviceName = "sorter-station-service"

// Config is the full service configuration
type Config struct {
	ServiceName string `yaml:"serviceName" validate:"required"`
	Environment string `yaml:"environment" validate:"required"`
	Version     string `yaml:"version"`
	ServerAddr  string `yaml:"serverAddr" validate:"required"`
	LogLevel    string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	Station  StationConfig  `yaml:"station"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	MongoDB  MongoDBConfig  `yaml:"mongodb"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// StationConfig tunes the sorting engine
type StationConfig struct {
	DefaultGridCount  int           `yaml:"defaultGridCount" validate:"min=1,max=999"`
	HistoryCapacity   int           `yaml:"historyCapacity" validate:"min=1"`
	AutoClearDelay    time.Duration `yaml:"autoClearDelay" validate:"min=0"`
	ForceSorterAccess bool          `yaml:"forceSorterAccess"`
}

// UpstreamConfig points at the warehouse system that owns the snapshot
type UpstreamConfig struct {
	BaseURL           string        `yaml:"baseUrl" validate:"required,url"`
	APIKey            string        `yaml:"apiKey"`
	CenterID          string        `yaml:"centerId"`
	SnapshotPath      string        `yaml:"snapshotPath" validate:"required,startswith=/"`
	ContainerPagePath string        `yaml:"containerPagePath" validate:"required,startswith=/"`
	FeedbackPath      string        `yaml:"feedbackPath" validate:"required,startswith=/"`
	ContainerPage     int           `yaml:"containerPage" validate:"min=1"`
	MaxContainerPage  int           `yaml:"maxContainerPageSize" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" validate:"min=1ms"`
}

// KafkaConfig configures domain event publishing
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers" validate:"required_if=Enabled true,dive,hostname_port"`
	Topic   string   `yaml:"topic" validate:"required_if=Enabled true"`
}

// MongoDBConfig configures the scan audit trail
type MongoDBConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URI        string `yaml:"uri" validate:"required_if=Enabled true"`
	Database   string `yaml:"database" validate:"required_if=Enabled true"`
	Collection string `yaml:"collection" validate:"required_if=Enabled true"`
	BufferSize int    `yaml:"bufferSize" validate:"min=1"`
	BatchSize  int    `yaml:"batchSize" validate:"min=1"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" validate:"required_if=Enabled true"`
	SampleRate   float64 `yaml:"sampleRate" validate:"min=0,max=1"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServiceName: serviceName,
		Environment: "development",
		Version:     "0.1.0",
		ServerAddr:  ":8030",
		LogLevel:    "info",
		Station: StationConfig{
			DefaultGridCount: 20,
			HistoryCapacity:  50,
			AutoClearDelay:   500 * time.Millisecond,
		},
		Upstream: UpstreamConfig{
			BaseURL:           "http://localhost:8080",
			SnapshotPath:      "/api/graphql/GetFCAssignOrderAssortingStation",
			ContainerPagePath: "/api/graphql/GetFcTotePageList",
			FeedbackPath:      "/api/sorter/v3.0",
			ContainerPage:     7,
			MaxContainerPage:  200,
			Timeout:           10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "wms.sorter-station.events",
		},
		MongoDB: MongoDBConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "sorter_station",
			Collection: "scan_audit",
			BufferSize: 1024,
			BatchSize:  50,
		},
		Tracing: TracingConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Version = getEnv("SERVICE_VERSION", c.Version)
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))

	var err error
	if c.Station.DefaultGridCount, err = getEnvInt("STATION_DEFAULT_GRID_COUNT", c.Station.DefaultGridCount); err != nil {
		return err
	}
	if c.Station.HistoryCapacity, err = getEnvInt("STATION_HISTORY_CAPACITY", c.Station.HistoryCapacity); err != nil {
		return err
	}
	if c.Station.AutoClearDelay, err = getEnvDuration("STATION_AUTO_CLEAR_DELAY", c.Station.AutoClearDelay); err != nil {
		return err
	}
	if c.Station.ForceSorterAccess, err = getEnvBool("STATION_FORCE_SORTER_ACCESS", c.Station.ForceSorterAccess); err != nil {
		return err
	}

	c.Upstream.BaseURL = getEnv("UPSTREAM_BASE_URL", c.Upstream.BaseURL)
	c.Upstream.APIKey = getEnv("UPSTREAM_API_KEY", c.Upstream.APIKey)
	c.Upstream.CenterID = getEnv("UPSTREAM_CENTER_ID", c.Upstream.CenterID)
	if c.Upstream.Timeout, err = getEnvDuration("UPSTREAM_TIMEOUT", c.Upstream.Timeout); err != nil {
		return err
	}

	if c.Kafka.Enabled, err = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled); err != nil {
		return err
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	if c.MongoDB.Enabled, err = getEnvBool("MONGODB_ENABLED", c.MongoDB.Enabled); err != nil {
		return err
	}
	c.MongoDB.URI = getEnv("MONGODB_URI", c.MongoDB.URI)
	c.MongoDB.Database = getEnv("MONGODB_DATABASE", c.MongoDB.Database)

	if c.Tracing.Enabled, err = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled); err != nil {
		return err
	}
	c.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
	if v := os.Getenv("TRACING_SAMPLE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACING_SAMPLE_RATE %q: %w", v, err)
		}
		c.Tracing.SampleRate = rate
	}
	return nil
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
