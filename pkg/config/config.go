package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP/websocket gateway.
type ServerConfig struct {
	Host string `json:"host" env:"SERVER_HOST"`
	Port int    `json:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls persistence.
type DatabaseConfig struct {
	Driver          string `json:"driver" env:"DATABASE_DRIVER"`
	DSN             string `json:"dsn" env:"DATABASE_DSN"`
	Host            string `json:"host" env:"DATABASE_HOST"`
	Port            int    `json:"port" env:"DATABASE_PORT"`
	User            string `json:"user" env:"DATABASE_USER"`
	Password        string `json:"password" env:"DATABASE_PASSWORD"`
	Name            string `json:"name" env:"DATABASE_NAME"`
	SSLMode         string `json:"sslmode" env:"DATABASE_SSLMODE"`
	MaxOpenConns    int    `json:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool   `json:"migrate_on_start" yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// EngineConfig controls the flow execution engine and scenario execution
// service's defaults.
type EngineConfig struct {
	// MaxExecutionTimeSeconds holds a default bound for a single flow or
	// scenario run. No package reads it; cmd/gateway passes on only the
	// subscribe limits below.
	MaxExecutionTimeSeconds int `json:"max_execution_time_seconds" yaml:"max_execution_time_seconds" env:"ENGINE_MAX_EXECUTION_TIME_SECONDS"`
	// ContinueOnFailureDefault holds a default for scenario steps that omit
	// continueOnFailure. No package reads it.
	ContinueOnFailureDefault bool `json:"continue_on_failure_default" env:"ENGINE_CONTINUE_ON_FAILURE_DEFAULT"`
	// SubscribeRequestsPerSecond and SubscribeBurst size the per-connection
	// token bucket guarding websocket subscribe/unsubscribe floods.
	SubscribeRequestsPerSecond float64 `json:"subscribe_requests_per_second" env:"ENGINE_SUBSCRIBE_REQUESTS_PER_SECOND"`
	SubscribeBurst             int     `json:"subscribe_burst" env:"ENGINE_SUBSCRIBE_BURST"`
}

// MaxExecutionTime returns MaxExecutionTimeSeconds as a time.Duration.
func (e EngineConfig) MaxExecutionTime() time.Duration {
	return time.Duration(e.MaxExecutionTimeSeconds) * time.Second
}

// TracingConfig configures OTLP/Tracing exporters.
type TracingConfig struct {
	Endpoint           string            `json:"endpoint" env:"TRACING_OTLP_ENDPOINT"`
	Insecure           bool              `json:"insecure" env:"TRACING_OTLP_INSECURE"`
	ServiceName        string            `json:"service_name" env:"TRACING_SERVICE_NAME"`
	ResourceAttributes map[string]string `json:"resource_attributes" mapstructure:"resource_attributes"`
	AttributesEnv      string            `json:"-" yaml:"-" env:"TRACING_OTLP_ATTRIBUTES"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Engine   EngineConfig   `json:"engine"`
	Tracing  TracingConfig  `json:"tracing"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrateOnStart:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "scenarioflow",
		},
		Engine: EngineConfig{
			MaxExecutionTimeSeconds:    120,
			ContinueOnFailureDefault:   false,
			SubscribeRequestsPerSecond: 20,
			SubscribeBurst:             40,
		},
		Tracing: TracingConfig{},
	}
}

// ConnectionString builds a PostgreSQL connection string using host parameters.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	applyDatabaseURLOverride(cfg)
	cfg.normalize()

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	applyDatabaseURLOverride(cfg)
	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return nil
}

// LoadConfig is a helper used by tests to load JSON config snippets.
func LoadConfig(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDatabaseURLOverride(cfg)
	cfg.normalize()
	return cfg, nil
}

// applyDatabaseURLOverride lets DATABASE_URL override any file-based DSN to
// reduce setup friction in container environments.
func applyDatabaseURLOverride(cfg *Config) {
	if cfg == nil {
		return
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
	}
}

func (t *TracingConfig) normalize() {
	if t == nil {
		return
	}
	t.MergeAttributes(t.AttributesEnv)
}

// MergeAttributes merges comma-separated key=value pairs into ResourceAttributes.
func (t *TracingConfig) MergeAttributes(raw string) {
	if t == nil {
		return
	}
	pairs := parseAttributePairs(raw)
	if len(pairs) == 0 {
		return
	}
	if t.ResourceAttributes == nil {
		t.ResourceAttributes = make(map[string]string, len(pairs))
	}
	for k, v := range pairs {
		if k == "" {
			continue
		}
		t.ResourceAttributes[k] = v
	}
}

func parseAttributePairs(raw string) map[string]string {
	result := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		val := ""
		if len(kv) > 1 {
			val = strings.TrimSpace(kv[1])
		}
		result[key] = val
	}
	return result
}

func (c *Config) normalize() {
	if c == nil {
		return
	}
	c.Tracing.normalize()
}
