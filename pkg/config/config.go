package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for warehouse-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8440"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// WWWRoot is the deployment's public base URL. Substituted for the
	// %%WWWROOT%% token in exported cell values.
	WWWRoot string `yaml:"wwwroot" env:"WWWROOT" env-default:"https://localhost:8440"`

	// Database is the engine's own metadata store (queries, backends, files).
	Database DatabaseConfig `yaml:"database"`

	// Warehouse is the relational datasource export queries run against.
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Export tuning.
	Export ExportConfig `yaml:"export"`
}

// DatabaseConfig holds PostgreSQL configuration for the engine database.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"warehouse"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"warehouse_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL builds a connection URL for pgx and golang-migrate.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// WarehouseConfig holds the export datasource connection options.
// Type selects the adapter: "postgres" or "mssql".
type WarehouseConfig struct {
	Type     string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"postgres"`
	Host     string `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"WAREHOUSE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"WAREHOUSE_USER" env-default:"warehouse_ro"`
	Password string `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"WAREHOUSE_DATABASE" env-default:"warehouse"`
	SSLMode  string `yaml:"ssl_mode" env:"WAREHOUSE_SSLMODE" env-default:"disable"`

	// TablePrefix replaces the literal "prefix_" marker in stored SQL.
	TablePrefix string `yaml:"table_prefix" env:"WAREHOUSE_TABLE_PREFIX" env-default:""`
}

// ExportConfig holds limits and timeouts for export runs.
type ExportConfig struct {
	// RowLimit caps the number of data rows written per export.
	RowLimit int `yaml:"row_limit" env:"EXPORT_ROW_LIMIT" env-default:"5000"`

	// QueryTimeout bounds warehouse query execution.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"EXPORT_QUERY_TIMEOUT" env-default:"2m"`

	// DeliveryTimeout bounds the HTTP upload to a backend.
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" env:"EXPORT_DELIVERY_TIMEOUT" env-default:"1m"`
}

// Load reads configuration from config.yaml (if present) and environment.
func Load(version string) (*Config, error) {
	cfg := &Config{}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants that cleanenv defaults cannot express.
func (c *Config) Validate() error {
	switch c.Warehouse.Type {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported warehouse type %q (expected postgres or mssql)", c.Warehouse.Type)
	}

	if c.Export.RowLimit <= 0 {
		return fmt.Errorf("export row limit must be positive, got %d", c.Export.RowLimit)
	}

	if !strings.HasPrefix(c.WWWRoot, "http://") && !strings.HasPrefix(c.WWWRoot, "https://") {
		return fmt.Errorf("wwwroot must be an absolute http(s) URL, got %q", c.WWWRoot)
	}

	return nil
}
