// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Crawler      CrawlerConfig      `mapstructure:"crawler"`
	Connectors   ConnectorsConfig   `mapstructure:"connectors"`
	Interference InterferenceConfig `mapstructure:"interference"`
	Flags        FlagsConfig        `mapstructure:"flags"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // seconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Search/Matching Core Config ---

// CrawlerConfig holds the fan-out aggregation knobs. All durations are in
// milliseconds, matching the environment variable contract.
type CrawlerConfig struct {
	TimeoutMS   int `mapstructure:"timeout_ms"`
	CacheTTLMS  int `mapstructure:"cache_ttl_ms"`
	Concurrency int `mapstructure:"concurrency"`
}

// ConnectorsConfig controls which data-source connectors the service wires in.
type ConnectorsConfig struct {
	CatalogPath string                    `mapstructure:"catalog_path"`
	Suppliers   map[string]SupplierConfig `mapstructure:"suppliers"`
}

// SupplierConfig describes one external mock-supplier HTTP source.
type SupplierConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// InterferenceConfig points at the external interference signal provider used
// by the flag-gated ranking adjustment.
type InterferenceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// FlagsConfig holds the feature-flag defaults and the global kill switch.
type FlagsConfig struct {
	SafeMode  bool            `mapstructure:"safe_mode"`
	Defaults  map[string]bool `mapstructure:"defaults"`
	KeyPrefix string          `mapstructure:"key_prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
