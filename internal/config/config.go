package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CRAFT"

// Config holds application configuration.
type Config struct {
	Env      string         `mapstructure:"env" validate:"oneof=development test production"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Market   MarketConfig   `mapstructure:"market"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Crafting CraftingConfig `mapstructure:"crafting"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	// AdminToken protects the admin endpoints. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path           string `mapstructure:"path" validate:"required"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// MarketConfig configures the market data client.
type MarketConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	Locations         []string      `mapstructure:"locations" validate:"min=1,dive,required"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"min=1"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" validate:"gt=0"`
	BatchSize         int           `mapstructure:"batch_size" validate:"min=1,max=300"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

// CatalogConfig configures the item catalog source.
type CatalogConfig struct {
	DumpURL     string        `mapstructure:"dump_url" validate:"required,url"`
	IconBaseURL string        `mapstructure:"icon_base_url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// CraftingConfig tunes the crafting service.
type CraftingConfig struct {
	RankConcurrency int `mapstructure:"rank_concurrency" validate:"min=1,max=64"`
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "development"
}

// Load reads configuration with priority env > config file > defaults.
// configPath may be empty to search for config.yaml in the usual places.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// legacy variables
	if err := v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind port env: %w", err)
	}
	if err := v.BindEnv("database.path", envPrefix+"_DATABASE_PATH", "DB_PATH"); err != nil {
		return nil, fmt.Errorf("bind db path env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
