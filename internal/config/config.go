// Package config defines all configuration for the clob engine. Config is
// loaded from a YAML file (default: configs/config.yaml) with overrides
// from CLOBD_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig controls the journal and the request queue the engine loop
// reads from.
type EngineConfig struct {
	DBPath          string `mapstructure:"db_path"`
	ChannelCapacity int    `mapstructure:"channel_capacity"`
}

// HTTPConfig controls the HTTP edge.
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig controls zerolog's global level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with CLOBD_* environment overrides,
// e.g. CLOBD_HTTP_LISTEN_ADDR overrides http.listen_addr.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CLOBD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("engine.db_path", "clobd.db")
	v.SetDefault("engine.channel_capacity", 128)
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Engine.DBPath == "" {
		return fmt.Errorf("engine.db_path is required")
	}
	if c.Engine.ChannelCapacity <= 0 {
		return fmt.Errorf("engine.channel_capacity must be > 0")
	}
	if c.HTTP.ListenAddr == "" {
		return fmt.Errorf("http.listen_addr is required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	return nil
}
