// Package config loads runtime configuration from ODINKV_-prefixed
// environment variables and an optional YAML file, following
// go-server-3/internal/config/config.go's viper-defaults idiom.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	ShardCount int `mapstructure:"shard_count"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// BridgeSubject maps one NATS subject onto one local broadcaster topic.
type BridgeSubject struct {
	Subject string `mapstructure:"subject"`
	Topic   string `mapstructure:"topic"`
}

type BridgeConfig struct {
	NATSURL  string          `mapstructure:"nats_url"`
	Subjects []BridgeSubject `mapstructure:"subjects"`
}

// Load reads configuration from ODINKV_* environment variables, an
// optional odinkv.yaml in "." or "./config", and built-in defaults.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9527)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("storage.shard_count", 64)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9528")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("bridge.nats_url", "")
	v.SetDefault("bridge.subjects", []map[string]string{})

	v.SetConfigName("odinkv")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("ODINKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Storage.ShardCount <= 0 {
		cfg.Storage.ShardCount = 64
	}

	return cfg, nil
}

// BridgeEnabled reports whether the NATS fan-in bridge should start: it is
// disabled by default and requires both a URL and at least one subject.
func (c Config) BridgeEnabled() bool {
	return c.Bridge.NATSURL != "" && len(c.Bridge.Subjects) > 0
}
