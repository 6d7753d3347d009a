package app

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"chase-arena/netcode/internal/relay"
	"chase-arena/netcode/logging"
)

// Config is the relay binary's file/env configuration.
type Config struct {
	Addr    string        `mapstructure:"addr"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RelayConfig tunes the hub; zero values fall back to the relay defaults.
type RelayConfig struct {
	WriteTimeoutMillis  int `mapstructure:"write_timeout_ms"`
	ClientSilenceMillis int `mapstructure:"client_silence_ms"`
	SweepIntervalMillis int `mapstructure:"sweep_interval_ms"`
}

// LoggingConfig selects the structured sinks.
type LoggingConfig struct {
	Sinks    []string `mapstructure:"sinks"`
	JSONPath string   `mapstructure:"json_path"`
	UseColor bool     `mapstructure:"use_color"`
}

// LoadConfig reads config.yaml from the working directory, with ARENA_*
// environment variables taking precedence. A missing file is fine; the
// defaults stand.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("logging.sinks", []string{"console"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) relayConfig() relay.Config {
	return relay.Config{
		WriteTimeout:  time.Duration(cfg.Relay.WriteTimeoutMillis) * time.Millisecond,
		ClientSilence: time.Duration(cfg.Relay.ClientSilenceMillis) * time.Millisecond,
		SweepInterval: time.Duration(cfg.Relay.SweepIntervalMillis) * time.Millisecond,
	}.Normalized()
}

func (cfg Config) loggingConfig() logging.Config {
	logCfg := logging.DefaultConfig()
	if len(cfg.Logging.Sinks) > 0 {
		logCfg.EnabledSinks = cfg.Logging.Sinks
	}
	logCfg.JSON.FilePath = cfg.Logging.JSONPath
	logCfg.Console.UseColor = cfg.Logging.UseColor
	return logCfg
}
