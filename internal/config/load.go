package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKPULSE_SERVER_PORT.
const EnvPrefix = "TASKPULSE"

// keys lists every configuration key so environment variables are honored
// even when no config file mentions them.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.allowed_origins",
	"database.url",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"scheduler.check_interval",
	"scheduler.timezone",
	"scheduler.workers",
	"dispatch.channel_timeout",
	"bus.url",
	"bus.exchange",
	"email.smtp_host",
	"email.smtp_port",
	"email.username",
	"email.password",
	"email.from_address",
	"email.from_name",
	"email.frontend_url",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("scheduler.check_interval", time.Hour)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("dispatch.channel_timeout", 5*time.Second)
	v.SetDefault("bus.exchange", "task_notifications")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_name", "Taskpulse")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("config validation failed: unknown scheduler.timezone %q: %w",
			cfg.Scheduler.Timezone, err)
	}
	return nil
}
