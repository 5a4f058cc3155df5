package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch" validate:"required"`
	Bus       BusConfig       `mapstructure:"bus"`
	Email     EmailConfig     `mapstructure:"email"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// AllowedOrigins is the CORS allow list; "*" admits any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL runs the engine on the in-memory store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// SchedulerConfig controls the periodic reminder check.
type SchedulerConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval" validate:"required,min=1m"`
	// Timezone is the IANA zone that defines "today" for due date arithmetic.
	Timezone string `mapstructure:"timezone" validate:"required"`
	// Workers bounds the number of items checked concurrently.
	Workers int `mapstructure:"workers" validate:"required,gt=0,lte=64"`
}

// DispatchConfig controls notification fan-out.
type DispatchConfig struct {
	ChannelTimeout time.Duration `mapstructure:"channel_timeout" validate:"required,min=100ms"`
}

// BusConfig configures the durable message bus. An empty URL disables the
// bus channel.
type BusConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Exchange string `mapstructure:"exchange" validate:"required_with=URL"`
}

// EmailConfig configures SMTP delivery. An empty SMTPHost disables the
// email channel.
type EmailConfig struct {
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port" validate:"omitempty,gt=0,lt=65536"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address" validate:"required_with=SMTPHost,omitempty,email"`
	FromName    string `mapstructure:"from_name"`
	FrontendURL string `mapstructure:"frontend_url" validate:"omitempty,url"`
}

// Location resolves the scheduler time zone. Callers should have validated
// the config first; an unknown zone falls back to UTC.
func (c SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
