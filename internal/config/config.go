package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"    validate:"required"`
	Dispatch DispatchConfig `mapstructure:"dispatch" validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	SMTP     SMTPConfig     `mapstructure:"smtp"     validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication and token settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// CacheConfig controls the task list query cache.
type CacheConfig struct {
	// Size is the maximum number of cached list pages held at once.
	Size int `mapstructure:"size" validate:"required,gt=0"`

	// TTLSeconds bounds how stale a cached list may be after a write.
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"required,gt=0"`
}

// DispatchConfig controls the outbound notification workers.
type DispatchConfig struct {
	QueueSize         int `mapstructure:"queue_size"          validate:"required,gt=0"`
	WorkerCount       int `mapstructure:"worker_count"        validate:"required,gt=0"`
	MaxAttempts       int `mapstructure:"max_attempts"        validate:"required,gt=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"required,gt=0"`
}

// ReminderConfig controls the due-date reminder scanner.
type ReminderConfig struct {
	// Schedule is a standard cron expression; the default fires hourly.
	Schedule    string `mapstructure:"schedule"     validate:"required"`
	WindowHours int    `mapstructure:"window_hours" validate:"required,gt=0"`
}

// SMTPConfig contains the outbound mail transport settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"     validate:"required"`
	Port     int    `mapstructure:"port"     validate:"required,gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"     validate:"required,email"`
}
