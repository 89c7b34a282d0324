package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// TASKAPI_ prefix with underscores (e.g. TASKAPI_SERVER_PORT) and take
// precedence over file values. Returns a validated Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// A missing config file is fine; the environment can supply everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TASKAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not cooperate with Unmarshal unless the keys are
	// known to viper, so bind every key we expect explicitly.
	for _, key := range configKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %q: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 30)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)

	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.ttl_seconds", 60)

	v.SetDefault("dispatch.queue_size", 256)
	v.SetDefault("dispatch.worker_count", 2)
	v.SetDefault("dispatch.max_attempts", 5)
	v.SetDefault("dispatch.retry_delay_seconds", 60)

	v.SetDefault("reminder.schedule", "0 * * * *")
	v.SetDefault("reminder.window_hours", 24)

	v.SetDefault("smtp.port", 587)
}

func configKeys() []string {
	return []string{
		"server.port",
		"server.log_level",
		"database.url",
		"auth.jwt_secret",
		"auth.token_lifetime_minutes",
		"auth.refresh_token_lifetime_minutes",
		"cache.size",
		"cache.ttl_seconds",
		"dispatch.queue_size",
		"dispatch.worker_count",
		"dispatch.max_attempts",
		"dispatch.retry_delay_seconds",
		"reminder.schedule",
		"reminder.window_hours",
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.from",
	}
}
