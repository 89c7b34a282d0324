// Package config defines the application configuration structure and loading.
// Configuration is sourced from environment variables and optional YAML files,
// with environment variables taking precedence.
package config
