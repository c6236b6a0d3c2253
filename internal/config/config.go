// Package config provides hierarchical configuration loading for secretsdir.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Secrets backends.
const (
	BackendDir      = "dir"
	BackendNATS     = "nats"
	BackendPostgres = "postgres"
)

// MigrationTable is the table created by the embedded postgres migrations.
const MigrationTable = "secrets"

// Config holds all runtime configuration for the secretsdir service.
type Config struct {
	Secrets  Secrets  `yaml:"secrets"`
	NATS     NATS     `yaml:"nats"`
	Postgres Postgres `yaml:"postgres"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
	OTEL     OTEL     `yaml:"otel"`
}

// Secrets describes where secrets are read from and how file names map to keys.
type Secrets struct {
	Backend       string   `yaml:"backend"`        // "dir" | "nats" | "postgres" (default: "dir")
	Dir           string   `yaml:"dir"`            // Mount point for the dir backend (default: "/run/secrets")
	Optional      bool     `yaml:"optional"`       // Tolerate a missing directory, bucket or table
	WordSeparator string   `yaml:"word_separator"` // Hierarchy marker in file names (default: "__")
	Delimiter     string   `yaml:"delimiter"`      // Key-path delimiter (default: ":")
	Ignore        []string `yaml:"ignore"`         // Glob patterns of file names to skip
	IgnoreHidden  bool     `yaml:"ignore_hidden"`  // Skip dot-prefixed names
}

// NATS holds the JetStream KV bucket used by the nats backend.
type NATS struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

// Postgres holds the connection and table used by the postgres backend.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	Table           string        `yaml:"table"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
	Migrate         bool          `yaml:"migrate"` // Create MigrationTable at startup; requires Table == MigrationTable
}

// Server holds admin HTTP server configuration. An empty port disables it.
type Server struct {
	Port string `yaml:"port"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// OTEL holds OpenTelemetry exporter configuration. An empty endpoint
// leaves the global no-op providers in place.
type OTEL struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for a container.
func Defaults() Config {
	return Config{
		Secrets: Secrets{
			Backend:       BackendDir,
			Dir:           "/run/secrets",
			WordSeparator: "__",
			Delimiter:     ":",
		},
		NATS: NATS{
			URL:    "nats://localhost:4222",
			Bucket: "SECRETS",
		},
		Postgres: Postgres{
			Table:           MigrationTable,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "secretsdir",
		},
		OTEL: OTEL{
			ServiceName: "secretsdir",
		},
	}
}
