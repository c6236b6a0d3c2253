package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "secretsdir.yaml"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Secrets.Backend, "SECRETSDIR_BACKEND")
	setString(&cfg.Secrets.Dir, "SECRETSDIR_DIR")
	setBool(&cfg.Secrets.Optional, "SECRETSDIR_OPTIONAL")
	setString(&cfg.Secrets.WordSeparator, "SECRETSDIR_WORD_SEPARATOR")
	setString(&cfg.Secrets.Delimiter, "SECRETSDIR_DELIMITER")
	setList(&cfg.Secrets.Ignore, "SECRETSDIR_IGNORE")
	setBool(&cfg.Secrets.IgnoreHidden, "SECRETSDIR_IGNORE_HIDDEN")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Bucket, "SECRETSDIR_NATS_BUCKET")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.Postgres.Table, "SECRETSDIR_PG_TABLE")
	setInt32(&cfg.Postgres.MaxConns, "SECRETSDIR_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SECRETSDIR_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SECRETSDIR_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SECRETSDIR_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SECRETSDIR_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.Migrate, "SECRETSDIR_PG_MIGRATE")

	setString(&cfg.Server.Port, "SECRETSDIR_PORT")

	setString(&cfg.Logging.Level, "SECRETSDIR_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SECRETSDIR_LOG_SERVICE")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Secrets.WordSeparator == "" {
		return errors.New("secrets.word_separator is required")
	}
	if cfg.Secrets.Delimiter == "" {
		return errors.New("secrets.delimiter is required")
	}

	switch cfg.Secrets.Backend {
	case BackendDir:
		if cfg.Secrets.Dir == "" {
			return errors.New("secrets.dir is required")
		}
	case BackendNATS:
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required")
		}
		if cfg.NATS.Bucket == "" {
			return errors.New("nats.bucket is required")
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if !tableName.MatchString(cfg.Postgres.Table) {
			return fmt.Errorf("postgres.table %q is not a valid identifier", cfg.Postgres.Table)
		}
		if cfg.Postgres.Migrate && cfg.Postgres.Table != MigrationTable {
			return fmt.Errorf("postgres.migrate only creates table %q, not %q", MigrationTable, cfg.Postgres.Table)
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("secrets.backend %q is not one of dir, nats, postgres", cfg.Secrets.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma-separated value, dropping empty items.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
