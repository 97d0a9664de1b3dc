package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvProduction  = "Production"
	EnvDevelopment = "Development"
)

type Config struct {
	Environment       string            `yaml:"environment"`
	Driver            string            `yaml:"driver"`
	ConnectionStrings map[string]string `yaml:"connection_strings"`
	RedisAddr         string            `yaml:"redis_addr"`
	HTTPAddr          string            `yaml:"http_addr"`
	GRPCAddr          string            `yaml:"grpc_addr"`
	LogMode           string            `yaml:"log_mode"`
}

func Default() Config {
	return Config{
		Environment: EnvDevelopment,
		Driver:      "sqlite3",
		ConnectionStrings: map[string]string{
			EnvDevelopment: "file:inventory.db?_txlock=immediate&_busy_timeout=5000",
		},
		HTTPAddr: ":8080",
		GRPCAddr: ":50051",
		LogMode:  "development",
	}
}

// Load reads path (if non-empty) over the defaults, then applies INVENTORY_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, cfg.validate()
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	set(&c.Environment, "INVENTORY_ENV")
	set(&c.Driver, "INVENTORY_DB_DRIVER")
	set(&c.RedisAddr, "INVENTORY_REDIS_ADDR")
	set(&c.HTTPAddr, "INVENTORY_HTTP_ADDR")
	set(&c.GRPCAddr, "INVENTORY_GRPC_ADDR")
	set(&c.LogMode, "INVENTORY_LOG_MODE")

	if dsn := strings.TrimSpace(getenv("INVENTORY_DSN")); dsn != "" {
		if c.ConnectionStrings == nil {
			c.ConnectionStrings = map[string]string{}
		}
		c.ConnectionStrings[c.connectionName()] = dsn
	}
}

// connectionName maps the deployment environment to a connection string
// entry: Production uses its own, everything else uses Development.
func (c Config) connectionName() string {
	if strings.EqualFold(c.Environment, EnvProduction) {
		return EnvProduction
	}
	return EnvDevelopment
}

func (c Config) ConnectionString() string {
	return c.ConnectionStrings[c.connectionName()]
}

func (c Config) validate() error {
	switch c.Driver {
	case "mysql", "sqlite3":
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.ConnectionString() == "" {
		return fmt.Errorf("no connection string for environment %q", c.connectionName())
	}
	return nil
}
