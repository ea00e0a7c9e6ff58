package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 5000
	DefaultTimezone      = "UTC"
	DefaultMaxRows       = 200000
	DefaultStatsCacheTTL = 30 * time.Second
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Names     NamesConfig     `yaml:"names"`
	Reporting ReportingConfig `yaml:"reporting"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Mode     string `yaml:"mode"`
	Timezone string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type PostgresConfig struct {
	URL              string        `yaml:"url"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ClickHouseConfig describes the optional raw event archive.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type StorageConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	UseSSL    bool          `yaml:"use_ssl"`
	Buckets   BucketsConfig `yaml:"buckets"`
}

type BucketsConfig struct {
	Screenshots string `yaml:"screenshots"`
}

type NamesConfig struct {
	Path string `yaml:"path"`
}

type ReportingConfig struct {
	MaxRows       int           `yaml:"max_rows"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads the YAML file at configPath, expanding ${VAR} references from
// the environment. A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw YAML after environment expansion and fills defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = DefaultTimezone
	}
	if c.Reporting.MaxRows <= 0 {
		c.Reporting.MaxRows = DefaultMaxRows
	}
	if c.Reporting.StatsCacheTTL <= 0 {
		c.Reporting.StatsCacheTTL = DefaultStatsCacheTTL
	}
	if c.Database.ClickHouse.Port == 0 {
		c.Database.ClickHouse.Port = 9000
	}
	if c.Database.ClickHouse.Database == "" {
		c.Database.ClickHouse.Database = "monitoring"
	}
	if c.Storage.Buckets.Screenshots == "" {
		c.Storage.Buckets.Screenshots = "screenshots"
	}
}

func (c *Config) Validate() error {
	if c.Database.Postgres.URL == "" {
		return errors.New("database.postgres.url is required")
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid server.timezone %q: %w", c.Server.Timezone, err)
	}
	if c.Database.Postgres.MinConns > c.Database.Postgres.MaxConns && c.Database.Postgres.MaxConns > 0 {
		return fmt.Errorf("database.postgres.min_conns (%d) exceeds max_conns (%d)",
			c.Database.Postgres.MinConns, c.Database.Postgres.MaxConns)
	}
	if c.Storage.Enabled && c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint is required when storage is enabled")
	}
	if c.Database.ClickHouse.Enabled && c.Database.ClickHouse.Host == "" {
		return errors.New("database.clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// Location returns the configured aggregation timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
