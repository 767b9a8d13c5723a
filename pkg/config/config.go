// Package config loads the service configuration from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"greenscore/pkg/kafka"
	"greenscore/pkg/storage/mongo"
	"greenscore/pkg/storage/postgres"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMongo    = "mongo"
)

type Config struct {
	ServiceName     string        `toml:"serviceName" validate:"required"`
	HTTPAddr        string        `toml:"httpAddr" validate:"required,contains=:"`
	LogLevel        string        `toml:"logLevel" validate:"oneof=debug info warn error"`
	Storage         string        `toml:"storage" validate:"oneof=memory postgres sqlite mongo"`
	ProbeTimeout    time.Duration `toml:"probeTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `toml:"shutdownTimeout" validate:"gt=0"`

	Postgres postgres.Config `toml:"postgres"`
	SQLite   SQLiteConfig    `toml:"sqlite"`
	Mongo    mongo.Config    `toml:"mongo"`
	Kafka    kafka.Config    `toml:"kafka"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used for every key missing from the file.
func Default() Config {
	return Config{
		ServiceName:     "greenscore",
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		Storage:         StorageSQLite,
		ProbeTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Postgres: postgres.Config{
			User:   "postgres",
			Host:   "localhost",
			Port:   "5432",
			DBName: "greenscore",
		},
		SQLite: SQLiteConfig{Path: "data/calls.db"},
		Mongo: mongo.Config{
			Host:   "localhost",
			Port:   "27017",
			DBName: "greenscore",
		},
	}
}

// Load decodes the TOML file at path over Default(). An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}

	return cfg, nil
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Storage = strings.ToLower(c.Storage)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Storage == StorageSQLite && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite storage requires sqlite.path")
	}

	return nil
}

// Level returns the logrus level matching LogLevel, defaulting to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
