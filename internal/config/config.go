// Package config reads infrastructure settings from the environment.
//
//	APPORTION_STORE_DRIVER: file|memory|sqlite|postgres|s3 (default file)
//	APPORTION_STORE_ROOT: directory for the file driver (default .)
//	APPORTION_SQLITE_PATH: database file for the sqlite driver (default apportion.db)
//	APPORTION_POSTGRES_DSN: connection string for the postgres driver
//	APPORTION_S3_BUCKET: bucket for the s3 driver (required)
//	APPORTION_S3_REGION: region (default us-east-1)
//	APPORTION_S3_ENDPOINT: custom endpoint, e.g. MinIO
//	APPORTION_S3_PATH_STYLE: true|false (default false)
//	APPORTION_S3_PREFIX: key prefix inside the bucket, e.g. runs/
//	APPORTION_LOG_LEVEL: debug|info|warn|error (default info)
//	NO_COLOR: any value disables coloured logs
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alexshd/apportion/internal/logging"
	"github.com/alexshd/apportion/internal/store"
)

const (
	DefaultSQLitePath  = "apportion.db"
	DefaultPostgresDSN = "postgres://localhost/apportion?sslmode=disable"
	DefaultS3Region    = "us-east-1"
)

// Store selects and configures the allocation store.
type Store struct {
	Driver      store.Driver
	Root        string
	SQLitePath  string
	PostgresDSN string
	S3          S3
}

// S3 holds bucket settings for the s3 driver.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string
}

// Config is the full environment configuration.
type Config struct {
	Store    Store
	LogLevel slog.Level
	NoColor  bool
}

// Default returns the configuration with no environment applied.
func Default() Config {
	return Config{
		Store: Store{
			Driver:      store.DriverFile,
			Root:        ".",
			SQLitePath:  DefaultSQLitePath,
			PostgresDSN: DefaultPostgresDSN,
			S3:          S3{Region: DefaultS3Region},
		},
		LogLevel: slog.LevelInfo,
	}
}

// FromEnv reads the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load builds a Config from getenv, starting from Default.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("APPORTION_STORE_DRIVER"); v != "" {
		d, err := store.ParseDriver(v)
		if err != nil {
			return cfg, err
		}
		cfg.Store.Driver = d
	}
	if v := getenv("APPORTION_STORE_ROOT"); v != "" {
		cfg.Store.Root = v
	}
	if v := getenv("APPORTION_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := getenv("APPORTION_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	cfg.Store.S3.Bucket = getenv("APPORTION_S3_BUCKET")
	if v := getenv("APPORTION_S3_REGION"); v != "" {
		cfg.Store.S3.Region = v
	}
	cfg.Store.S3.Endpoint = getenv("APPORTION_S3_ENDPOINT")
	cfg.Store.S3.PathStyle = strings.EqualFold(getenv("APPORTION_S3_PATH_STYLE"), "true")
	cfg.Store.S3.Prefix = getenv("APPORTION_S3_PREFIX")

	lvl, err := logging.ParseLevel(getenv("APPORTION_LOG_LEVEL"))
	if err != nil {
		return cfg, fmt.Errorf("APPORTION_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = lvl
	cfg.NoColor = getenv("NO_COLOR") != ""

	if cfg.Store.Driver == store.DriverS3 && cfg.Store.S3.Bucket == "" {
		return cfg, fmt.Errorf("APPORTION_S3_BUCKET required for s3 driver")
	}
	return cfg, nil
}
