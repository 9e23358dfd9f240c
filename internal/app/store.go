package app

import (
	"context"
	"fmt"

	"github.com/alexshd/apportion/internal/config"
	"github.com/alexshd/apportion/internal/store"
	"github.com/alexshd/apportion/internal/store/postgres"
	s3store "github.com/alexshd/apportion/internal/store/s3"
	"github.com/alexshd/apportion/internal/store/sqlite"
)

// OpenStore constructs the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	switch cfg.Driver {
	case store.DriverFile, "":
		return store.NewFile(cfg.Root)
	case store.DriverMemory:
		return store.NewMemory(), nil
	case store.DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case store.DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case store.DriverS3:
		return s3store.New(ctx, s3Config(cfg.S3))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func s3Config(c config.S3) s3store.Config {
	return s3store.Config{
		Bucket:    c.Bucket,
		Region:    c.Region,
		Endpoint:  c.Endpoint,
		PathStyle: c.PathStyle,
		Prefix:    c.Prefix,
	}
}
