package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/handler"
	"github.com/noah-isme/curso-asistencia-api/internal/repository"
	"github.com/noah-isme/curso-asistencia-api/pkg/blob"
	"github.com/noah-isme/curso-asistencia-api/pkg/cache"
	"github.com/noah-isme/curso-asistencia-api/pkg/config"
	"github.com/noah-isme/curso-asistencia-api/pkg/database"
	"github.com/noah-isme/curso-asistencia-api/pkg/fieldcrypt"
)

// backend bundles the selected store with the connections it opened.
type backend struct {
	store   repository.Store
	changes repository.ChangeLog
	db      *sqlx.DB
	redis   *redis.Client
	checks  map[string]handler.ReadinessCheck
}

func (b *backend) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*backend, error) {
	b := &backend{checks: map[string]handler.ReadinessCheck{}}
	maxSeats := cfg.Courses.DefaultMaxSeats

	switch cfg.Store.Backend {
	case config.StoreAPI:
		if cfg.Remote.URL == "" {
			return nil, fmt.Errorf("REMOTE_API_URL is required for the %q store", config.StoreAPI)
		}
		api := repository.NewAPIStore(cfg.Remote.URL, cfg.Remote.Key, cfg.Remote.Timeout, logr)
		b.store = api
		b.checks["remote_api"] = api.Ping

	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.db = db
		b.store = repository.NewPostgresStore(db, maxSeats)
		b.checks["postgres"] = db.PingContext

	case config.StoreRedis, config.StoreFile, config.StoreMemory:
		bucket, err := openBucket(cfg, b)
		if err != nil {
			return nil, err
		}
		cipher, err := fieldcrypt.New(cfg.Blob.EncryptionSecret)
		if err != nil {
			b.Close()
			return nil, err
		}
		if cipher == nil {
			logr.Warn("FIELD_ENCRYPTION_SECRET not set, blob columns are stored in clear")
		}
		paths := repository.BlobPaths{
			Records:    cfg.Blob.RecordsPath,
			Attendance: cfg.Blob.AttendancePath,
			Config:     cfg.Blob.ConfigPath,
		}
		blobStore := repository.NewBlobStore(bucket, paths, cipher, maxSeats, logr)
		b.store = blobStore
		b.changes = blobStore

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}

	logr.Info("store selected", zap.String("backend", cfg.Store.Backend))
	return b, nil
}

func openBucket(cfg *config.Config, b *backend) (blob.Bucket, error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.redis = client
		b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return blob.NewRedisBucket(client, cfg.Blob.KeyPrefix), nil
	case config.StoreFile:
		return blob.NewFileBucket(cfg.Blob.Dir)
	default:
		return blob.NewMemoryBucket(), nil
	}
}

// exportJobStore keeps job state in PostgreSQL when available.
func exportJobStore(b *backend) repository.ExportJobStore {
	if b.db != nil {
		return repository.NewExportJobRepository(b.db)
	}
	return repository.NewMemoryExportJobRepository()
}
