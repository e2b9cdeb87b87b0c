package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/formflow/internal/config"
	"github.com/petrijr/formflow/internal/files"
	"github.com/petrijr/formflow/internal/outbox"
	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/pkg/api"
	"github.com/petrijr/formflow/pkg/worker"
)

type closer func() error

func nopCloser() error { return nil }

// openStorage connects the configured per-step data store.
func openStorage(ctx context.Context, cfg config.StorageConfig) (api.StorageBackend, closer, error) {
	switch cfg.Driver {
	case "memory":
		return persistence.NewMemoryBackend(), nopCloser, nil

	case "sqlite":
		db, err := persistence.OpenSQLite(cfg.DSN, 0)
		if err != nil {
			return nil, nil, err
		}
		b, err := persistence.NewSQLiteBackend(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return b, db.Close, nil

	case "postgres":
		db, err := openPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		b, err := persistence.NewPostgresBackend(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return b, db.Close, nil

	case "redis":
		client, err := redisClient(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewRedisBackend(client, cfg.Prefix, cfg.TTL), client.Close, nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() error { return client.Disconnect(context.Background()) }
		b, err := persistence.NewMongoBackend(ctx, client, cfg.Database)
		if err != nil {
			_ = disconnect()
			return nil, nil, err
		}
		return b, disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// openOutbox connects the configured submission queue.
func openOutbox(ctx context.Context, cfg config.OutboxConfig) (outbox.Queue, closer, error) {
	switch cfg.Driver {
	case "memory":
		return outbox.NewInMemoryQueue(0), nopCloser, nil

	case "sqlite":
		db, err := persistence.OpenSQLite(cfg.DSN, 0)
		if err != nil {
			return nil, nil, err
		}
		q, err := outbox.NewSQLiteQueue(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return q, db.Close, nil

	case "postgres":
		db, err := openPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		q, err := outbox.NewPostgresQueue(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return q, db.Close, nil

	case "redis":
		client, err := redisClient(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return outbox.NewRedisQueue(client, ""), client.Close, nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() error { return client.Disconnect(context.Background()) }
		return outbox.NewMongoQueue(client, "", ""), disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown outbox driver %q", cfg.Driver)
}

// openPostgres opens dsn with the pgx stdlib driver and pings it.
func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// redisClient accepts either a redis:// URL or a bare host:port.
func redisClient(ctx context.Context, dsn string) (*redis.Client, error) {
	opts := &redis.Options{Addr: dsn}
	if strings.Contains(dsn, "://") {
		var err error
		if opts, err = redis.ParseURL(dsn); err != nil {
			return nil, err
		}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// openFiles returns upload storage on disk, or in memory when dir is empty.
func openFiles(cfg config.FilesConfig) (*files.Storage, error) {
	if cfg.Dir == "" {
		return files.NewMemory(files.WithMaxSize(cfg.MaxSize)), nil
	}
	return files.NewOS(cfg.Dir, files.WithMaxSize(cfg.MaxSize))
}

// logProcessor delivers submissions to the log. It stands in for a real
// downstream integration when the server runs from a bare definition.
func logProcessor(logger *slog.Logger) worker.Processor {
	return worker.ProcessorFunc(func(ctx context.Context, s *outbox.Submission) error {
		logger.InfoContext(ctx, "submission delivered",
			slog.String("submission", s.ID),
			slog.String("wizard", s.Wizard),
			slog.Any("steps", s.Steps),
			slog.Any("data", s.Data))
		return nil
	})
}
