// Package app assembles the backends selected by configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"attendvisor/internal/attendance"
	"attendvisor/internal/auth"
	"attendvisor/internal/config"
	"attendvisor/internal/httpapi"
	"attendvisor/internal/queue"
	"attendvisor/internal/seed"
	"attendvisor/internal/store"
)

// Deps holds the wired backends. Close releases them.
type Deps struct {
	Store    *attendance.Store
	Sessions auth.SessionStore
	Queue    queue.Queue
	Checks   map[string]httpapi.HealthCheck

	db    *store.DB
	redis *store.Redis
}

// Build connects every backend named in cfg.
func Build(ctx context.Context, cfg config.App, log *zap.Logger) (*Deps, error) {
	d := &Deps{Checks: map[string]httpapi.HealthCheck{}}
	generate := seed.Generator(cfg.SeedRandom, time.Now, cfg.SeedDays)

	if cfg.StoreBackend == "redis" || cfg.SessionBackend == "redis" || cfg.QueueBackend == "redis" {
		d.redis = store.NewRedis(cfg.RedisAddr)
		d.Checks["redis"] = d.redis.Healthy
	}

	var repo attendance.EntryRepository
	switch cfg.StoreBackend {
	case "memory":
		repo = attendance.NewMemoryRepository(generate())
	case "redis":
		repo = attendance.NewRedisRepository(d.redis.Client, attendance.DefaultRedisKey, generate)
	case "postgres", "sqlite":
		var err error
		dialect := attendance.Postgres
		if cfg.StoreBackend == "sqlite" {
			dialect = attendance.SQLite
			d.db, err = store.NewSQLite(ctx, cfg.SQLitePath)
		} else {
			d.db, err = store.NewPostgres(ctx, cfg.DatabaseURL)
		}
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Checks["db"] = d.db.Healthy
		sqlRepo := attendance.NewSQLRepository(d.db.Client, dialect)
		if err := sqlRepo.Migrate(ctx); err != nil {
			d.Close()
			return nil, err
		}
		n, err := sqlRepo.SeedIfEmpty(ctx, generate)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("seed attendance: %w", err)
		}
		if n > 0 {
			log.Info("seeded attendance table", zap.Int("entries", n))
		}
		repo = sqlRepo
	default:
		d.Close()
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	d.Store = attendance.NewStore(seed.Roster(), repo)

	switch cfg.SessionBackend {
	case "memory":
		d.Sessions = auth.NewMemorySessions()
	case "redis":
		d.Sessions = auth.NewRedisSessions(d.redis.Client, cfg.SessionTTL)
	default:
		d.Close()
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	switch cfg.QueueBackend {
	case "memory":
		d.Queue = queue.NewInMemory(64)
	case "redis":
		d.Queue = queue.NewRedisQueue(d.redis.Client, queue.DefaultRedisKey)
	default:
		d.Close()
		return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}

	log.Info("backends ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("sessions", cfg.SessionBackend),
		zap.String("queue", cfg.QueueBackend),
	)
	return d, nil
}

// CheckWorkerConfig rejects setups where the worker could not see what the
// api records: both the queue and the entry store must be shared.
func CheckWorkerConfig(cfg config.App) error {
	if cfg.QueueBackend != "redis" {
		return fmt.Errorf("worker needs QUEUE_BACKEND=redis, got %q; the memory queue is consumed inside the api process", cfg.QueueBackend)
	}
	if cfg.StoreBackend == "memory" {
		return fmt.Errorf("worker needs a shared STORE_BACKEND (redis, postgres or sqlite), got %q", cfg.StoreBackend)
	}
	return nil
}

// Directory builds the faculty directory from the seeded accounts.
func Directory(cfg config.App) (*auth.Directory, error) {
	var creds []auth.Credential
	for _, f := range seed.FacultyAccounts() {
		creds = append(creds, auth.Credential{
			User:   auth.User{ID: f.ID, Email: f.Email, Name: f.Name},
			Secret: f.Password,
		})
	}
	return auth.NewDirectory(creds, cfg.BcryptCost)
}

// Close releases database and redis connections.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	_ = d.db.Close()
	_ = d.redis.Close()
}
