package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"files_manager/internal/auth"
	"files_manager/internal/blob"
	"files_manager/internal/models"
	"files_manager/internal/queue"
	"files_manager/internal/server"
	"files_manager/internal/storage"
	"files_manager/internal/thumbnail"
	"files_manager/internal/upload"
)

type catalogStore interface {
	server.Catalog
	upload.Catalog
}

type jobQueue interface {
	upload.Enqueuer
	thumbnail.Source
	Close() error
}

// app holds the explicitly constructed handles shared by the commands.
type app struct {
	cfg     *models.Config
	log     *slog.Logger
	catalog catalogStore
	blobs   *blob.Store
	jobs    jobQueue
	redis   *redis.Client
	closers []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := models.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg.Log)
	slog.SetDefault(log)

	a := &app{cfg: cfg, log: log, blobs: blob.New(cfg.StoragePath)}

	switch cfg.Catalog {
	case "memory":
		a.catalog = storage.NewMemory()
	case "postgres", "":
		db, err := storage.NewStorage(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to init storage: %w", err)
		}
		a.catalog = db
		a.closers = append(a.closers, db.Close)
	default:
		return nil, fmt.Errorf("unknown catalog %q", cfg.Catalog)
	}

	switch cfg.Queue {
	case "memory":
		a.jobs = queue.NewMemory(1024)
	case "kafka", "":
		a.jobs = queue.NewKafka(cfg.Kafka, log)
	default:
		a.Close()
		return nil, fmt.Errorf("unknown queue %q", cfg.Queue)
	}
	a.closers = append(a.closers, func() {
		if err := a.jobs.Close(); err != nil {
			log.Error("failed to close queue", "error", err)
		}
	})

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { a.redis.Close() })

	return a, nil
}

func (a *app) worker() *thumbnail.Worker {
	return thumbnail.NewWorker(a.log, a.catalog, a.blobs, a.jobs, thumbnail.Options{
		MaxAttempts: a.cfg.Worker.MaxAttempts,
		BaseBackoff: a.cfg.Worker.BaseBackoff,
	})
}

// apiServer builds the HTTP side only. It produces jobs but never consumes.
func (a *app) apiServer() *server.Server {
	verifier := a.verifier()
	pipeline := upload.New(a.log, verifier, a.catalog, a.blobs, a.jobs)
	return server.NewServer(a.cfg, a.log, pipeline, a.catalog, verifier, verifier)
}

func (a *app) verifier() *auth.RedisVerifier {
	return auth.NewRedisVerifier(a.redis)
}

// Close releases handles in reverse order of construction.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newLogger(cfg models.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
