// Package app wires the adapters and services shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	memorycache "github.com/vncsmyrnk/pollcore/internal/adapters/cache/memory"
	rediscache "github.com/vncsmyrnk/pollcore/internal/adapters/cache/redis"
	"github.com/vncsmyrnk/pollcore/internal/adapters/notification"
	"github.com/vncsmyrnk/pollcore/internal/adapters/repository/cached"
	"github.com/vncsmyrnk/pollcore/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollcore/internal/adapters/storage/minio"
	"github.com/vncsmyrnk/pollcore/internal/cache"
	"github.com/vncsmyrnk/pollcore/internal/config"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
	"github.com/vncsmyrnk/pollcore/internal/core/services"
)

type App struct {
	DB         *sql.DB
	Dispatcher *notification.AsyncDispatcher

	Polls    *services.PollService
	Votes    ports.VoteService
	Groups   ports.GroupService
	Accounts ports.AccountService
	Scans    *services.ScanService

	closers []func() error
	logger  *slog.Logger
}

// New connects to every backing service named in cfg. Redis and Kafka are
// optional: without them the cache lives in memory and notifications are
// only logged.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	db, err := postgres.Open(ctx, postgres.ConnString(
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DB,
	))
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	var backend cache.Backend
	if cfg.Redis.Addr != "" {
		client, err := rediscache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		backend = rediscache.New(client, rediscache.WithKeyPrefix(cfg.Redis.KeyPrefix))
		logger.Info("using redis cache", "addr", cfg.Redis.Addr)
	} else {
		backend = memorycache.New()
		logger.Info("using in-memory cache")
	}
	store := cache.New(backend, cache.WithLogger(logger))

	var publisher ports.NotificationPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		writer := notification.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = notification.NewKafkaPublisher(writer)
		a.closers = append(a.closers, writer.Close)
		logger.Info("publishing notifications to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		publisher = notification.NewLogPublisher(logger)
		logger.Info("logging notifications, no kafka brokers configured")
	}
	a.Dispatcher = notification.NewAsyncDispatcher(publisher, cfg.Notification.QueueSize, logger)

	files, err := minio.NewFileStorage(ctx, minio.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
		PublicURL: cfg.MinIO.PublicURL,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	pollRepo := cached.NewPollRepository(postgres.NewPollRepository(db), store)
	voteRepo := cached.NewVoteRepository(postgres.NewVoteRepository(db), store)
	groupRepo := cached.NewGroupRepository(postgres.NewGroupRepository(db), store)
	userRepo := postgres.NewUserRepository(db)

	opts := []services.Option{services.WithLogger(logger)}
	a.Polls = services.NewPollService(pollRepo, voteRepo, groupRepo, files, a.Dispatcher, opts...)
	a.Votes = services.NewVoteService(pollRepo, voteRepo, opts...)
	a.Groups = services.NewGroupService(groupRepo, opts...)
	a.Accounts = services.NewAccountService(userRepo, a.Dispatcher, opts...)
	a.Scans = services.NewScanService(a.Polls, voteRepo, a.Dispatcher, services.ScanConfig{
		TrailingWindow: cfg.Scheduler.TrailingWindow,
		ReminderLead:   cfg.Scheduler.ReminderLead,
		ReminderWidth:  cfg.Scheduler.ReminderWidth,
		Concurrency:    cfg.Scheduler.Concurrency,
	}, opts...)

	return a, nil
}

// Close flushes pending notifications and releases every connection.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush notifications: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

