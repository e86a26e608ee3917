package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	grpcapp "orderChat/internal/app/grpc"
	httpapp "orderChat/internal/app/http"
	"orderChat/internal/config"
	"orderChat/internal/cron"
	"orderChat/internal/pkg/logger/sl"
	tg_client "orderChat/internal/pkg/tg"
	"orderChat/internal/realtime"
	"orderChat/internal/realtime/ws"
	"orderChat/internal/repository/memory"
	"orderChat/internal/repository/postgres"
	"orderChat/internal/repository/postgres/migrations"
	"orderChat/internal/repository/s3minio"
	"orderChat/internal/service/access"
	authservice "orderChat/internal/service/auth"
	bindingservice "orderChat/internal/service/binding"
	chatroomservice "orderChat/internal/service/chatroom"
	orderservice "orderChat/internal/service/order"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage is everything the services need from a repository.
type Storage interface {
	authservice.UserSaver
	authservice.UserProvider
	orderservice.OrderProvider
	orderservice.OrderSaver
	bindingservice.Repository
	access.RoomOwnerProvider
	chatroomservice.RoomProvider
	chatroomservice.RoomSaver
}

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.App
	GRPCServer *grpcapp.App
	Scheduler  *cron.Scheduler
	Registry   *realtime.Registry
	pool       *pgxpool.Pool
}

func New(log *slog.Logger, cfg *config.Config) *App {
	storage, pool := mustStorage(log, cfg)

	notifier := newNotifier(log, cfg.Telegram)

	gate := access.New(log, storage)
	registry := realtime.NewRegistry(log, gate)
	fanout := realtime.NewFanout(log, registry)

	binding := bindingservice.New(log, storage)
	auth := authservice.New(log, storage, storage, cfg.Auth)
	orders := orderservice.New(log, storage, storage, storage, binding, notifier)

	var opts []chatroomservice.Option
	if archiver := newArchiver(log, &cfg.Archive); archiver != nil {
		opts = append(opts, chatroomservice.WithArchiver(archiver))
	}
	if notifier != nil {
		opts = append(opts, chatroomservice.WithNotifier(notifier))
	}
	rooms := chatroomservice.New(log, gate, storage, storage, fanout, opts...)

	wsHandler := ws.NewHandler(log, cfg.Realtime, auth, registry, rooms, cfg.HTTP.AllowedOrigins)

	return &App{
		log:        log,
		HTTPServer: httpapp.New(log, &cfg.HTTP, auth, orders, rooms, wsHandler),
		GRPCServer: grpcapp.New(log, &cfg.GRPC),
		Scheduler:  cron.New(log, cfg.KeepAlive, cfg.Reconcile, binding, nil),
		Registry:   registry,
		pool:       pool,
	}
}

func mustStorage(log *slog.Logger, cfg *config.Config) (Storage, *pgxpool.Pool) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	if !cfg.SkipMigrations {
		if err := postgres.RunMigrations(log, cfg.Postgres.ConnString(), migrations.FS); err != nil {
			panic(err)
		}
	}

	pool, err := postgres.NewConnPool(&cfg.Postgres)
	if err != nil {
		panic(err)
	}

	return postgres.New(pool), pool
}

// newNotifier returns nil when telegram is not configured so that services
// skip notifications.
func newNotifier(log *slog.Logger, cfg tg_client.Config) orderservice.Notifier {
	if !cfg.Enabled() {
		log.Info("telegram notifications disabled")
		return nil
	}

	bot, err := tg_client.NewBot(cfg.Token)
	if err != nil {
		log.Error("failed to start telegram bot, notifications disabled", sl.Err(err))
		return nil
	}

	return tg_client.New(bot, cfg.ChatID)
}

func newArchiver(log *slog.Logger, cfg *s3minio.Config) chatroomservice.Archiver {
	if !cfg.Enabled() {
		log.Info("transcript archive disabled")
		return nil
	}

	conn, err := s3minio.NewConn(cfg)
	if err != nil {
		log.Error("failed to connect to archive, transcripts disabled", sl.Err(err))
		return nil
	}

	repo := s3minio.New(conn, cfg.Bucket)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.ConfigureMinioStorage(ctx); err != nil {
		log.Error("failed to prepare archive bucket, transcripts disabled", sl.Err(err))
		return nil
	}

	return repo
}

func (a *App) MustRun() {
	if err := a.Scheduler.Start(); err != nil {
		panic(fmt.Errorf("app.MustRun: %w", err))
	}

	go a.GRPCServer.MustRun()
	go a.HTTPServer.MustRun()
}

// Stop shuts the process down: health goes NOT_SERVING, HTTP drains, live
// sessions are closed, then jobs, gRPC and the pool stop.
func (a *App) Stop() {
	a.GRPCServer.SetServing(false)
	a.HTTPServer.Stop()
	a.Registry.Close()
	a.Scheduler.Stop()
	a.GRPCServer.Stop()

	if a.pool != nil {
		a.pool.Close()
	}
}
