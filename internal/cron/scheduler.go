package cron

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"orderChat/internal/pkg/logger/sl"

	"github.com/robfig/cron/v3"
)

type KeepAliveConfig struct {
	URL      string        `yaml:"url" env:"KEEPALIVE_URL"`
	Schedule string        `yaml:"schedule" env:"KEEPALIVE_SCHEDULE" env-default:"* * * * *"`
	Timeout  time.Duration `yaml:"timeout" env:"KEEPALIVE_TIMEOUT" env-default:"10s"`
}

type ReconcileConfig struct {
	Schedule string        `yaml:"schedule" env:"RECONCILE_SCHEDULE" env-default:"*/5 * * * *"`
	Timeout  time.Duration `yaml:"timeout" env:"RECONCILE_TIMEOUT" env-default:"1m"`
}

// Reconciler creates the chat rooms missing for existing orders.
type Reconciler interface {
	ReconcileChatRooms(ctx context.Context) (int, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scheduler runs the periodic jobs of the service.
type Scheduler struct {
	cron       *cron.Cron
	log        *slog.Logger
	keepAlive  KeepAliveConfig
	reconcile  ReconcileConfig
	reconciler Reconciler
	client     HTTPDoer
}

func New(
	log *slog.Logger,
	keepAlive KeepAliveConfig,
	reconcile ReconcileConfig,
	reconciler Reconciler,
	client HTTPDoer,
) *Scheduler {
	logger := cronLogger{log: log}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if client == nil {
		client = &http.Client{Timeout: keepAlive.Timeout}
	}

	return &Scheduler{
		cron:       c,
		log:        log,
		keepAlive:  keepAlive,
		reconcile:  reconcile,
		reconciler: reconciler,
		client:     client,
	}
}

func (s *Scheduler) Start() error {
	const op = "cron.Start"

	log := s.log.With(slog.String("op", op))

	if s.keepAlive.URL != "" {
		if _, err := s.cron.AddFunc(s.keepAlive.Schedule, s.ping); err != nil {
			return fmt.Errorf("%s: keepalive schedule: %w", op, err)
		}
	}

	if s.reconciler != nil {
		if _, err := s.cron.AddFunc(s.reconcile.Schedule, s.reconcileChatRooms); err != nil {
			return fmt.Errorf("%s: reconcile schedule: %w", op, err)
		}
	}

	s.cron.Start()
	log.Info("cron scheduler started", slog.Int("jobs", len(s.cron.Entries())))

	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("cron scheduler stopped")
}

func (s *Scheduler) ping() {
	const op = "cron.ping"

	log := s.log.With(
		slog.String("op", op),
		slog.String("url", s.keepAlive.URL),
	)

	ctx, cancel := context.WithTimeout(context.Background(), s.keepAlive.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.keepAlive.URL, nil)
	if err != nil {
		log.Error("failed to build keepalive request", sl.Err(err))
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn("keepalive ping failed", sl.Err(err))
		return
	}
	defer resp.Body.Close()

	log.Info("keepalive ping", slog.Int("status", resp.StatusCode))
}

func (s *Scheduler) reconcileChatRooms() {
	const op = "cron.reconcileChatRooms"

	log := s.log.With(slog.String("op", op))

	ctx, cancel := context.WithTimeout(context.Background(), s.reconcile.Timeout)
	defer cancel()

	n, err := s.reconciler.ReconcileChatRooms(ctx)
	if err != nil {
		log.Error("chat room reconciliation incomplete", slog.Int("repaired", n), sl.Err(err))
		return
	}

	if n > 0 {
		log.Info("chat rooms repaired", slog.Int("repaired", n))
	}
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, sl.Err(err))...)
}
