package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"orderChat/internal/domain/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	DBName   string `yaml:"db_name" env:"POSTGRES_DB_NAME" env-default:"order_chat"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Pass     string `yaml:"password" env:"POSTGRES_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"POSTGRES_SSL_MODE" env-default:"disable"`
	MaxConns int    `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Pass,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}

func NewConnPool(config *Config) (*pgxpool.Pool, error) {
	return NewConnPoolFromURL(config.ConnString(), config.MaxConns)
}

func NewConnPoolFromURL(databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	pgxPollConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if maxConns > 0 {
		pgxPollConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPollConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	err = pool.Ping(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}

func newMigrator(databaseURL string, migrationsFS fs.FS) (*migrate.Migrate, error) {
	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return m, nil
}

func RunMigrations(log *slog.Logger, databaseURL string, migrationsFS fs.FS) error {
	m, err := newMigrator(databaseURL, migrationsFS)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	return nil
}

// RollbackMigrations reverts the last steps migrations.
func RollbackMigrations(log *slog.Logger, databaseURL string, migrationsFS fs.FS, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}

	m, err := newMigrator(databaseURL, migrationsFS)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("all migrations rolled back")
		return nil
	}
	log.Info("migrations rolled back", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	return nil
}

type Repository struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// withTx commits when fn returns nil and rolls back otherwise, including on panic.
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(tx)
}

// wrap attaches op to err and marks timeouts as retryable.
func wrap(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrStorageTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type rowScanner interface {
	Scan(dest ...any) error
}
