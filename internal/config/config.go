package config

import (
	"flag"
	"fmt"
	"os"

	grpcapp "orderChat/internal/app/grpc"
	httpapp "orderChat/internal/app/http"
	"orderChat/internal/cron"
	tg_client "orderChat/internal/pkg/tg"
	"orderChat/internal/realtime/ws"
	"orderChat/internal/repository/postgres"
	"orderChat/internal/repository/s3minio"
	authservice "orderChat/internal/service/auth"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env            string               `yaml:"env" env:"ENV" env-default:"local"`
	Storage        string               `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	SkipMigrations bool                 `yaml:"skip_migrations" env:"SKIP_MIGRATIONS"`
	HTTP           httpapp.Config       `yaml:"http_server"`
	GRPC           grpcapp.Config       `yaml:"grpc_server"`
	Postgres       postgres.Config      `yaml:"postgres"`
	Auth           authservice.Config   `yaml:"auth"`
	Realtime       ws.Config            `yaml:"realtime"`
	Telegram       tg_client.Config     `yaml:"telegram"`
	Archive        s3minio.Config       `yaml:"archive"`
	KeepAlive      cron.KeepAliveConfig `yaml:"keepalive"`
	Reconcile      cron.ReconcileConfig `yaml:"reconcile"`
}

func (c *Config) validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("storage must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}
