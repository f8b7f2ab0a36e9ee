// Package config содержит логику чтения конфигурации бэк-офиса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Поддерживаемые хранилища.
const (
	StoreBackendPostgres  = "postgres"
	StoreBackendFirestore = "firestore"
)

// Config содержит параметры конфигурации бэк-офиса.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	DatabaseURI  string `env:"DATABASE_URI"`
	StoreBackend string `env:"STORE_BACKEND"`

	FirestoreProjectID      string `env:"FIRESTORE_PROJECT_ID"`
	FirestoreEmulatorHost   string `env:"FIRESTORE_EMULATOR_HOST"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	AuthSecret string `env:"AUTH_SECRET"`

	IngestAddress  string        `env:"INGEST_ADDRESS"`
	IngestInterval time.Duration `env:"INGEST_INTERVAL" envDefault:"1m"`

	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	OverdueDays int           `env:"OVERDUE_DAYS" envDefault:"3"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и
// переменных окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStoreBackend := cfg.StoreBackend
	envIngestAddress := cfg.IngestAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.StoreBackend, "s", StoreBackendPostgres, "store backend: postgres or firestore")
	flag.StringVar(&cfg.IngestAddress, "i", "", "email ingestion service address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStoreBackend != "" {
		cfg.StoreBackend = envStoreBackend
	}
	if envIngestAddress != "" {
		cfg.IngestAddress = envIngestAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	switch cfg.StoreBackend {
	case StoreBackendPostgres, StoreBackendFirestore:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.OverdueDays <= 0 {
		return nil, fmt.Errorf("overdue days must be positive, got %d", cfg.OverdueDays)
	}

	return cfg, nil
}
