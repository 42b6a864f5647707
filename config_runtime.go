package casclient

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	memorystorage "github.com/porthorian/casclient/pkg/proxy/memory"
	postgresstorage "github.com/porthorian/casclient/pkg/proxy/postgres"
	"github.com/porthorian/casclient/pkg/ssl"
)

type StorageBackend string

const (
	StorageBackendNone     StorageBackend = "none"
	StorageBackendMemory   StorageBackend = "memory"
	StorageBackendPostgres StorageBackend = "postgres"
)

type RuntimeConfig struct {
	// Protocol selects the validator variant by name. Defaults to
	// "serviceValidate".
	Protocol string

	Storage StorageConfig
	TLS     ssl.Config
}

type StorageConfig struct {
	Backend  StorageBackend
	Memory   MemoryStorageConfig
	Postgres PostgresConfig
}

type MemoryStorageConfig struct {
	TicketTTL time.Duration
}

type PostgresConfig struct {
	DriverName      string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	TicketTTL       time.Duration
	OpenDB          func(driverName string, dsn string) (*sql.DB, error)
}

func (c Config) initialize(ctx context.Context) (func() error, Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	config := c
	config.Logger = resolveLogger(config.Logger)

	closeTransport, config, err := initializeTransport(config)
	if err != nil {
		return nil, Config{}, err
	}

	closeStorage, config, err := initializeStorage(ctx, config)
	if err != nil {
		_ = closeTransport()
		return nil, Config{}, err
	}

	return joinClosers(closeTransport, closeStorage), config, nil
}

func initializeTransport(config Config) (func() error, Config, error) {
	if config.HTTPClient != nil {
		return noopCloser, config, nil
	}

	client, err := ssl.NewHTTPClient(config.Runtime.TLS)
	if err != nil {
		return nil, Config{}, err
	}

	config.HTTPClient = client
	if config.Runtime.TLS.IgnoreSSLFailures {
		config.Logger.Info("certificate and hostname verification are disabled; do not use this in production")
	}
	return noopCloser, config, nil
}

func initializeStorage(ctx context.Context, config Config) (func() error, Config, error) {
	backend := config.Runtime.Storage.Backend
	if backend == "" {
		backend = StorageBackendNone
	}

	switch backend {
	case StorageBackendNone:
		return noopCloser, config, nil
	case StorageBackendMemory:
		return initializeMemoryStorage(config)
	case StorageBackendPostgres:
		return initializePostgres(ctx, config)
	default:
		return nil, Config{}, fmt.Errorf("casclient config: unsupported runtime.storage.backend %q", backend)
	}
}

func initializeMemoryStorage(config Config) (func() error, Config, error) {
	if config.PGTStorage == nil {
		config.PGTStorage = memorystorage.NewAdapter(config.Runtime.Storage.Memory.TicketTTL)
	}

	config.Logger.V(1).Info("initialized memory pgt storage backend")
	return noopCloser, config, nil
}

func initializePostgres(ctx context.Context, config Config) (func() error, Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pgConfig := config.Runtime.Storage.Postgres
	if pgConfig.DSN == "" {
		return nil, Config{}, fmt.Errorf("casclient config: runtime.storage.postgres.dsn is required")
	}

	if pgConfig.DriverName == "" {
		pgConfig.DriverName = "pgx"
	}
	if pgConfig.PingTimeout <= 0 {
		pgConfig.PingTimeout = 5 * time.Second
	}
	if pgConfig.OpenDB == nil {
		pgConfig.OpenDB = sql.Open
	}

	db, err := pgConfig.OpenDB(pgConfig.DriverName, pgConfig.DSN)
	if err != nil {
		return nil, Config{}, fmt.Errorf("casclient config: failed to open postgres database: %w", err)
	}

	if pgConfig.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	}
	if pgConfig.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	}
	if pgConfig.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pgConfig.ConnMaxLifetime)
	}
	if pgConfig.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pgConfig.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgConfig.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("casclient config: failed to ping postgres database: %w", err)
	}

	adapter, err := postgresstorage.NewAdapter(db, pgConfig.TicketTTL)
	if err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("casclient config: failed to initialize postgres adapter: %w", err)
	}

	if config.PGTStorage == nil {
		config.PGTStorage = adapter
	}

	closeResource := func() error {
		return stderrors.Join(adapter.Close(), db.Close())
	}

	config.Runtime.Storage.Postgres = pgConfig
	config.Logger.V(1).Info("initialized postgres pgt storage backend", "driver", pgConfig.DriverName, "max_open_conns", pgConfig.MaxOpenConns, "max_idle_conns", pgConfig.MaxIdleConns)
	return closeResource, config, nil
}

func joinClosers(closers ...func() error) func() error {
	return func() error {
		var errs []error

		for i := len(closers) - 1; i >= 0; i-- {
			if closers[i] == nil {
				continue
			}
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}

		return stderrors.Join(errs...)
	}
}

func noopCloser() error {
	return nil
}
