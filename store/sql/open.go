package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-unifiedauth/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config describes the database behind the stores. It satisfies the
// go-persistence-bun client configuration.
type Config struct {
	Driver      string        `koanf:"driver" mapstructure:"driver" env:"DRIVER"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn" env:"DSN"`
	Debug       bool          `koanf:"debug" mapstructure:"debug" env:"DEBUG"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout" env:"PING_TIMEOUT"`
	AutoMigrate bool          `koanf:"auto_migrate" mapstructure:"auto_migrate" env:"AUTO_MIGRATE"`
}

func DefaultConfig() Config {
	return Config{
		Driver:      DriverSQLite,
		DSN:         "file:unifiedauth.db?cache=shared&_foreign_keys=on",
		PingTimeout: 5 * time.Second,
		AutoMigrate: true,
	}
}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	driver, _, _, err := resolveDriver(c.Driver)
	if err != nil {
		return strings.TrimSpace(c.Driver)
	}
	return driver
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	return "go-unifiedauth"
}

// Open connects to the configured database and, when AutoMigrate is set,
// applies the embedded migrations for its dialect.
func Open(ctx context.Context, cfg Config) (*persistence.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	driver, dialect, migrationDialect, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	if !cfg.AutoMigrate {
		return client, nil
	}

	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(migrationDialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

func resolveDriver(name string) (string, schema.Dialect, string, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, sqlitedialect.New(), migrations.DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DriverPostgres, pgdialect.New(), migrations.DialectPostgres, nil
	default:
		return "", nil, "", fmt.Errorf("sqlstore: unsupported driver %q", name)
	}
}
