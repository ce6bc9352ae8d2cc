package cache

import (
	"context"
	"time"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PostgresCache shares entries between processes through a cache_entries
// table. Expired rows are ignored on read and overwritten on the next write.
type PostgresCache struct {
	pool *pgxpool.Pool
	log  Log
}

// NewPostgresCache connects to dsn and applies the migrations found in
// migrationsDir.
func NewPostgresCache(ctx context.Context, dsn, migrationsDir string, log Log) (*PostgresCache, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database DSN")
	}

	if err := migrateUp(dsn, migrationsDir, log); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	log.Info("cache database connected")

	return &PostgresCache{
		pool: pool,
		log:  log,
	}, nil
}

func migrateUp(dsn, dir string, log Log) error {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return errors.Wrap(err, "unable to parse connection string")
	}
	sqlDB := stdlib.OpenDB(*connConfig)
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "getting migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "creating migration instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "performing migration")
	}
	log.Info("cache schema up to date", zap.String("migrations", dir))
	return nil
}

func (pc *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := pc.pool.QueryRow(ctx,
		`SELECT value FROM cache_entries WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read cache entry")
	}
	return value, true, nil
}

func (pc *PostgresCache) Set(ctx context.Context, key string, value []byte, tags []string, life Lifetime) error {
	if tags == nil {
		tags = []string{}
	}
	_, err := pc.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, value, tags, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, tags = EXCLUDED.tags, expires_at = EXCLUDED.expires_at
	`, key, value, tags, time.Now().Add(life.Revalidate()))
	if err != nil {
		return errors.Wrap(err, "failed to write cache entry")
	}
	return nil
}

func (pc *PostgresCache) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	tag, err := pc.pool.Exec(ctx, `DELETE FROM cache_entries WHERE tags && $1::text[]`, tags)
	if err != nil {
		pc.log.Error("failed to invalidate cache tags", zap.Strings("tags", tags), zap.Error(err))
		return errors.Wrap(err, "failed to invalidate cache tags")
	}
	pc.log.Info("cache tags invalidated", zap.Strings("tags", tags), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

func (pc *PostgresCache) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pc.pool.Ping(ctx); err != nil {
		pc.log.Error("database ping failed", zap.Error(err))
		return false
	}
	return true
}

func (pc *PostgresCache) Close() bool {
	if pc.pool != nil {
		pc.pool.Close()
		pc.log.Info("cache database pool closed")
		return true
	}
	pc.log.Info("attempted to close a nil database connection pool")
	return false
}
