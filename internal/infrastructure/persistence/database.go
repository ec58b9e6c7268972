package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/saas/backoffice/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the PostgreSQL connection shared by every repository
type Database struct {
	DB *gorm.DB
}

// Option adjusts the gorm.Config built by GormConfig
type Option func(*gorm.Config)

// WithLogger routes GORM logs through l, normally a logger.GormLogger
func WithLogger(l logger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

// WithoutPreparedStatements turns off the statement cache. PgBouncer in
// transaction mode and sqlmock both need it.
func WithoutPreparedStatements() Option {
	return func(c *gorm.Config) { c.PrepareStmt = false }
}

// GormConfig returns the settings every connection uses. TranslateError must
// stay on: the repositories detect unique violations as gorm.ErrDuplicatedKey.
// Timestamps are written in UTC so day buckets agree across hosts.
func GormConfig(opts ...Option) *gorm.Config {
	cfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewDatabase opens the pool described by cfg and verifies it with a ping
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(opts...))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	d := &Database{DB: db}

	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return pool, nil
}

// Ping backs the /health database check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// Stats reports connection pool usage
func (d *Database) Stats() (sql.DBStats, error) {
	pool, err := d.pool()
	if err != nil {
		return sql.DBStats{}, err
	}
	return pool.Stats(), nil
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}
