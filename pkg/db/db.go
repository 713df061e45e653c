// Package db provides GORM initialization, connection pooling, a slog-backed
// query logger and a transaction helper that threads the tx through context so
// repositories can participate in a caller-owned transaction.
package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wyfcoding/fractionalfunding/pkg/config"
	pkglogger "github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
)

// DB wraps a gorm.DB with config.
type DB struct {
	*gorm.DB
	config config.DatabaseConfig
}

// Transactor runs a function inside a database transaction. Services depend
// on this interface rather than the concrete DB so transaction boundaries can
// be faked in tests.
type Transactor interface {
	Transaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Init opens the database connection and configures the pool. Query counts
// and latencies are recorded on m when it is non-nil.
func Init(cfg config.DatabaseConfig, m *metrics.Metrics) (*DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(cfg.LogEnabled, time.Duration(cfg.SlowQueryThreshold)*time.Millisecond, m),
		// Driver errors become gorm sentinels, so repositories can map
		// duplicate-key violations onto domain errors.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pkglogger.Info(context.Background(), "database connected", "driver", cfg.Driver)

	return &DB{DB: db, config: cfg}, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txContextKey struct{}

// ContextWithTx returns ctx carrying tx for repository methods.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// FromContext returns the tx carried by ctx, or fallback when none is.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}

// Transaction runs fn inside a database transaction. The tx handle is placed
// into the context passed to fn so every repository call inside joins the
// same transaction. Rolls back on error, commits otherwise.
func (d *DB) Transaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx := d.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	return nil
}

// GormLogger adapts the package logger to gorm's logger interface and feeds
// the database collectors.
type GormLogger struct {
	enabled            bool
	slowQueryThreshold time.Duration
	metrics            *metrics.Metrics
}

// NewGormLogger builds a GormLogger.
func NewGormLogger(enabled bool, slowQueryThreshold time.Duration, m *metrics.Metrics) *GormLogger {
	return &GormLogger{enabled: enabled, slowQueryThreshold: slowQueryThreshold, metrics: m}
}

// LogMode implements gorm logger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return l
}

// Info implements gorm logger.Interface.
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.enabled {
		pkglogger.Info(ctx, msg, "data", data)
	}
}

// Warn implements gorm logger.Interface.
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	pkglogger.Warn(ctx, msg, "data", data)
}

// Error implements gorm logger.Interface.
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	pkglogger.Error(ctx, msg, "data", data)
}

// Trace logs SQL execution, flagging slow queries.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sqlStr, rows := fc()

	if l.metrics != nil {
		l.metrics.DBQueriesTotal.Inc()
		l.metrics.DBQueryDuration.Observe(elapsed.Seconds())
	}

	args := []interface{}{
		"duration", elapsed,
		"rows", rows,
		"sql", sqlStr,
	}

	if err != nil && err != gorm.ErrRecordNotFound {
		args = append(args, "error", err)
		pkglogger.Error(ctx, "sql execution failed", args...)
	} else if elapsed > l.slowQueryThreshold {
		pkglogger.Warn(ctx, "slow query detected", args...)
	} else if l.enabled {
		pkglogger.Debug(ctx, "sql executed", args...)
	}
}
