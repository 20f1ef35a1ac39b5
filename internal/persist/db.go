package persist

import (
	"context"
	"fmt"
	"time"

	"fortio.org/safecast"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/config"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// NewDB opens a pool tagged with the rift application name. Queries are
// traced at debug level through log.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if poolCfg.MaxConns, err = safecast.Conv[int32](cfg.MaxOpenConns); err != nil {
		return nil, fmt.Errorf("max_open_conns: %w", err)
	}
	if poolCfg.MinConns, err = safecast.Conv[int32](cfg.MaxIdleConns); err != nil {
		return nil, fmt.Errorf("max_idle_conns: %w", err)
	}
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = "rift"
	}
	if log.Core().Enabled(zap.DebugLevel) {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   pgxLogger{log: log.Named("pgx")},
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	log.Info("database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// pgxLogger forwards pgx trace output to zap.
type pgxLogger struct {
	log *zap.Logger
}

func (l pgxLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}
	switch level {
	case tracelog.LogLevelError:
		l.log.Error(msg, fields...)
	case tracelog.LogLevelWarn:
		l.log.Warn(msg, fields...)
	case tracelog.LogLevelInfo:
		l.log.Info(msg, fields...)
	default:
		l.log.Debug(msg, fields...)
	}
}
