package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/candidate-search/internal/common"
)

// Open connects to postgres when cfg.DSN is set and to sqlite at cfg.SQLitePath otherwise,
// and makes sure the candidates table exists.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*CandidateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		s   *CandidateStore
		err error
	)
	switch {
	case cfg.DSN != "":
		s, err = openPostgres(ctx, cfg, logger)
	case cfg.SQLitePath != "":
		s, err = OpenSQLite(ctx, cfg.SQLitePath, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "DB_URL or SQLITE_PATH is required", common.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openPostgres creates a pgx pool and wraps it for the ent SQL driver.
func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*CandidateStore, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "candidate-search"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect: %w", err)
	}

	// Wrap pool as *sql.DB for the ent driver
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return newStore(entsql.OpenDB(dialect.Postgres, db), pool, logger), nil
}

// OpenSQLite opens (or creates) a sqlite database file; ":memory:" is accepted.
// The table is not created; use Open or call Migrate.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*CandidateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening database", "dialect", dialect.SQLite, "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return newStore(entsql.OpenDB(dialect.SQLite, db), nil, logger), nil
}

// Close closes the database connections gracefully
func (s *CandidateStore) Close() {
	s.logger.Info("closing database connections")
	if err := s.drv.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (s *CandidateStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.logger.Debug("pinging database")
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.drv.DB().PingContext(ctx)
}
