// Package storage provides database connections and repository implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portal-admin/internal/config"
	apperrors "github.com/portal-admin/internal/errors"
)

// Postgres error codes the repositories translate
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx so repositories run
// both standalone and inside a transaction
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDB wraps the pgxpool connection
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB creates a new Postgres database connection
func NewPostgresDB(cfg *config.PostgresConfig) (*PostgresDB, error) {
	connString := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
		cfg.MaxConnections,
	)
	return NewPostgresDBFromDSN(connString, cfg.MaxConnections)
}

// NewPostgresDBFromDSN connects using a raw connection string
func NewPostgresDBFromDSN(dsn string, maxConns int) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Configure connection pool
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns) // #nosec G115 - MaxConnections is validated in config
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool returns the underlying connection pool
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks if the database is reachable
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back on any error, panic or context cancellation.
func (db *PostgresDB) InTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperrors.NewDatabaseError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			// Rollback must not use ctx: it may already be cancelled
			_ = tx.Rollback(context.Background())
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return translateError("commit transaction", err)
	}
	return nil
}

// translateError maps driver errors onto categorized errors. Errors that are
// already categorized pass through untouched.
func translateError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.NewConflictError(uniqueViolationMessage(pgErr))
		case pgForeignKeyViolation:
			return apperrors.NewValidationError("referenced record does not exist",
				map[string]string{pgErr.ConstraintName: "unknown reference"})
		case pgCheckViolation:
			return apperrors.NewValidationError("value violates a table constraint",
				map[string]string{pgErr.ConstraintName: "constraint violated"})
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewServiceUnavailableError("request timed out")
	}

	return apperrors.NewDatabaseError(operation, err)
}

func uniqueViolationMessage(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return fmt.Sprintf("duplicate value violates %s", pgErr.ConstraintName)
	}
	return "duplicate value"
}
