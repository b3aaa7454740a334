package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/shortcode"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const maxTxAttempts = 3

type Options struct {
	ShortCodeLength int
	MaxCodeAttempts int
	// StoreTimeout bounds every public repository call. Zero disables it.
	StoreTimeout time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type codeGenerator interface {
	Generate() (string, error)
	Length() int
}

type PostgresRepository struct {
	pool       *pgxpool.Pool
	sb         squirrel.StatementBuilderType
	logger     *zap.Logger
	codes      codeGenerator
	aggregator *Aggregator

	maxCodeAttempts int
	timeout         time.Duration
}

func NewPostgresRepository(ctx context.Context, dsn string, opts Options, logger *zap.Logger) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if opts.ShortCodeLength == 0 {
		opts.ShortCodeLength = shortcode.DefaultLength
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = 10
	}

	codes, err := shortcode.New(opts.ShortCodeLength)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(dsn, logger); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("PostgreSQL repository initialized",
		zap.Int32("max_conns", config.MaxConns),
		zap.Int("short_code_length", opts.ShortCodeLength),
	)

	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	return &PostgresRepository{
		pool:            pool,
		sb:              sb,
		logger:          logger,
		codes:           codes,
		aggregator:      NewAggregator(sb),
		maxCodeAttempts: opts.MaxCodeAttempts,
		timeout:         opts.StoreTimeout,
	}, nil
}

func runMigrations(dsn string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database for migrations: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("Migrations applied successfully")
	return nil
}

func (p *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if err := p.pool.Ping(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

func (p *PostgresRepository) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// withTx runs fn in a READ COMMITTED transaction, retrying the whole
// transaction on deadlock or serialization failure. fn must not leak state
// between attempts.
func (p *PostgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = p.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			break
		}
		p.logger.Warn("Retrying transaction",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return translateError(err)
}

func (p *PostgresRepository) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.DeadlockDetected || pgErr.Code == pgerrcode.SerializationFailure
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// translateError maps storage errors onto apperror codes. Errors that already
// carry a code pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.ErrNotFound.WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return apperror.ErrTimeout.WithCause(err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return apperror.ErrUnavailable.WithCause(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return apperror.Conflict("already exists").WithCause(err)
		case pgErr.Code == pgerrcode.QueryCanceled:
			return apperror.ErrTimeout.WithCause(err)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code):
			return apperror.ErrUnavailable.WithCause(err)
		}
	}

	return apperror.Internal("storage failure", err)
}
