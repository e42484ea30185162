package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and the pgxmock
// pool. Repositories accept it so the caller decides the unit of work.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts transactions on a pooled connection.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ErrAcquireTimeout is returned when no pooled connection became available
// within the transactor's acquire timeout.
var ErrAcquireTimeout = errors.New("database: timed out acquiring connection")

// Transaction options used by services.
var (
	ReadWrite = pgx.TxOptions{}
	ReadOnly  = pgx.TxOptions{AccessMode: pgx.ReadOnly}
)

// Transactor runs functions inside a transaction. Each call holds exactly one
// pooled connection and releases it through Commit or Rollback.
type Transactor struct {
	db             TxBeginner
	acquireTimeout time.Duration
}

// NewTransactor creates a Transactor. A zero acquireTimeout waits as long as
// the caller's context allows.
func NewTransactor(db TxBeginner, acquireTimeout time.Duration) *Transactor {
	return &Transactor{db: db, acquireTimeout: acquireTimeout}
}

// WithinTx begins a transaction with opts, calls fn with it, and commits when
// fn returns nil. Any error from fn rolls the transaction back and is returned
// unchanged so callers can still match on it.
func (t *Transactor) WithinTx(ctx context.Context, opts pgx.TxOptions, fn func(db DBTX) error) error {
	tx, err := t.begin(ctx, opts)
	if err != nil {
		txTotal.WithLabelValues(accessMode(opts), "begin_error").Inc()
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			txTotal.WithLabelValues(accessMode(opts), "rollback").Inc()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		txTotal.WithLabelValues(accessMode(opts), "rollback").Inc()
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		txTotal.WithLabelValues(accessMode(opts), "commit_error").Inc()
		return fmt.Errorf("commit: %w", err)
	}
	txTotal.WithLabelValues(accessMode(opts), "commit").Inc()
	return nil
}

func (t *Transactor) begin(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if t.acquireTimeout <= 0 {
		tx, err := t.db.BeginTx(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		return tx, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, t.acquireTimeout)
	defer cancel()

	tx, err := t.db.BeginTx(acquireCtx, opts)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("begin transaction after %s: %w", t.acquireTimeout, ErrAcquireTimeout)
		}
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

func accessMode(opts pgx.TxOptions) string {
	if opts.AccessMode == pgx.ReadOnly {
		return "read_only"
	}
	return "read_write"
}

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err wraps a PostgreSQL unique constraint
// violation. Only a *pgconn.PgError carrying SQLSTATE 23505 matches; error
// text is never inspected.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

