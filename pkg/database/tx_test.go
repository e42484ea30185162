package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	mock := newMock(t)
	tr := NewTransactor(mock, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM brands").
		WithArgs("b-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), ReadWrite, func(db DBTX) error {
		_, err := db.Exec(context.Background(), "DELETE FROM brands WHERE id = $1", "b-1")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackAndReturnsFnError(t *testing.T) {
	mock := newMock(t)
	tr := NewTransactor(mock, 0)
	sentinel := errors.New("brand not found")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tr.WithinTx(context.Background(), ReadWrite, func(db DBTX) error {
		return fmt.Errorf("delete: %w", sentinel)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_ReadOnlyOptions(t *testing.T) {
	mock := newMock(t)
	tr := NewTransactor(mock, time.Second)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), ReadOnly, func(db DBTX) error { return nil })

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_BeginError(t *testing.T) {
	mock := newMock(t)
	tr := NewTransactor(mock, time.Second)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := tr.WithinTx(context.Background(), ReadWrite, func(db DBTX) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_CommitError(t *testing.T) {
	mock := newMock(t)
	tr := NewTransactor(mock, time.Second)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset by peer"))

	err := tr.WithinTx(context.Background(), ReadWrite, func(db DBTX) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_PanicRollsBack(t *testing.T) {
	mock := newMock(t)
	tr := NewTransactor(mock, time.Second)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tr.WithinTx(context.Background(), ReadWrite, func(db DBTX) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

// blockingBeginner simulates an exhausted pool: BeginTx waits until the
// context is done.
type blockingBeginner struct{}

func (blockingBeginner) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithinTx_AcquireTimeout(t *testing.T) {
	tr := NewTransactor(blockingBeginner{}, 20*time.Millisecond)

	start := time.Now()
	err := tr.WithinTx(context.Background(), ReadWrite, func(db DBTX) error { return nil })

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWithinTx_CallerCancellationIsNotAcquireTimeout(t *testing.T) {
	tr := NewTransactor(blockingBeginner{}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.WithinTx(ctx, ReadWrite, func(db DBTX) error { return nil })

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAcquireTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg error 23505", &pgconn.PgError{Code: "23505", ConstraintName: "brands_name_key"}, true},
		{"wrapped pg error", fmt.Errorf("insert brand: %w", &pgconn.PgError{Code: "23505"}), true},
		{"other pg error", &pgconn.PgError{Code: "23503"}, false},
		{"plain error with sqlstate text", errors.New("ERROR: duplicate key (SQLSTATE 23505)"), false},
		{"text mentioning the code", errors.New("brand 23505 not found"), false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
