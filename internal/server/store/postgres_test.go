package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db, repomanager.NewPostgresRepositoryManager(nil)), mock
}

func TestPostgresStore_WithTx_CommitsCascade(t *testing.T) {
	s, mock := newPostgresStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assignments WHERE account_id = $1`)).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts WHERE id = $1`)).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.Assignments().DeleteByAccount(ctx, "a1"); err != nil {
			return err
		}
		return tx.Accounts().Delete(ctx, "a1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTx_RollsBack(t *testing.T) {
	s, mock := newPostgresStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assignments WHERE account_id = $1`)).
		WithArgs("a1").
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		_, err := tx.Assignments().DeleteByAccount(ctx, "a1")
		return err
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTx_NestedJoinsOuter(t *testing.T) {
	s, mock := newPostgresStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.WithTx(ctx, func(ctx context.Context, inner Store) error {
			calls++
			assert.Same(t, tx, inner)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BeginError(t *testing.T) {
	s, mock := newPostgresStore(t)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	err := s.WithTx(context.Background(), func(ctx context.Context, tx Store) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestPostgresStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	s := NewPostgresStore(db, repomanager.NewPostgresRepositoryManager(nil))
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
