package store

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/warrantypool/internal/dbx"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/assignments"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/repomanager"
)

// PostgresStore binds the repository manager to a *sql.DB, or to a *sql.Tx
// inside WithTx.
type PostgresStore struct {
	db *sql.DB
	m  repomanager.RepositoryManager
	tx dbx.DBTX
}

func NewPostgresStore(db *sql.DB, m repomanager.RepositoryManager) *PostgresStore {
	return &PostgresStore{db: db, m: m}
}

func (s *PostgresStore) conn() dbx.DBTX {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Accounts() accounts.Repository {
	return s.m.Accounts(s.conn())
}

func (s *PostgresStore) Assignments() assignments.Repository {
	return s.m.Assignments(s.conn())
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &PostgresStore{db: s.db, m: s.m, tx: tx})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.m.RunMigrations(ctx, s.db)
}
