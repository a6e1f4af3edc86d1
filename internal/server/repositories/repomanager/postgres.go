// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/warrantypool/internal/cryptox"
	"github.com/dmitrijs2005/warrantypool/internal/dbx"
	"github.com/dmitrijs2005/warrantypool/internal/server/migrations"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/assignments"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	sealer cryptox.Sealer
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db, m.sealer)
}

// Assignments returns an assignments.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Assignments(db dbx.DBTX) assignments.Repository {
	return assignments.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
// Account secrets and session tokens are sealed with sealer (nil = unsealed).
func NewPostgresRepositoryManager(sealer cryptox.Sealer) RepositoryManager {
	if sealer == nil {
		sealer = cryptox.NopSealer{}
	}
	return &PostgresRepositoryManager{sealer: sealer}
}
