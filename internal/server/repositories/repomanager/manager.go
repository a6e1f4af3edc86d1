package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/warrantypool/internal/dbx"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/assignments"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Assignments(db dbx.DBTX) assignments.Repository
}
