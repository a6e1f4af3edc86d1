// Package assignments provides the assignments collection of the credential
// store, backed by PostgreSQL.
package assignments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/dbx"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
)

const accountConstraint = "assignments_account_id_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Assignment) (*models.Assignment, error) {
	query :=
		`INSERT INTO assignments (id, consumer_name, account_id)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, a.ID, a.ConsumerName, a.AccountID).Scan(&a.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, accountConstraint) {
			return nil, common.ErrAlreadyBound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByAccount(ctx context.Context, accountID string) (*models.Assignment, error) {
	query :=
		`SELECT id, consumer_name, account_id, created_at FROM assignments
		 WHERE account_id = $1`

	a := &models.Assignment{}
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&a.ID, &a.ConsumerName, &a.AccountID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM assignments WHERE account_id = $1`, accountID)
}

func (r *PostgresRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	return r.exec(ctx,
		`DELETE FROM assignments s
		 WHERE NOT EXISTS (SELECT 1 FROM accounts a WHERE a.id = s.account_id)`)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
