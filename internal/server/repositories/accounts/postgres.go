// Package accounts provides the accounts collection of the credential store,
// backed by PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/cryptox"
	"github.com/dmitrijs2005/warrantypool/internal/dbx"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
)

const selectColumns = `id, username, secret, session_token, register_date, expire_date,
		warranty_key, version, lease_owner, lease_expires_at, created_at`

const warrantyKeyConstraint = "accounts_warranty_key_key"

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
// Secret and session token columns are sealed with the configured Sealer.
type PostgresRepository struct {
	db     dbx.DBTX
	sealer cryptox.Sealer
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
// A nil sealer stores values unsealed.
func NewPostgresRepository(db dbx.DBTX, sealer cryptox.Sealer) *PostgresRepository {
	if sealer == nil {
		sealer = cryptox.NopSealer{}
	}
	return &PostgresRepository{db: db, sealer: sealer}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	secret, err := r.sealer.Seal(a.Secret)
	if err != nil {
		return nil, fmt.Errorf("seal secret: %w", err)
	}
	token, err := r.sealer.Seal(a.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("seal session token: %w", err)
	}

	query :=
		`INSERT INTO accounts (id, username, secret, session_token, register_date, expire_date, warranty_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING version, created_at`

	err = r.db.QueryRowContext(ctx, query,
		a.ID, a.Username, secret, token, a.RegisterDate, a.ExpireDate, a.WarrantyKey,
	).Scan(&a.Version, &a.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, warrantyKeyConstraint) {
			return nil, common.ErrDuplicateKey
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByWarrantyKey(ctx context.Context, key string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE warranty_key = $1`
	return r.getOne(ctx, query, key)
}

func (r *PostgresRepository) WarrantyKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE warranty_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts ORDER BY id`
	return r.getMany(ctx, query)
}

func (r *PostgresRepository) ListFree(ctx context.Context, now time.Time) ([]*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts a
		WHERE NOT EXISTS (SELECT 1 FROM assignments s WHERE s.account_id = a.id)
		  AND (a.lease_owner IS NULL OR a.lease_expires_at < $1)
		ORDER BY a.id`
	return r.getMany(ctx, query, now)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, patch models.AccountPatch, expectedVersion int64) (int64, error) {
	if patch.Empty() {
		return 0, common.NewValidationError("fields", "must not be empty")
	}

	var sets []string
	var args []any
	add := func(column, value string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.Secret != nil {
		v, err := r.sealer.Seal(*patch.Secret)
		if err != nil {
			return 0, fmt.Errorf("seal secret: %w", err)
		}
		add("secret", v)
	}
	if patch.SessionToken != nil {
		v, err := r.sealer.Seal(*patch.SessionToken)
		if err != nil {
			return 0, fmt.Errorf("seal session token: %w", err)
		}
		add("session_token", v)
	}
	if patch.RegisterDate != nil {
		add("register_date", *patch.RegisterDate)
	}
	if patch.ExpireDate != nil {
		add("expire_date", *patch.ExpireDate)
	}
	sets = append(sets, "version = version + 1")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if expectedVersion != 0 {
		args = append(args, expectedVersion)
		query += fmt.Sprintf(" AND version = $%d", len(args))
	}
	query += " RETURNING version"

	var version int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if expectedVersion != 0 {
				return 0, common.ErrVersionConflict
			}
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) AcquireLease(ctx context.Context, id, owner string, now, until time.Time) (int64, error) {
	query :=
		`UPDATE accounts SET lease_owner = $2, lease_expires_at = $3
		 WHERE id = $1 AND (lease_owner IS NULL OR lease_owner = $2 OR lease_expires_at < $4)
		 RETURNING version`

	var version int64
	err := r.db.QueryRowContext(ctx, query, id, owner, until, now).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.leaseMiss(ctx, id)
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}

// leaseMiss tells a lease held elsewhere from an account that is gone.
func (r *PostgresRepository) leaseMiss(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return common.ErrorNotFound
	}
	return common.ErrLeaseHeld
}

func (r *PostgresRepository) ReleaseLease(ctx context.Context, id, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET lease_owner = NULL, lease_expires_at = NULL WHERE id = $1 AND lease_owner = $2`,
		id, owner)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET lease_owner = NULL, lease_expires_at = NULL
		 WHERE lease_owner IS NOT NULL AND lease_expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scan(row scanner) (*models.Account, error) {
	var (
		a          models.Account
		leaseOwner sql.NullString
		leaseUntil sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.Secret, &a.SessionToken, &a.RegisterDate, &a.ExpireDate,
		&a.WarrantyKey, &a.Version, &leaseOwner, &leaseUntil, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.LeaseOwner = leaseOwner.String
	if leaseUntil.Valid {
		a.LeaseExpiresAt = leaseUntil.Time
	}

	if a.Secret, err = r.sealer.Open(a.Secret); err != nil {
		return nil, fmt.Errorf("open secret of %s: %w", a.ID, err)
	}
	if a.SessionToken, err = r.sealer.Open(a.SessionToken); err != nil {
		return nil, fmt.Errorf("open session token of %s: %w", a.ID, err)
	}
	return &a, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	a, err := r.scan(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) getMany(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
