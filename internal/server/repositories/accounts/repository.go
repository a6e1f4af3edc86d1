package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/server/models"
)

// Repository is the accounts collection of the credential store.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByWarrantyKey(ctx context.Context, key string) (*models.Account, error)
	WarrantyKeyExists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]*models.Account, error)
	// ListFree returns accounts with no assignment and no live lease,
	// ordered by ascending ID.
	ListFree(ctx context.Context, now time.Time) ([]*models.Account, error)
	// Update applies patch. A non-zero expectedVersion makes the write
	// conditional; a mismatch yields common.ErrVersionConflict.
	Update(ctx context.Context, id string, patch models.AccountPatch, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, id string) error
	// AcquireLease returns the current version when the lease was taken,
	// common.ErrLeaseHeld when another owner holds it, or
	// common.ErrorNotFound when the account is gone.
	AcquireLease(ctx context.Context, id, owner string, now, until time.Time) (int64, error)
	ReleaseLease(ctx context.Context, id, owner string) error
	ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error)
}
