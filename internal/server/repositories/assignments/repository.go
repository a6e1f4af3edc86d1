package assignments

import (
	"context"

	"github.com/dmitrijs2005/warrantypool/internal/server/models"
)

// Repository is the assignments collection of the credential store.
type Repository interface {
	// Create fails with common.ErrAlreadyBound when the account already has
	// an assignment.
	Create(ctx context.Context, a *models.Assignment) (*models.Assignment, error)
	GetByAccount(ctx context.Context, accountID string) (*models.Assignment, error)
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
	// DeleteOrphans removes assignments whose account no longer exists.
	DeleteOrphans(ctx context.Context) (int64, error)
}
