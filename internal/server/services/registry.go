package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"
	"github.com/google/uuid"
)

// AssignmentRegistry maintains the 1:1 binding between consumers and
// accounts. It is stateless; every call takes the Store (or transactional
// Store) it should act on.
type AssignmentRegistry struct {
	newID func() string
}

func NewAssignmentRegistry() *AssignmentRegistry {
	return &AssignmentRegistry{newID: uuid.NewString}
}

// Bind records that consumerName holds accountID. It fails with
// common.ErrAlreadyBound when the account is taken.
func (r *AssignmentRegistry) Bind(ctx context.Context, s store.Store, consumerName, accountID string) (*models.Assignment, error) {
	return s.Assignments().Create(ctx, &models.Assignment{
		ID:           r.newID(),
		ConsumerName: consumerName,
		AccountID:    accountID,
	})
}

// Unbind removes every assignment of accountID.
func (r *AssignmentRegistry) Unbind(ctx context.Context, s store.Store, accountID string) (int64, error) {
	return s.Assignments().DeleteByAccount(ctx, accountID)
}

// ConsumerOf returns the consumer bound to accountID, or "" when the
// account is free.
func (r *AssignmentRegistry) ConsumerOf(ctx context.Context, s store.Store, accountID string) (string, error) {
	a, err := s.Assignments().GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}
	return a.ConsumerName, nil
}
