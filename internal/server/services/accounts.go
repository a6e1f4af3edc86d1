package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"
	"github.com/dmitrijs2005/warrantypool/internal/timex"
	"github.com/google/uuid"
)

// maxKeyAttempts bounds warranty key regeneration on collision.
const maxKeyAttempts = 8

var (
	makeWarrantyKey = common.MakeWarrantyKey
	newAccountID    = func() (string, error) {
		id, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
)

// UploadRequest describes a new pooled account. Dates are optional and may
// be ISO ("2025-01-31") or stored ("01/31/25").
type UploadRequest struct {
	Username     string
	Secret       string
	SessionToken string
	RegisterDate string
	ExpireDate   string
}

type UploadResult struct {
	AccountID   string
	WarrantyKey string
}

// AccountService is the administrative side of the pool.
type AccountService struct {
	store     store.Store
	registry  *AssignmentRegistry
	log       logging.Logger
	keyLength int
}

func NewAccountService(s store.Store, log logging.Logger, keyLength int) *AccountService {
	if keyLength <= 0 {
		keyLength = common.DefaultWarrantyKeyLength
	}
	if log == nil {
		log = logging.NopLogger{}
	}
	return &AccountService{
		store:     s,
		registry:  NewAssignmentRegistry(),
		log:       log.With("component", "accounts"),
		keyLength: keyLength,
	}
}

// Upload stores a new free account under a freshly generated warranty key.
// Account IDs are time-ordered, so ID order is upload order.
func (s *AccountService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, common.NewValidationError("username", "is required")
	}
	if req.Secret == "" {
		return nil, common.NewValidationError("secret", "is required")
	}
	if strings.TrimSpace(req.SessionToken) == "" {
		return nil, common.NewValidationError("session_token", "is required")
	}

	register, err := timex.NormalizeDate(req.RegisterDate)
	if err != nil {
		return nil, common.NewValidationError("register_date", "must be YYYY-MM-DD or MM/DD/YY")
	}
	expire, err := timex.NormalizeDate(req.ExpireDate)
	if err != nil {
		return nil, common.NewValidationError("expire_date", "must be YYYY-MM-DD or MM/DD/YY")
	}
	if !timex.NotBefore(register, expire) {
		return nil, common.NewValidationError("expire_date", "must not be before register_date")
	}

	id, err := newAccountID()
	if err != nil {
		return nil, common.ErrorInternal
	}

	accounts := s.store.Accounts()
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := makeWarrantyKey(s.keyLength)
		if err != nil {
			return nil, common.ErrorInternal
		}
		exists, err := accounts.WarrantyKeyExists(ctx, key)
		if err != nil {
			return nil, common.StoreError("check warranty key", err)
		}
		if exists {
			continue
		}

		_, err = accounts.Create(ctx, &models.Account{
			ID:           id,
			Username:     strings.TrimSpace(req.Username),
			Secret:       req.Secret,
			SessionToken: req.SessionToken,
			RegisterDate: register,
			ExpireDate:   expire,
			WarrantyKey:  key,
		})
		if errors.Is(err, common.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return nil, common.StoreError("create account", err)
		}

		s.log.Info(ctx, "account uploaded", "account_id", id)
		return &UploadResult{AccountID: id, WarrantyKey: key}, nil
	}
	return nil, common.ErrKeySpaceExhausted
}

// Delete removes an account and its assignments in one transaction.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := s.registry.Unbind(ctx, tx, id); err != nil {
			return err
		}
		return tx.Accounts().Delete(ctx, id)
	})
	if err != nil {
		return wrapStoreError("delete account", err)
	}
	s.log.Info(ctx, "account deleted", "account_id", id)
	return nil
}

// Update changes the fields set in patch. Date fields are normalized to the
// stored form and the resulting dates must stay in order.
func (s *AccountService) Update(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	if patch.Empty() {
		return nil, common.NewValidationError("fields", "must not be empty")
	}
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return nil, common.NewValidationError("username", "must not be empty")
	}
	if patch.Secret != nil && *patch.Secret == "" {
		return nil, common.NewValidationError("secret", "must not be empty")
	}
	if patch.SessionToken != nil && strings.TrimSpace(*patch.SessionToken) == "" {
		return nil, common.NewValidationError("session_token", "must not be empty")
	}
	if err := normalizePatchDate(&patch.RegisterDate, "register_date"); err != nil {
		return nil, err
	}
	if err := normalizePatchDate(&patch.ExpireDate, "expire_date"); err != nil {
		return nil, err
	}

	var updated *models.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		current, err := tx.Accounts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		merged := current.Clone()
		patch.Apply(merged)
		if !timex.NotBefore(merged.RegisterDate, merged.ExpireDate) {
			return common.NewValidationError("expire_date", "must not be before register_date")
		}
		if merged.Version, err = tx.Accounts().Update(ctx, id, patch, current.Version); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("update account", err)
	}
	s.log.Info(ctx, "account updated", "account_id", id)
	return updated, nil
}

// Clear frees an account: its assignments are removed and its dates reset.
// The warranty key is kept.
func (s *AccountService) Clear(ctx context.Context, id string) error {
	empty := ""
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Accounts().GetByID(ctx, id); err != nil {
			return err
		}
		if _, err := s.registry.Unbind(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.Accounts().Update(ctx, id, models.AccountPatch{RegisterDate: &empty, ExpireDate: &empty}, 0)
		return err
	})
	if err != nil {
		return wrapStoreError("clear account", err)
	}
	s.log.Info(ctx, "account cleared", "account_id", id)
	return nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreError("get account", err)
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context) ([]*models.Account, error) {
	list, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, common.StoreError("list accounts", err)
	}
	return list, nil
}

func normalizePatchDate(v **string, field string) error {
	if *v == nil {
		return nil
	}
	n, err := timex.NormalizeDate(**v)
	if err != nil {
		return common.NewValidationError(field, "must be YYYY-MM-DD or MM/DD/YY")
	}
	*v = &n
	return nil
}

// wrapStoreError passes caller-facing errors through and wraps the rest as
// store failures.
func wrapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrVersionConflict):
		return err
	}
	return common.StoreError(op, err)
}
