package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/assignments"
)

type memData struct {
	accounts map[string]*models.Account
	// assignments is keyed by account ID, which is what keeps bindings 1:1.
	assignments map[string]*models.Assignment
}

func (d *memData) clone() *memData {
	c := &memData{
		accounts:    make(map[string]*models.Account, len(d.accounts)),
		assignments: make(map[string]*models.Assignment, len(d.assignments)),
	}
	for k, v := range d.accounts {
		c.accounts[k] = v.Clone()
	}
	for k, v := range d.assignments {
		a := *v
		c.assignments[k] = &a
	}
	return c
}

// MemoryStore keeps both collections in process memory behind one mutex.
// WithTx holds the mutex for the whole callback and restores a snapshot
// when the callback fails.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			accounts:    map[string]*models.Account{},
			assignments: map[string]*models.Assignment{},
		},
		now: time.Now,
	}
}

func (s *MemoryStore) locked(fn func(d *memData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *MemoryStore) Accounts() accounts.Repository {
	return &memAccounts{run: s.locked, now: s.now}
}

func (s *MemoryStore) Assignments() assignments.Repository {
	return &memAssignments{run: s.locked, now: s.now}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(ctx, &memTx{s: s})
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// memTx is the Store view handed to a WithTx callback. The outer mutex is
// already held, so its repositories touch the data directly.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) direct(fn func(d *memData) error) error {
	return fn(t.s.data)
}

func (t *memTx) Accounts() accounts.Repository {
	return &memAccounts{run: t.direct, now: t.s.now}
}

func (t *memTx) Assignments() assignments.Repository {
	return &memAssignments{run: t.direct, now: t.s.now}
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return fn(ctx, t)
}

func (t *memTx) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memAccounts struct {
	run func(func(d *memData) error) error
	now func() time.Time
}

func (r *memAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	var out *models.Account
	err := r.run(func(d *memData) error {
		if _, ok := d.accounts[a.ID]; ok {
			return fmt.Errorf("account %s already exists", a.ID)
		}
		for _, existing := range d.accounts {
			if existing.WarrantyKey == a.WarrantyKey {
				return common.ErrDuplicateKey
			}
		}
		a.Version = 1
		a.CreatedAt = r.now()
		a.LeaseOwner = ""
		a.LeaseExpiresAt = time.Time{}
		d.accounts[a.ID] = a.Clone()
		out = a
		return nil
	})
	return out, err
}

func (r *memAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var out *models.Account
	err := r.run(func(d *memData) error {
		a, ok := d.accounts[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *memAccounts) GetByWarrantyKey(ctx context.Context, key string) (*models.Account, error) {
	var out *models.Account
	err := r.run(func(d *memData) error {
		for _, a := range d.accounts {
			if a.WarrantyKey == key {
				out = a.Clone()
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r *memAccounts) WarrantyKeyExists(ctx context.Context, key string) (bool, error) {
	_, err := r.GetByWarrantyKey(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memAccounts) List(ctx context.Context) ([]*models.Account, error) {
	return r.filter(func(d *memData, a *models.Account) bool { return true })
}

func (r *memAccounts) ListFree(ctx context.Context, now time.Time) ([]*models.Account, error) {
	return r.filter(func(d *memData, a *models.Account) bool {
		if _, bound := d.assignments[a.ID]; bound {
			return false
		}
		return a.LeaseOwner == "" || a.LeaseExpiresAt.Before(now)
	})
}

func (r *memAccounts) filter(keep func(d *memData, a *models.Account) bool) ([]*models.Account, error) {
	var out []*models.Account
	err := r.run(func(d *memData) error {
		for _, a := range d.accounts {
			if keep(d, a) {
				out = append(out, a.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *memAccounts) Update(ctx context.Context, id string, patch models.AccountPatch, expectedVersion int64) (int64, error) {
	if patch.Empty() {
		return 0, common.NewValidationError("fields", "must not be empty")
	}
	var version int64
	err := r.run(func(d *memData) error {
		a, ok := d.accounts[id]
		if !ok {
			return common.ErrorNotFound
		}
		if expectedVersion != 0 && a.Version != expectedVersion {
			return common.ErrVersionConflict
		}
		patch.Apply(a)
		a.Version++
		version = a.Version
		return nil
	})
	return version, err
}

func (r *memAccounts) Delete(ctx context.Context, id string) error {
	return r.run(func(d *memData) error {
		if _, ok := d.accounts[id]; !ok {
			return common.ErrorNotFound
		}
		delete(d.accounts, id)
		return nil
	})
}

func (r *memAccounts) AcquireLease(ctx context.Context, id, owner string, now, until time.Time) (int64, error) {
	var version int64
	err := r.run(func(d *memData) error {
		a, ok := d.accounts[id]
		if !ok {
			return common.ErrorNotFound
		}
		if a.LeaseOwner != "" && a.LeaseOwner != owner && !a.LeaseExpiresAt.Before(now) {
			return common.ErrLeaseHeld
		}
		a.LeaseOwner = owner
		a.LeaseExpiresAt = until
		version = a.Version
		return nil
	})
	return version, err
}

func (r *memAccounts) ReleaseLease(ctx context.Context, id, owner string) error {
	return r.run(func(d *memData) error {
		if a, ok := d.accounts[id]; ok && a.LeaseOwner == owner {
			a.LeaseOwner = ""
			a.LeaseExpiresAt = time.Time{}
		}
		return nil
	})
}

func (r *memAccounts) ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.run(func(d *memData) error {
		for _, a := range d.accounts {
			if a.LeaseOwner != "" && a.LeaseExpiresAt.Before(now) {
				a.LeaseOwner = ""
				a.LeaseExpiresAt = time.Time{}
				n++
			}
		}
		return nil
	})
	return n, err
}

type memAssignments struct {
	run func(func(d *memData) error) error
	now func() time.Time
}

func (r *memAssignments) Create(ctx context.Context, a *models.Assignment) (*models.Assignment, error) {
	err := r.run(func(d *memData) error {
		if _, ok := d.assignments[a.AccountID]; ok {
			return common.ErrAlreadyBound
		}
		a.CreatedAt = r.now()
		c := *a
		d.assignments[a.AccountID] = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *memAssignments) GetByAccount(ctx context.Context, accountID string) (*models.Assignment, error) {
	var out *models.Assignment
	err := r.run(func(d *memData) error {
		a, ok := d.assignments[accountID]
		if !ok {
			return common.ErrorNotFound
		}
		c := *a
		out = &c
		return nil
	})
	return out, err
}

func (r *memAssignments) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := r.run(func(d *memData) error {
		if _, ok := d.assignments[accountID]; ok {
			delete(d.assignments, accountID)
			n = 1
		}
		return nil
	})
	return n, err
}

func (r *memAssignments) DeleteOrphans(ctx context.Context) (int64, error) {
	var n int64
	err := r.run(func(d *memData) error {
		for accountID := range d.assignments {
			if _, ok := d.accounts[accountID]; !ok {
				delete(d.assignments, accountID)
				n++
			}
		}
		return nil
	})
	return n, err
}
