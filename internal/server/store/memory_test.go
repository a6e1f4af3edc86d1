package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s Store, id, key string) *models.Account {
	t.Helper()
	a, err := s.Accounts().Create(context.Background(), &models.Account{
		ID: id, Username: "user-" + id, Secret: "pw", SessionToken: "sid=1", WarrantyKey: key,
	})
	require.NoError(t, err)
	return a
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "KEY1")

	got, err := s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "KEY1", got.WarrantyKey)

	got, err = s.Accounts().GetByWarrantyKey(ctx, "KEY1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = s.Accounts().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	ok, err := s.Accounts().WarrantyKeyExists(ctx, "KEY1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Accounts().WarrantyKeyExists(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_DuplicateWarrantyKey(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "a1", "KEY1")

	_, err := s.Accounts().Create(context.Background(), &models.Account{ID: "a2", WarrantyKey: "KEY1"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)
}

func TestMemoryStore_ReturnedAccountsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "KEY1")

	got, err := s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
	got.Username = "changed"

	again, err := s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "user-a1", again.Username)
}

func TestMemoryStore_ListFree_SkipsBoundAndLeased(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a3", "K3")
	seed(t, s, "a1", "K1")
	seed(t, s, "a2", "K2")

	_, err := s.Assignments().Create(ctx, &models.Assignment{ID: "s1", ConsumerName: "guest", AccountID: "a2"})
	require.NoError(t, err)

	now := time.Now()
	_, err = s.Accounts().AcquireLease(ctx, "a3", "owner", now, now.Add(time.Minute))
	require.NoError(t, err)

	free, err := s.Accounts().ListFree(ctx, now)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "a1", free[0].ID)

	// an expired lease no longer hides the account
	free, err = s.Accounts().ListFree(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, "a1", free[0].ID)
	assert.Equal(t, "a3", free[1].ID)

	all, err := s.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestMemoryStore_UpdateVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")

	name := "renamed"
	v, err := s.Accounts().Update(ctx, "a1", models.AccountPatch{Username: &name}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = s.Accounts().Update(ctx, "a1", models.AccountPatch{Username: &name}, 1)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	v, err = s.Accounts().Update(ctx, "a1", models.AccountPatch{Username: &name}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = s.Accounts().Update(ctx, "missing", models.AccountPatch{Username: &name}, 0)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Accounts().Update(ctx, "a1", models.AccountPatch{}, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMemoryStore_Leases(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")
	now := time.Now()
	until := now.Add(time.Minute)

	_, err := s.Accounts().AcquireLease(ctx, "a1", "one", now, until)
	require.NoError(t, err)

	_, err = s.Accounts().AcquireLease(ctx, "a1", "two", now, until)
	assert.ErrorIs(t, err, common.ErrLeaseHeld)

	// re-entrant for the same owner
	_, err = s.Accounts().AcquireLease(ctx, "a1", "one", now, until)
	require.NoError(t, err)

	// release by a stranger is ignored
	require.NoError(t, s.Accounts().ReleaseLease(ctx, "a1", "two"))
	_, err = s.Accounts().AcquireLease(ctx, "a1", "two", now, until)
	assert.ErrorIs(t, err, common.ErrLeaseHeld)

	require.NoError(t, s.Accounts().ReleaseLease(ctx, "a1", "one"))
	_, err = s.Accounts().AcquireLease(ctx, "a1", "two", now, until)
	require.NoError(t, err)

	n, err := s.Accounts().ClearExpiredLeases(ctx, until.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Accounts().AcquireLease(ctx, "missing", "one", now, until)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_Assignments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")

	_, err := s.Assignments().Create(ctx, &models.Assignment{ID: "s1", ConsumerName: "guest", AccountID: "a1"})
	require.NoError(t, err)

	_, err = s.Assignments().Create(ctx, &models.Assignment{ID: "s2", ConsumerName: "other", AccountID: "a1"})
	assert.ErrorIs(t, err, common.ErrAlreadyBound)

	got, err := s.Assignments().GetByAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "guest", got.ConsumerName)

	_, err = s.Assignments().Create(ctx, &models.Assignment{ID: "s3", ConsumerName: "ghost", AccountID: "gone"})
	require.NoError(t, err)
	n, err := s.Assignments().DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Assignments().DeleteByAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = s.Assignments().GetByAccount(ctx, "a1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_WithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")
	_, err := s.Assignments().Create(ctx, &models.Assignment{ID: "s1", ConsumerName: "guest", AccountID: "a1"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.Assignments().DeleteByAccount(ctx, "a1"); err != nil {
			return err
		}
		if err := tx.Accounts().Delete(ctx, "a1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
	_, err = s.Assignments().GetByAccount(ctx, "a1")
	require.NoError(t, err)
}

func TestMemoryStore_WithTx_CommitsAndNests(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")

	err := s.WithTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.WithTx(ctx, func(ctx context.Context, inner Store) error {
			return inner.Accounts().Delete(ctx, "a1")
		})
	})
	require.NoError(t, err)

	_, err = s.Accounts().GetByID(ctx, "a1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_WithTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, tx Store) error {
			_ = tx.Accounts().Delete(ctx, "a1")
			panic("boom")
		})
	})

	_, err := s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
}

func TestMemoryStore_ConcurrentBindOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "a1", "K1")

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Assignments().Create(ctx, &models.Assignment{ID: "x", ConsumerName: "c", AccountID: "a1"})
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestMemoryStore_Ping(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
