package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUpload() UploadRequest {
	return UploadRequest{Username: "alice@example.com", Secret: "hunter2", SessionToken: "live-alice"}
}

func strPtr(s string) *string { return &s }

func TestUpload_Validation(t *testing.T) {
	svc := NewAccountService(store.NewMemoryStore(), nil, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		mod   func(r *UploadRequest)
		field string
	}{
		{"no username", func(r *UploadRequest) { r.Username = " " }, "username"},
		{"no secret", func(r *UploadRequest) { r.Secret = "" }, "secret"},
		{"no session token", func(r *UploadRequest) { r.SessionToken = "" }, "session_token"},
		{"bad register date", func(r *UploadRequest) { r.RegisterDate = "31.01.2026" }, "register_date"},
		{"bad expire date", func(r *UploadRequest) { r.ExpireDate = "2026-02-30" }, "expire_date"},
		{"expire year beyond stored range", func(r *UploadRequest) { r.ExpireDate = "2070-01-01" }, "expire_date"},
		{"expire before register", func(r *UploadRequest) {
			r.RegisterDate = "2026-03-10"
			r.ExpireDate = "2026-03-01"
		}, "expire_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validUpload()
			tt.mod(&req)
			_, err := svc.Upload(ctx, req)
			var ve *common.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUpload_StoresNormalizedDates(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewAccountService(s, nil, 0)
	ctx := context.Background()

	req := validUpload()
	req.RegisterDate = "2026-03-01"
	req.ExpireDate = "04/01/26"
	res, err := svc.Upload(ctx, req)
	require.NoError(t, err)
	assert.Len(t, res.WarrantyKey, common.DefaultWarrantyKeyLength)

	got, err := s.Accounts().GetByID(ctx, res.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "03/01/26", got.RegisterDate)
	assert.Equal(t, "04/01/26", got.ExpireDate)
	assert.Equal(t, res.WarrantyKey, got.WarrantyKey)
}

func TestUpload_IDsFollowUploadOrder(t *testing.T) {
	svc := NewAccountService(store.NewMemoryStore(), nil, 0)
	ctx := context.Background()

	var prev string
	for i := 0; i < 20; i++ {
		res, err := svc.Upload(ctx, validUpload())
		require.NoError(t, err)
		assert.Greater(t, res.AccountID, prev)
		prev = res.AccountID
	}
}

func TestUpload_NeverReusesWarrantyKey(t *testing.T) {
	svc := NewAccountService(store.NewMemoryStore(), nil, 4)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		res, err := svc.Upload(ctx, validUpload())
		require.NoError(t, err)
		require.False(t, seen[res.WarrantyKey], "key %s reused", res.WarrantyKey)
		seen[res.WarrantyKey] = true
	}
}

func TestUpload_RegeneratesKeyOnCollision(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "")

	orig := makeWarrantyKey
	t.Cleanup(func() { makeWarrantyKey = orig })
	keys := []string{"KEY-a1", "KEY-a1", "FRESHKEY01"}
	makeWarrantyKey = func(n int) (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}

	res, err := NewAccountService(s, nil, 0).Upload(context.Background(), validUpload())
	require.NoError(t, err)
	assert.Equal(t, "FRESHKEY01", res.WarrantyKey)
}

func TestUpload_KeySpaceExhausted(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "")

	orig := makeWarrantyKey
	t.Cleanup(func() { makeWarrantyKey = orig })
	makeWarrantyKey = func(n int) (string, error) { return "KEY-a1", nil }

	_, err := NewAccountService(s, nil, 0).Upload(context.Background(), validUpload())
	assert.ErrorIs(t, err, common.ErrKeySpaceExhausted)
}

func TestUpload_KeyGeneratorFailure(t *testing.T) {
	orig := makeWarrantyKey
	t.Cleanup(func() { makeWarrantyKey = orig })
	makeWarrantyKey = func(n int) (string, error) { return "", errors.New("no entropy") }

	_, err := NewAccountService(store.NewMemoryStore(), nil, 0).Upload(context.Background(), validUpload())
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestUploadThenRenew_IsActiveWithSameCredentials(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewAccountService(s, nil, 0)
	m := newPool(t, s, tokenProber(), nil, 1)
	ctx := context.Background()

	up, err := svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	res, err := m.Renew(ctx, up.WarrantyKey)
	require.NoError(t, err)
	assert.Equal(t, RenewActive, res.Status)
	assert.Equal(t, up.AccountID, res.Account.ID)
	assert.Equal(t, "alice@example.com", res.Account.Username)
	assert.Equal(t, "hunter2", res.Account.Secret)
}

func TestDelete_Cascades(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "")
	bindAccount(t, s, "guest", "a1")
	svc := NewAccountService(s, nil, 0)

	require.NoError(t, svc.Delete(context.Background(), "a1"))
	assertGone(t, s, "a1")

	err := svc.Delete(context.Background(), "a1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_UnknownKeepsOtherAssignments(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "")
	bindAccount(t, s, "guest", "a1")
	svc := NewAccountService(s, nil, 0)

	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Assignments().GetByAccount(context.Background(), "a1")
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "")
	svc := NewAccountService(s, nil, 0)
	ctx := context.Background()

	got, err := svc.Update(ctx, "a1", models.AccountPatch{
		Username:     strPtr("bob"),
		RegisterDate: strPtr("2026-03-01"),
		ExpireDate:   strPtr("03/31/26"),
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "03/01/26", got.RegisterDate)
	assert.Equal(t, "03/31/26", got.ExpireDate)
	assert.Equal(t, int64(2), got.Version)

	stored, err := s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.Username)
	assert.Equal(t, "03/01/26", stored.RegisterDate)
}

func TestUpdate_Errors(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "")
	svc := NewAccountService(s, nil, 0)
	ctx := context.Background()

	_, err := svc.Update(ctx, "a1", models.AccountPatch{})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Update(ctx, "a1", models.AccountPatch{Secret: strPtr("")})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Update(ctx, "a1", models.AccountPatch{ExpireDate: strPtr("soon")})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Update(ctx, "missing", models.AccountPatch{Username: strPtr("x")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.Update(ctx, "a1", models.AccountPatch{RegisterDate: strPtr("2026-03-10")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "a1", models.AccountPatch{ExpireDate: strPtr("2026-03-09")})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestClear(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a1", "live-1", "03/20/26")
	bindAccount(t, s, "guest", "a1")
	svc := NewAccountService(s, nil, 0)
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx, "a1"))

	got, err := s.Accounts().GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, got.RegisterDate)
	assert.Empty(t, got.ExpireDate)
	assert.Equal(t, "KEY-a1", got.WarrantyKey)

	_, err = s.Assignments().GetByAccount(ctx, "a1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// a cleared account is free again
	free, err := s.Accounts().ListFree(ctx, fixedNow)
	require.NoError(t, err)
	require.Len(t, free, 1)

	assert.ErrorIs(t, svc.Clear(ctx, "missing"), common.ErrorNotFound)
}

func TestGetAndList(t *testing.T) {
	s := store.NewMemoryStore()
	seedAccount(t, s, "a2", "live-2", "")
	seedAccount(t, s, "a1", "live-1", "")
	svc := NewAccountService(s, nil, 0)
	ctx := context.Background()

	got, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "user-a1", got.Username)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
}

func TestWrapStoreError(t *testing.T) {
	assert.Equal(t, common.ErrorNotFound, wrapStoreError("op", common.ErrorNotFound))

	err := wrapStoreError("op", errors.New("conn reset"))
	assert.ErrorIs(t, err, common.ErrStore)
	assert.ErrorContains(t, err, "conn reset")
}
