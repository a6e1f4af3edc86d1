package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy gone") }

func TestMakeWarrantyKey_Alphanumeric(t *testing.T) {
	key, err := MakeWarrantyKey(DefaultWarrantyKeyLength)
	require.NoError(t, err)
	require.Len(t, key, DefaultWarrantyKeyLength)
	for _, r := range key {
		assert.True(t, strings.ContainsRune(alphanumeric, r), "unexpected rune %q", r)
	}
}

func TestMakeWarrantyKey_DefaultLength(t *testing.T) {
	key, err := MakeWarrantyKey(0)
	require.NoError(t, err)
	require.Len(t, key, DefaultWarrantyKeyLength)
}

func TestMakeWarrantyKey_Distinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		key, err := MakeWarrantyKey(12)
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestMakeWarrantyKey_ReaderError(t *testing.T) {
	old := randReader
	randReader = failingReader{}
	defer func() { randReader = old }()

	_, err := MakeWarrantyKey(8)
	require.Error(t, err)
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3}
	WipeByteArray(buf)
	require.Equal(t, []byte{0, 0, 0}, buf)
	WipeByteArray(nil)
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := NewValidationError("warrantyKey", "is required")
	require.True(t, errors.Is(err, ErrValidation))
	require.Equal(t, "validation error: warrantyKey is required", err.Error())
}

func TestStoreError_Wraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreError("get account", cause)
	require.True(t, errors.Is(err, ErrStore))
	require.True(t, errors.Is(err, cause))
	require.Nil(t, StoreError("noop", nil))
}
