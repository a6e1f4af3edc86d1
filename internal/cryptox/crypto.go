// Package cryptox seals account secrets and session tokens at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"golang.org/x/crypto/argon2"
)

// sealedPrefix marks values produced by AESSealer. Values without it are
// treated as legacy plaintext and returned unchanged by Open.
const sealedPrefix = "v1:"

// ErrMalformedCiphertext is returned by Open for corrupted sealed values.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Sealer encrypts and decrypts short strings stored in the database.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// DeriveMasterKey stretches a passphrase into a 32-byte AES key with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// deriveKey is a test seam for DeriveMasterKey.
var deriveKey = DeriveMasterKey

// AESSealer implements Sealer with AES-256-GCM.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer derives the key from passphrase and salt. Deriving is slow on
// purpose, so build one sealer at startup and share it.
func NewAESSealer(passphrase, salt string) (*AESSealer, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	pass := []byte(passphrase)
	key := deriveKey(pass, []byte(salt))
	common.WipeByteArray(pass)
	// The cipher keeps its own expanded copy of the key.
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESSealer{aead: aead}, nil
}

func (s *AESSealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *AESSealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrMalformedCiphertext
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return string(plain), nil
}

// NopSealer stores values as they are.
type NopSealer struct{}

func (NopSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (NopSealer) Open(sealed string) (string, error)    { return sealed, nil }
