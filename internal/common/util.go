package common

import (
	"crypto/rand"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randReader is a test seam for crypto/rand.
var randReader = rand.Reader

// MakeWarrantyKey returns a random alphanumeric string of length n.
//
// With the default length of 10 the key space is 62^10 (about 8.4e17), so
// collisions are rare; callers still check uniqueness before persisting.
func MakeWarrantyKey(n int) (string, error) {
	if n <= 0 {
		n = DefaultWarrantyKeyLength
	}
	max := big.NewInt(int64(len(alphanumeric)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(randReader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}

// WipeByteArray overwrites the contents of b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
