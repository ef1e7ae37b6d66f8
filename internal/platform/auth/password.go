package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret bcrypt-hashes a PIN, password or one-time code.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// CheckSecret reports whether secret matches hash. A malformed hash never matches.
func CheckSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// dummyHash is compared against when no account matches, so unknown
// identifiers cost the same bcrypt work as known ones.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no-such-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("auth: build dummy hash: %v", err))
	}
	return h
})

// CheckSecretOrDummy is CheckSecret for a lookup that may have found no
// account. An empty hash still runs a full comparison and never matches.
func CheckSecretOrDummy(hash, secret string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(secret))
		return false
	}
	return CheckSecret(hash, secret)
}
