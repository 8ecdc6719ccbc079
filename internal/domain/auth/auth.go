// Package auth defines API key authentication types and hashing.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnknownKey is returned when no active API key matches a hash.
var ErrUnknownKey = errors.New("api key not found")

// APIKeyInfo is a stored API key record. ID doubles as the owner identity
// for everything the key touches: carts, holds, orders.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
}

// Repository provides API key lookups by hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey computes the hex-encoded HMAC-SHA256 of the key under the pepper.
// Keys are stored and looked up only in this form.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
