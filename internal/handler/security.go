package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/xenking/shopagent/internal/domain/auth"
	"github.com/xenking/shopagent/pkg/httpmiddleware"
)

// identityKey is the context key for the authenticated owner identity.
type identityKey struct{}

// IdentityFromContext extracts the authenticated identity set by APIKeyAuth.
// It returns an empty string for unauthenticated requests.
func IdentityFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey{}).(string); ok {
		return id
	}
	return ""
}

// APIKeyAuth returns a middleware that authenticates requests by computing
// the HMAC-SHA256 of the presented API key under the pepper, looking it up,
// and performing a constant-time comparison to prevent timing attacks. The
// key's ID becomes the owner identity for the request.
func APIKeyAuth(keys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			hexHash := auth.HashKey(pepper, key)
			info, err := keys.FindByHash(r.Context(), hexHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels
			// even though the lookup already succeeded — the stored hash
			// could differ from what we computed if the repository returns a
			// stale/wrong row.
			computed, err := hex.DecodeString(hexHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, info.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey reads the key from the Authorization bearer token or the
// X-API-Key header.
func extractAPIKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
