package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/pkg/httpmiddleware"
)

const apiKeyHeader = "api_key"

// SecurityHandler authenticates requests via HMAC-SHA256 hashed API keys
// sent in the api_key header.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, as stored in
// the api_keys table.
func HashKey(key string, pepper []byte) string {
	return hex.EncodeToString(hashKey(key, pepper))
}

func hashKey(key string, pepper []byte) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Require rejects requests without a valid key (401) or whose key lacks
// scope (403). The key is stored in the request context.
func (s *SecurityHandler) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := s.authenticate(r)
			if !ok {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !info.HasScope(scope) {
				zctx.From(r.Context()).Info("API key lacks scope",
					zap.String("key_id", info.ID), zap.String("scope", scope))
				httpmiddleware.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithKey(r.Context(), info)))
		})
	}
}

func (s *SecurityHandler) authenticate(r *http.Request) (*auth.APIKeyInfo, bool) {
	key := r.Header.Get(apiKeyHeader)
	if key == "" {
		return nil, false
	}

	hash := hashKey(key, s.pepper)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		if !errors.Is(err, auth.ErrKeyNotFound) {
			zctx.From(r.Context()).Warn("API key lookup failed", zap.Error(err))
		}
		return nil, false
	}

	// The repository matched on the hex string; compare the raw bytes in
	// constant time as well.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, false
	}
	return info, true
}
