// Package auth guards the admin endpoints with a static bearer token.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

var (
	ErrMissingAuthorization = errors.New("missing Authorization header")
	ErrInvalidAuthorization = errors.New("invalid Authorization header format")
	ErrMissingToken         = errors.New("missing API key")
)

func ExtractBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuthorization
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", ErrInvalidAuthorization
	}

	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticate reports whether presented matches apiKey. An empty apiKey
// never authenticates.
func Authenticate(presented, apiKey string) bool {
	return constantTimeEqual(presented, apiKey)
}

// RequireBearer returns middleware rejecting requests without the api key.
func RequireBearer(apiKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractBearerToken(r)
			if err == nil && !Authenticate(token, apiKey) {
				err = errors.New("unknown API key")
			}
			if err != nil {
				logger.Warn("admin request unauthorized", "path", r.URL.Path, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="oneguard-gw"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
