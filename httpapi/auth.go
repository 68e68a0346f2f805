// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/agentcore/universal"
)

// AuthConfig configures bearer-token admission and CORS for the router.
type AuthConfig struct {
	// Token is the single process-wide bearer token. Ignored if Disabled.
	Token string

	// Disabled skips token verification entirely. cmd/agentcored sets it
	// from lib/config's http.auth_disabled.
	Disabled bool

	// AllowedOrigins lists exact Origin header values to echo back in
	// Access-Control-Allow-Origin. Empty denies all cross-origin requests.
	AllowedOrigins []string
}

func (c AuthConfig) originAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// withAuth wraps next with bearer-token admission and CORS headers.
func withAuth(cfg AuthConfig, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && cfg.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, x-sandbox-token, Content-Type, Last-Event-ID")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if cfg.Disabled {
			next.ServeHTTP(w, r)
			return
		}

		if !validToken(r, cfg.Token) {
			writeError(w, logger, universal.NewError(universal.TokenInvalid, "missing or invalid bearer token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func validToken(r *http.Request, want string) bool {
	if want == "" {
		return false
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if ok && subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1 {
			return true
		}
	}

	if token := r.Header.Get("x-sandbox-token"); token != "" {
		return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
	}

	return false
}
