// Package middleware provides HTTP middleware: request logging with
// correlation IDs, API key authentication and response writers.
package middleware

import (
	"net/http"
)

// AuthConfig holds API key authentication configuration.
type AuthConfig struct {
	apiKeys map[string]struct{}
	enabled bool
}

// NewAuthConfig creates an AuthConfig. An empty key list disables
// authentication.
func NewAuthConfig(apiKeys []string) AuthConfig {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}
	if len(keys) == 0 {
		return AuthConfig{enabled: false}
	}
	return AuthConfig{apiKeys: keys, enabled: true}
}

// Enabled returns true if authentication is enabled.
func (c AuthConfig) Enabled() bool { return c.enabled }

// APIKey returns a middleware requiring X-API-KEY header authentication.
// With no keys configured, all requests pass through.
func APIKey(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-KEY")
			if key == "" {
				WriteErrorStatus(w, http.StatusUnauthorized, "missing X-API-KEY header")
				return
			}
			if _, ok := config.apiKeys[key]; !ok {
				WriteErrorStatus(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
