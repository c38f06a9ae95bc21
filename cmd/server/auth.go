package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminGuard protects admin routes with a static bearer token.
type adminGuard struct {
	token []byte
}

func newAdminGuard(token string) *adminGuard {
	return &adminGuard{token: []byte(token)}
}

func (a *adminGuard) enabled() bool {
	return len(a.token) > 0
}

func (a *adminGuard) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	scheme, provided, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare(a.token, []byte(strings.TrimSpace(provided))) == 1
}

func (a *adminGuard) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			writeError(w, http.StatusServiceUnavailable, "Admin endpoints are disabled", "no admin token configured")
			return
		}
		if !a.authorized(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
