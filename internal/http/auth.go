package http

import (
	"net/http"
	"strings"

	"github.com/Flarenzy/subnet-calculator/internal/auth"
)

func (a *API) authMiddleware(next http.Handler) http.Handler {
	if a.Authenticator == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow unauthenticated endpoints
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || strings.HasPrefix(r.URL.Path, "/swagger/") {
			next.ServeHTTP(w, r)
			return
		}

		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		principal, err := a.Authenticator.Authenticate(r.Context(), strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			a.Logger.DebugContext(r.Context(), "rejected token", "path", r.URL.Path, "err", err.Error())
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}
