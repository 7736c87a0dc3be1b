package handlers

import (
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/vetbook/libs/auth"
	"github.com/md-rashed-zaman/vetbook/libs/httpx"
)

// Authenticate resolves the caller from a bearer token and exposes it to
// downstream handlers through httpx.UserIDHeader. Client-supplied identity
// headers are always dropped. Requests without a token continue anonymously
// and each operation decides whether that is acceptable; an invalid token is
// rejected outright.
func Authenticate(verifier *auth.Verifier, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(httpx.UserIDHeader)

			raw := r.Header.Get("Authorization")
			if raw == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := auth.BearerToken(raw)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated", "malformed authorization header", nil)
				return
			}
			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", "err", err)
				httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated", "invalid token", nil)
				return
			}
			r.Header.Set(httpx.UserIDHeader, claims.Subject)
			next.ServeHTTP(w, r)
		})
	}
}
