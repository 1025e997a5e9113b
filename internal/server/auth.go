package server

import (
	"net/http"

	"momoapi/internal/shared"
)

const basicChallenge = `Basic realm="transactions", charset="UTF-8"`

// RequireBasicAuth gates next behind the configured static credentials.
func (a *API) RequireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !a.Credentials.Match(user, pass) {
			a.Log.Debugw("auth rejected", "path", r.URL.Path, "user", user, "header_present", ok)
			w.Header().Set("WWW-Authenticate", basicChallenge)
			writeError(w, http.StatusUnauthorized, shared.CodeUnauthorized, "missing or invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}
