package middleware

import "net/http"

const RoleAdmin = "admin"

// RequireRole gates a route on the role claim carried by the token. Admins
// pass every gate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			have, ok := RoleFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if have == RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			if role == "" || have == role {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "missing required role", http.StatusForbidden)
		})
	}
}
