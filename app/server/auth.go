package server

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// authUser is the only basic auth user name accepted
const authUser = "hoover"

// authMiddleware checks basic auth credentials against the configured bcrypt hash
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && username == authUser {
			if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="hoover"`)
		s.writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	})
}
