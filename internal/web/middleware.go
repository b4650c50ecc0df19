package web

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
)

type contextKey string

const sessionContextKey contextKey = "session"

// sessionAuth is middleware that validates the admin session cookie.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Get(r)
		if err != nil {
			if err != auth.ErrNoCookie {
				s.sessions.Clear(w)
			}
			loginURL := "/login?return_to=" + url.QueryEscape(r.URL.RequestURI())
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", loginURL)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getSession retrieves the session from context.
func getSession(ctx context.Context) *auth.AdminSession {
	session, _ := ctx.Value(sessionContextKey).(*auth.AdminSession)
	return session
}
