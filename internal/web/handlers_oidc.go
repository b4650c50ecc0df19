package web

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
)

// OIDCAuthenticator is the part of auth.OIDCProvider the login flow needs.
type OIDCAuthenticator interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (*auth.OIDCClaims, error)
	ValidateClaims(claims *auth.OIDCClaims) error
}

// OIDCComponents holds the OIDC login dependencies.
type OIDCComponents struct {
	Provider   OIDCAuthenticator
	StateStore *auth.StateStore
}

func loginError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// handleOIDCLogin initiates the OIDC login flow.
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	stateData, err := s.oidc.StateStore.Generate(w, r.URL.Query().Get("return_to"))
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate OIDC state")
		loginError(w, r, "Failed to initiate login")
		return
	}

	http.Redirect(w, r, s.oidc.Provider.AuthCodeURL(stateData.State, stateData.Nonce), http.StatusSeeOther)
}

// handleOIDCCallback handles the OIDC callback after authentication.
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		errDesc := query.Get("error_description")
		if errDesc == "" {
			errDesc = errParam
		}
		s.logger.WithField("error", errParam).Warnf("OIDC provider returned error: %s", errDesc)
		loginError(w, r, errDesc)
		return
	}

	code := query.Get("code")
	if code == "" {
		loginError(w, r, "No authorization code received")
		return
	}

	stateData, err := s.oidc.StateStore.Validate(r, query.Get("state"))
	if err != nil {
		s.logger.WithError(err).Warn("OIDC state validation failed")
		loginError(w, r, "Invalid state parameter")
		return
	}
	s.oidc.StateStore.Clear(w)

	claims, err := s.oidc.Provider.Exchange(r.Context(), code, stateData.Nonce)
	if err != nil {
		s.logger.WithError(err).Error("OIDC token exchange failed")
		loginError(w, r, "Failed to complete authentication")
		return
	}

	if err := s.oidc.Provider.ValidateClaims(claims); err != nil {
		s.logger.WithError(err).WithField("email", claims.Email).Warn("OIDC claims validation failed")
		loginError(w, r, err.Error())
		return
	}

	if err := s.sessions.Create(w, claims.Session()); err != nil {
		s.logger.WithError(err).Error("Failed to create OIDC session")
		loginError(w, r, "Failed to create session")
		return
	}

	s.logger.WithField("email", claims.Email).Info("Admin signed in with OIDC")
	returnTo := stateData.ReturnTo
	if returnTo == "" {
		returnTo = "/admin/settings"
	}
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}
