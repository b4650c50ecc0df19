package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
)

// Messages shown on the settings page.
const (
	msgSettingsSaved       = "The configuration options have been saved."
	msgProviderUnavailable = "Unable to verify the API access token with sender.net. Please try again later."
)

// LoginData holds data for the login page.
type LoginData struct {
	Error        string
	ReturnTo     string
	TokenEnabled bool
	OIDCEnabled  bool
}

// handleLoginPage renders the login page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.Get(r); err == nil {
		http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
		return
	}

	s.render(w, http.StatusOK, "login", PageData{
		Title:  "Log in",
		Active: "login",
		Content: LoginData{
			Error:        r.URL.Query().Get("error"),
			ReturnTo:     auth.SafeReturnPath(r.URL.Query().Get("return_to")),
			TokenEnabled: s.adminToken != "",
			OIDCEnabled:  s.oidc != nil,
		},
	})
}

// handleLogin processes the admin token login form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	token := r.PostFormValue("admin_token")
	if token == "" {
		http.Redirect(w, r, "/login?error=Admin+token+required", http.StatusSeeOther)
		return
	}
	if s.adminToken == "" || !auth.ConstantTimeCompare(token, s.adminToken) {
		s.logger.WithField("remote_addr", r.RemoteAddr).Warn("Rejected admin login")
		http.Redirect(w, r, "/login?error=Invalid+admin+token", http.StatusSeeOther)
		return
	}

	if err := s.sessions.Create(w, &auth.AdminSession{Subject: "admin", Method: auth.MethodToken}); err != nil {
		s.logger.WithError(err).Error("Failed to create session")
		http.Redirect(w, r, "/login?error=Failed+to+create+session", http.StatusSeeOther)
		return
	}

	returnTo := auth.SafeReturnPath(r.PostFormValue("return_to"))
	if returnTo == "" {
		returnTo = "/admin/settings"
	}
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}

// handleLogout clears the session and redirects to login.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// SubscribeData holds data for the subscription page.
type SubscribeData struct {
	Email string
	Error string
}

// handleSubscribePage renders the subscription form.
func (s *Server) handleSubscribePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "subscribe", PageData{
		Title:   "Subscribe",
		Active:  "subscribe",
		Flashes: s.sessions.PopFlash(w, r),
		Content: SubscribeData{},
	})
}

// handleSubscribe processes the subscription form.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	ch := notify.NewCollector()
	if _, err := s.subscriptions.Subscribe(r.Context(), email, ch); err != nil {
		data := SubscribeData{Email: email, Error: err.Error()}
		if errs, ok := validation.FieldErrors(err); ok {
			if e := errs.For(validation.FieldEmail); e != nil {
				data.Error = e.Message
			}
		}
		s.render(w, http.StatusBadRequest, "subscribe", PageData{
			Title:   "Subscribe",
			Active:  "subscribe",
			Content: data,
		})
		return
	}

	if err := s.sessions.SetFlash(w, toFlashes(ch.Notices())...); err != nil {
		s.logger.WithError(err).Warn("Failed to store flash")
	}
	http.Redirect(w, r, "/subscribe", http.StatusSeeOther)
}

// GroupField holds data for the user_group field.
type GroupField struct {
	Options  domain.GroupOptions
	Selected map[string]bool
	Unlisted []string
	Notices  []domain.Notice
	Error    string
}

// SettingsData holds data for the settings page.
type SettingsData struct {
	TokenPrefix string
	Configured  bool
	BaseURL     string
	Groups      GroupField
	Errors      map[string]string
}

// handleSettingsPage renders the settings form for the saved settings.
func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.settings.Read(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read settings")
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	flashes := s.sessions.PopFlash(w, r)
	s.render(w, http.StatusOK, "settings", PageData{
		Title:   "sender.net settings",
		Active:  "settings",
		Flashes: flashes,
		Session: getSession(ctx),
		Content: SettingsData{
			TokenPrefix: domain.MaskToken(settings.APIAccessToken),
			Configured:  settings.Configured(),
			BaseURL:     settings.APIBaseURL,
			Groups:      s.groupField(ctx, settings.Credential(), settings.UserGroups),
		},
	})
}

// handleSettingsSave validates and saves the settings form.
func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	current, err := s.settings.Read(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read settings")
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	req := &domain.UpdateSettingsRequest{
		APIAccessTokens: s.postedToken(r, current),
		APIBaseURL:      r.PostFormValue("api_base_url"),
		UserGroup:       r.PostForm["user_group"],
	}

	_, err = s.settings.Write(ctx, req)
	if err == nil {
		if err := s.sessions.SetFlash(w, auth.Flash{Level: string(domain.NoticeStatus), Message: msgSettingsSaved}); err != nil {
			s.logger.WithError(err).Warn("Failed to store flash")
		}
		http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
		return
	}

	data := SettingsData{
		TokenPrefix: domain.MaskToken(current.APIAccessToken),
		Configured:  current.Configured(),
		BaseURL:     req.APIBaseURL,
	}
	var flashes []auth.Flash
	if errs, ok := validation.FieldErrors(err); ok {
		data.Errors = fieldErrors(errs)
	} else {
		flashes = append(flashes, auth.Flash{Level: string(domain.NoticeError), Message: msgProviderUnavailable})
	}

	cred := domain.Credential{Token: req.APIAccessTokens, BaseURL: req.APIBaseURL}
	data.Groups = s.groupField(ctx, cred, req.UserGroup)
	data.Groups.Error = data.Errors[validation.FieldUserGroup]

	s.render(w, http.StatusBadRequest, "settings", PageData{
		Title:   "sender.net settings",
		Active:  "settings",
		Flashes: flashes,
		Session: getSession(ctx),
		Content: data,
	})
}

// handleGroupOptions re-renders the user_group field for the credential
// currently typed into the form.
func (s *Server) handleGroupOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	current, err := s.settings.Read(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read settings")
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	cred := domain.Credential{
		Token:   s.postedToken(r, current),
		BaseURL: strings.TrimSpace(r.PostFormValue("api_base_url")),
	}
	s.renderFragment(w, "settings", "user_group", s.groupField(ctx, cred, r.PostForm["user_group"]))
}

// postedToken returns the submitted token, or the saved one when the field was left blank.
func (s *Server) postedToken(r *http.Request, current *domain.Settings) string {
	token := strings.TrimSpace(r.PostFormValue("api_access_tokens"))
	if token == "" && current.Configured() {
		return current.APIAccessToken
	}
	return token
}

func (s *Server) groupField(ctx context.Context, cred domain.Credential, selected []string) GroupField {
	ch := notify.NewCollector()
	options := s.groups.Resolve(ctx, cred, ch)
	set := selectedSet(selected)
	return GroupField{
		Options:  options,
		Selected: set,
		Unlisted: missingSelections(options, set),
		Notices:  ch.Notices(),
	}
}
