package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var content embed.FS

// Config holds the dependencies of the HTML pages.
type Config struct {
	Settings      *service.SettingsService
	Groups        *service.GroupResolver
	Subscriptions *service.SubscriptionService
	AdminToken    string
	Sessions      *auth.SessionManager
	OIDC          *OIDCComponents // nil when OIDC login is disabled
	Logger        logrus.FieldLogger
}

// Server holds dependencies for web handlers.
type Server struct {
	settings      *service.SettingsService
	groups        *service.GroupResolver
	subscriptions *service.SubscriptionService
	adminToken    string
	sessions      *auth.SessionManager
	oidc          *OIDCComponents
	logger        logrus.FieldLogger
	templates     map[string]*template.Template
}

// NewRouter creates a new web router with all routes configured.
func NewRouter(cfg Config) http.Handler {
	s := &Server{
		settings:      cfg.Settings,
		groups:        cfg.Groups,
		subscriptions: cfg.Subscriptions,
		adminToken:    cfg.AdminToken,
		sessions:      cfg.Sessions,
		oidc:          cfg.OIDC,
		logger:        cfg.Logger,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.oidc != nil && (s.oidc.Provider == nil || s.oidc.StateStore == nil) {
		s.oidc = nil
	}

	// Parse all templates
	s.templates = parseTemplates()

	r := chi.NewRouter()

	// Static files
	staticFS, _ := fs.Sub(content, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Public routes
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/subscribe", http.StatusSeeOther)
	})
	r.Get("/subscribe", s.handleSubscribePage)
	r.Post("/subscribe", s.handleSubscribe)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/auth/oidc/login", s.handleOIDCLogin)
	r.Get("/auth/oidc/callback", s.handleOIDCCallback)

	// Protected routes (require session)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionAuth)

		r.Get("/admin/settings", s.handleSettingsPage)
		r.Post("/admin/settings", s.handleSettingsSave)
		r.Post("/admin/settings/groups", s.handleGroupOptions)
	})

	return r
}

// parseTemplates parses each page together with the base layout and components.
func parseTemplates() map[string]*template.Template {
	funcMap := template.FuncMap{
		"lower":       strings.ToLower,
		"noticeClass": noticeClass,
	}

	templates := make(map[string]*template.Template)

	baseContent, _ := content.ReadFile("templates/base.html")
	components, _ := fs.Glob(content, "templates/components/*.html")
	shared := string(baseContent)
	for _, path := range components {
		c, _ := content.ReadFile(path)
		shared += string(c)
	}

	pageFiles, _ := fs.Glob(content, "templates/pages/*.html")
	for _, pagePath := range pageFiles {
		pageName := strings.TrimSuffix(filepath.Base(pagePath), ".html")
		pageContent, _ := content.ReadFile(pagePath)

		tmpl, err := template.New(pageName).Funcs(funcMap).Parse(shared + string(pageContent))
		if err != nil {
			panic("failed to parse template " + pageName + ": " + err.Error())
		}
		templates[pageName] = tmpl
	}

	return templates
}

// noticeClass maps a notice level to its CSS class.
func noticeClass(level string) string {
	switch domain.NoticeLevel(level) {
	case domain.NoticeStatus:
		return "flash-success"
	case domain.NoticeWarning:
		return "flash-warning"
	default:
		return "flash-error"
	}
}

// PageData holds common data passed to all page templates.
type PageData struct {
	Title   string
	Active  string // Current nav item
	Flashes []auth.Flash
	Session *auth.AdminSession
	Content any
}

// render renders a full page using the base template.
func (s *Server) render(w http.ResponseWriter, status int, page string, data PageData) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found: "+page, http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.WithError(err).WithField("page", page).Error("Template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// renderFragment renders a single named template for htmx requests.
func (s *Server) renderFragment(w http.ResponseWriter, page, name string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found: "+page, http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.WithError(err).WithField("fragment", name).Error("Template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}
