package api

import (
	"net/http"

	"github.com/bcnelson/sendernet-subscriptions/internal/api/handler"
	"github.com/bcnelson/sendernet-subscriptions/internal/api/middleware"
	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
	"github.com/bcnelson/sendernet-subscriptions/internal/web"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Settings      *service.SettingsService
	Groups        *service.GroupResolver
	Subscriptions *service.SubscriptionService
	Directory     *service.Directory
	Client        sender.ProviderClient

	AdminToken string
	Gatherer   prometheus.Gatherer
	Logger     logrus.FieldLogger

	// Sessions enables the HTML pages. Without it only the JSON API is served.
	Sessions *auth.SessionManager
	OIDC     *web.OIDCComponents
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Mount web UI (no Content-Type middleware - serves HTML)
	if deps.Sessions != nil {
		r.Mount("/", web.NewRouter(web.Config{
			Settings:      deps.Settings,
			Groups:        deps.Groups,
			Subscriptions: deps.Subscriptions,
			AdminToken:    deps.AdminToken,
			Sessions:      deps.Sessions,
			OIDC:          deps.OIDC,
			Logger:        logger,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Public
		subscriptionHandler := handler.NewSubscriptionHandler(deps.Subscriptions)
		r.Post("/subscriptions", subscriptionHandler.Create)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(deps.AdminToken))

			settingsHandler := handler.NewSettingsHandler(deps.Settings, deps.Groups)
			r.Get("/settings", settingsHandler.Get)
			r.Put("/settings", settingsHandler.Update)
			r.Post("/settings/groups", settingsHandler.Groups)

			credentialsHandler := handler.NewCredentialsHandler(deps.Client)
			r.Post("/credentials/check", credentialsHandler.Check)

			directoryHandler := handler.NewDirectoryHandler(deps.Directory)
			r.Get("/directory", directoryHandler.List)
			r.Post("/directory", directoryHandler.Create)
			r.Delete("/directory/{email}", directoryHandler.Delete)
		})
	})

	return r
}
