package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sociable/internal/apiversion"
	v1 "sociable/internal/handler/v1"
	v2 "sociable/internal/handler/v2"
	"sociable/internal/httputil"
	authmw "sociable/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	UserV1         *v1.UserHandler
	UserV2         *v2.UserHandler
	ProfileV1      *v1.ProfileHandler
	ProfileV2      *v2.ProfileHandler
	PrivacyV1      *v1.PrivacyHandler
	PrivacyV2      *v2.PrivacyHandler
	Relationships  *v1.RelationshipHandler
	Auth           *authmw.Auth
	Errors         httputil.ErrorWriter
	VersionHeader  string
	DefaultVersion string
}

// NewRouter creates and configures a new Chi router with all route groups.
// Every resource endpoint is a version dispatcher: the 1.0/2.0 registries
// below decide which behavioral variant serves a resolved version tag.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(apiversion.Middleware(cfg.VersionHeader, cfg.DefaultVersion))

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// both serves one implementation under both version tags; split pins a
	// distinct implementation per tag.
	both := func(h func(*http.Request) (*apiversion.Result, error)) http.Handler {
		f := apiversion.HandlerFunc(h)
		return apiversion.NewDispatcher(map[string]apiversion.Handler{
			apiversion.V1: f,
			apiversion.V2: f,
		}, cfg.Errors)
	}
	split := func(h1, h2 func(*http.Request) (*apiversion.Result, error)) http.Handler {
		return apiversion.NewDispatcher(map[string]apiversion.Handler{
			apiversion.V1: apiversion.HandlerFunc(h1),
			apiversion.V2: apiversion.HandlerFunc(h2),
		}, cfg.Errors)
	}

	r.Route("/users", func(r chi.Router) {
		r.Method(http.MethodPost, "/signup", split(cfg.UserV1.Signup, cfg.UserV2.Signup))
		r.With(cfg.Auth.Optional).Method(http.MethodPost, "/login", both(cfg.UserV1.Login))
		r.Method(http.MethodPost, "/token/refresh", both(cfg.UserV1.RefreshToken))
		r.Method(http.MethodPost, "/password-forgot", both(cfg.UserV1.PasswordForgot))
		r.Method(http.MethodPost, "/password-reset", split(cfg.UserV1.PasswordReset, cfg.UserV2.PasswordReset))

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Required)
			r.Method(http.MethodGet, "/", both(cfg.UserV1.Read))
			r.Method(http.MethodPatch, "/update", both(cfg.UserV1.Update))
			r.Method(http.MethodDelete, "/delete", both(cfg.UserV1.Delete))
		})
	})

	r.Route("/profiles", func(r chi.Router) {
		r.With(cfg.Auth.Optional).Method(http.MethodGet, "/{slug}", split(cfg.ProfileV1.Read, cfg.ProfileV2.Read))

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Required)
			r.Method(http.MethodGet, "/", split(cfg.ProfileV1.List, cfg.ProfileV2.List))
			r.Method(http.MethodPatch, "/update", split(cfg.ProfileV1.Update, cfg.ProfileV2.Update))
			r.Method(http.MethodGet, "/privacy/{slug}", split(cfg.PrivacyV1.Read, cfg.PrivacyV2.Read))
			r.Method(http.MethodPatch, "/privacy/update", split(cfg.PrivacyV1.Update, cfg.PrivacyV2.Update))
		})
	})

	r.Route("/relationships", func(r chi.Router) {
		r.Use(cfg.Auth.Required)

		r.Method(http.MethodGet, "/requests", both(cfg.Relationships.ListRequests))
		r.Method(http.MethodPost, "/requests", both(cfg.Relationships.RequestFollow))
		r.Method(http.MethodPost, "/requests/response", both(cfg.Relationships.RespondToRequest))
		r.Method(http.MethodDelete, "/requests/{slug}", both(cfg.Relationships.WithdrawRequest))

		r.Method(http.MethodPost, "/follow/{slug}", both(cfg.Relationships.ToggleFollow))
		r.Method(http.MethodGet, "/follow/{slug}", both(cfg.Relationships.Counts))
		r.Method(http.MethodGet, "/follow/{slug}/followers", both(cfg.Relationships.Followers))
		r.Method(http.MethodGet, "/follow/{slug}/followings", both(cfg.Relationships.Followings))

		r.Method(http.MethodGet, "/block", both(cfg.Relationships.BlockedUsers))
		r.Method(http.MethodPost, "/block", both(cfg.Relationships.Block))
		r.Method(http.MethodDelete, "/block/{slug}", both(cfg.Relationships.Unblock))
	})

	return r
}
