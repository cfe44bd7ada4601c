package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"fitrit/internal/adapters/email"
	"fitrit/internal/adapters/http/middleware"
	"fitrit/internal/adapters/telemetry"
	"fitrit/internal/application/orchestrators"
	"fitrit/internal/application/projections"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/config"
	"fitrit/internal/domain/guard"
)

// ClubFlow is every ClubFlow call the portal makes. *clubflow.Client satisfies it.
type ClubFlow interface {
	orchestrators.SignInClient
	orchestrators.GoogleSignInClient
	orchestrators.SignOutClient
	orchestrators.ProfileClient
	orchestrators.PasswordResetClient
	projections.PortalClient
	projections.AdminClient
}

// Deps holds everything the portal server needs.
type Deps struct {
	Config   config.Config
	Viewers  *viewerstate.Registry
	ClubFlow ClubFlow
	// Google is nil when Google sign-in is not configured.
	Google     orchestrators.GoogleProvider
	Challenges orchestrators.ChallengeKeeper
	Email      email.Sender
	Audit      projections.AuditLister
	Metrics    *telemetry.Metrics
	// Ready reports whether backing stores are reachable, for /healthz.
	Ready func(ctx context.Context) error
	Now   func() time.Time
	// TracerProvider records request spans; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// serviceName names the portal's request spans.
const serviceName = "fitrit-portal"

// Server renders the marketing site, sign-in flows, member portal and admin dashboard.
type Server struct {
	deps    Deps
	targets guard.Targets
	guards  middleware.Guards
	screens *screenLoader
	loading http.Handler
	limiter *middleware.RateLimiter
	csrfKey []byte
}

// New builds a Server. It fails when templates cannot be read or the CSRF key is malformed.
// PRE: deps.Viewers, deps.ClubFlow, deps.Email and deps.Metrics are non-nil
func New(deps Deps) (*Server, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	key, err := loadCSRFKey(deps.Config.Security.CSRFKey)
	if err != nil {
		return nil, err
	}
	loading, err := newLoadingScreen()
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:    deps,
		targets: guard.DefaultTargets(),
		loading: loading,
		screens: newScreenLoader(deps.Config.Session.SuspenseThreshold, deps.Metrics),
		limiter: middleware.NewRateLimiter(deps.Config.Security.LoginRateLimit, time.Minute),
		csrfKey: key,
	}
	s.guards = middleware.Guards{
		Targets:  s.targets,
		Loading:  s.loading,
		Observer: deps.Metrics,
	}
	return s, nil
}

// Run drives background upkeep until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.limiter.Run(ctx)
}

// Handler wires HTTP handlers for the portal.
func (s *Server) Handler() http.Handler {
	secure := s.deps.Config.IsProduction()

	r := chi.NewRouter()
	r.Use(middleware.Timing(s.deps.Metrics, middleware.DefaultSlowRequest))
	r.Use(middleware.SecurityHeaders)

	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", s.deps.Metrics.Handler())
	r.NotFound(s.handleNotFound)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Viewer(s.deps.Viewers, secure))
		r.Use(middleware.CSRF(s.csrfKey, secure, s.deps.Config.Security.TrustedOrigins))

		// public
		r.Get("/", s.handlePage("home", "FitRit Studio"))
		r.Get("/classes", s.handlePage("classes", "Classes"))
		r.Get("/pricing", s.handlePage("pricing", "Pricing"))
		r.Get("/about", s.handlePage("about", "About us"))
		r.Get("/contact", s.handleContactForm)
		r.Post("/contact", s.handleContact)

		// auth
		r.Get("/login", s.handleLoginForm)
		r.With(middleware.RateLimit(s.limiter)).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/forget-browser", s.handleForgetBrowser)
		r.Get("/auth/google", s.handleGoogleStart)
		r.Get("/auth/google/callback", s.handleGoogleCallback)
		r.Get("/forgot-password", s.handleForgotPasswordForm)
		r.With(middleware.RateLimit(s.limiter)).Post("/forgot-password", s.handleForgotPassword)

		// ui actions
		r.Post("/ui/nav", s.handleToggleNav)
		r.Post("/ui/sidebar", s.handleToggleSidebar)
		r.Post("/ui/modal", s.handleOpenModal)
		r.Post("/ui/modal/close", s.handleCloseModal)

		r.Route(s.targets.PortalRoot, func(r chi.Router) {
			r.Use(s.guards.Member)
			r.Get("/", s.handlePortalHome)
			r.Get("/bookings", s.handleBookings)
			r.Get("/membership", s.handleMembership)
			r.Get("/invoices", s.handleInvoices)
			r.Get("/profile", s.handleProfileForm)
			r.Post("/profile", s.handleProfile)
		})

		r.Route(s.targets.AdminRoot, func(r chi.Router) {
			r.Use(s.guards.Admin)
			r.Get("/", s.handleAdminHome)
			r.Get("/schedule", s.handleSchedule)
			r.Get("/members", s.handleMembers)
			r.Group(func(r chi.Router) {
				r.Use(s.guards.Owner)
				r.Get("/staff", s.handleStaff)
				r.Get("/reports", s.handleReports)
				r.Get("/settings", s.handleSettings)
			})
		})
	})
	return middleware.Chain(r, middleware.Tracing(serviceName, s.deps.TracerProvider))
}

// loadCSRFKey decodes the configured key, or generates one per process when unset.
func loadCSRFKey(keyHex string) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("csrf key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("config_warning", "event", "random_csrf_key", "detail", "forms will not survive a restart; set FITRIT_CSRF_KEY")
	return key, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			slog.Warn("healthz_failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
