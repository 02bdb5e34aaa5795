// Package http serves the bilancio JSON API and the server-rendered dashboard.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bilancio/internal/auth"
	"bilancio/internal/budget"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	appweb "bilancio/web"
)

// Store is the repository surface used directly by handlers. Projections and
// writes with validation go through the budget and expense services.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	SetUserBudget(ctx context.Context, userID int64, budget *core.Money) error

	ListExpenses(ctx context.Context, userID int64, from, to time.Time) ([]core.Expense, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]core.Subscription, error)

	CreateFamily(ctx context.Context, f *core.Family) error
	GetFamily(ctx context.Context, id int64) (core.Family, error)
	ListFamiliesForUser(ctx context.Context, userID int64) ([]core.Family, error)
	SetFamilyBudget(ctx context.Context, familyID int64, budget *core.Money) error
	AddMember(ctx context.Context, familyID, userID int64) error
	RemoveMember(ctx context.Context, familyID, userID int64) error
	ListMembers(ctx context.Context, familyID int64) ([]core.Member, error)
	IsMember(ctx context.Context, familyID, userID int64) (bool, error)

	SetThreshold(ctx context.Context, t core.CategoryThreshold) error
	DeleteThreshold(ctx context.Context, familyID int64, category string) error
	ListThresholds(ctx context.Context, familyID int64) ([]core.CategoryThreshold, error)
}

type Options struct {
	Addr           string
	AuthRateLimit  int // requests per minute per client
	TokenTTL       time.Duration
	SecureCookies  bool
	TrustedProxies []string
}

type Deps struct {
	Store    Store
	Budget   *budget.Service
	Expenses *services.ExpenseService
	Auth     *auth.Service
	Logger   *log.Logger
}

type Server struct {
	http.Server
	store    Store
	budget   *budget.Service
	expenses *services.ExpenseService
	auth     *auth.Service
	logger   *log.Logger
	opts     Options

	templates *template.Template
	clientIP  *security.ClientIPResolver
	limiter   *ratelimit.Limiter

	// membership checks keyed by "<familyID>:<userID>"
	members *cache.LRUCache[bool]
	janitor *cache.Janitor

	shutdownOnce sync.Once
	now          func() time.Time
}

const (
	membershipCacheSize = 1000
	membershipCacheTTL  = 5 * time.Minute
	janitorInterval     = 10 * time.Minute
)

// NewServer wires routes and middleware. The caller owns ListenAndServe and
// must call Shutdown to stop the background cleanup goroutines.
func NewServer(opts Options, deps Deps) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	clientIP := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	s := &Server{
		store:     deps.Store,
		budget:    deps.Budget,
		expenses:  deps.Expenses,
		auth:      deps.Auth,
		logger:    deps.Logger.WithComponent(log.ComponentHTTP),
		opts:      opts,
		templates: tmpl,
		clientIP:  clientIP,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			Requests: opts.AuthRateLimit,
			Window:   time.Minute,
		}),
		members: cache.NewLRUCache[bool](membershipCacheSize, membershipCacheTTL),
		now:     time.Now,
	}
	s.janitor = cache.NewJanitor(s.members)
	s.janitor.Start(janitorInterval)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(trace.RequestID)
	r.Use(log.Middleware(s.logger, trace.FromRequest, s.clientIP.ClientIP))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	static, _ := fs.Sub(appweb.StaticFS, "static")
	r.With(security.StaticAssets(86400)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	limited := s.limiter.Middleware(s.clientIP.ClientIP, s.tooManyRequests)

	r.Get("/login", s.handleLoginPage)
	r.With(limited).Post("/login", s.handleLoginForm)
	r.Post("/logout", s.handleLogout)
	r.With(s.auth.RequireUser(redirectToLogin)).Get("/", s.handleDashboard)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(security.NoStore)

		r.With(limited).Post("/auth/register", s.handleRegister)
		r.With(limited).Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireUser(s.unauthorized))

			r.Get("/me", s.handleMe)
			r.Put("/me/budget", s.handleSetMyBudget)
			r.Get("/me/projection", s.handleMyProjection)
			r.Get("/me/charts/projection.svg", s.handleMyProjectionChart)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/subscriptions", s.handleListSubscriptions)
			r.Post("/subscriptions", s.handleCreateSubscription)
			r.Delete("/subscriptions/{id}", s.handleDeleteSubscription)

			r.Get("/families", s.handleListFamilies)
			r.Post("/families", s.handleCreateFamily)
			r.Route("/families/{familyID}", func(r chi.Router) {
				r.Use(s.requireMember)

				r.Get("/", s.handleGetFamily)
				r.Get("/members", s.handleListMembers)
				r.With(s.requireOwner).Post("/members", s.handleAddMember)
				r.Delete("/members/{userID}", s.handleRemoveMember)
				r.With(s.requireOwner).Put("/budget", s.handleSetFamilyBudget)

				r.Get("/thresholds", s.handleListThresholds)
				r.Get("/thresholds/status", s.handleThresholdStatus)
				r.With(s.requireOwner).Put("/thresholds/{category}", s.handleSetThreshold)
				r.With(s.requireOwner).Delete("/thresholds/{category}", s.handleDeleteThreshold)

				r.Get("/projection", s.handleFamilyProjection)
				r.Get("/charts/projection.svg", s.handleFamilyProjectionChart)
				r.Get("/charts/categories.svg", s.handleCategoriesChart)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	return r
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
}

func (s *Server) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.ClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many requests"})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
