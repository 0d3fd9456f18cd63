package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/content"
	"finitefield.org/authdemo/internal/authdemo/directory"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/guard"
	custommw "finitefield.org/authdemo/internal/authdemo/httpserver/middleware"
	"finitefield.org/authdemo/internal/authdemo/live"
	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/templates"
	"finitefield.org/authdemo/internal/authdemo/visitor"
	"finitefield.org/authdemo/public"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// Config holds runtime options for the HTTP server.
type Config struct {
	Address     string
	Environment string
	Logger      *zap.Logger

	Sessions  custommw.TicketStore
	Registry  *visitor.Registry
	Content   *content.Library
	Directory directory.Service
	Metrics   *observability.Metrics
	Policy    guard.Policy
	Views     *templates.Set

	// CheckOrigin overrides the websocket origin check.
	CheckOrigin func(*http.Request) bool

	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// New constructs the HTTP server with middleware stack, pages and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session manager is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("httpserver: visitor registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Content == nil {
		cfg.Content = content.NewLibrary(nil)
	}
	if cfg.Directory == nil {
		cfg.Directory = directory.NewStaticService()
	}
	if cfg.Views == nil {
		cfg.Views = templates.Default()
	}
	if len(cfg.Policy.Public) == 0 && len(cfg.Policy.Protected) == 0 {
		cfg.Policy = guard.Default()
	}

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}

	// Keep the recorder a nil interface when metrics are off.
	var redirects custommw.RedirectRecorder
	hubOpts := []live.Option{}
	if cfg.Metrics != nil {
		redirects = cfg.Metrics
		hubOpts = append(hubOpts, live.WithConnectionObserver(cfg.Metrics.LiveConnected))
	}
	if cfg.CheckOrigin != nil {
		hubOpts = append(hubOpts, live.WithCheckOrigin(cfg.CheckOrigin))
	}
	hub := live.NewHub(func(r *http.Request) (live.Source, bool) {
		v, ok := custommw.VisitorFromContext(r.Context())
		if !ok {
			return nil, false
		}
		return v, true
	}, hubOpts...)

	h := &handlers{
		views:     cfg.Views,
		content:   cfg.Content,
		directory: cfg.Directory,
		policy:    cfg.Policy,
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.StripSlashes)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.Trace)
	router.Use(observability.RequestLogger)
	router.Use(observability.Recovery)
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	pageStack := []func(http.Handler) http.Handler{
		custommw.HTMX(),
		custommw.PageContext(cfg.Environment),
		custommw.NoStore(),
		custommw.Visitors(cfg.Sessions, cfg.Registry),
	}

	router.Group(func(r chi.Router) {
		r.Use(pageStack...)
		// The websocket outlives any request timeout.
		r.Get("/ws", hub.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(firstPositive(cfg.RequestTimeout, defaultRequestTimeout)))
			mountPages(r, h, cfg.Policy, redirects)
			r.Post("/logout", h.Logout)
		})
	})

	// Unknown paths still pass through the guard, which sends them home.
	timeout := chimw.Timeout(firstPositive(cfg.RequestTimeout, defaultRequestTimeout))
	notFound := chi.Chain(pageStack...).Handler(timeout(custommw.Guard(cfg.Policy, redirects)(http.NotFoundHandler())))
	router.NotFound(notFound.ServeHTTP)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  firstPositive(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout: firstPositive(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:  firstPositive(cfg.IdleTimeout, defaultIdleTimeout),
	}
	srv.RegisterOnShutdown(hub.Close)
	return srv, nil
}

func mountPages(r chi.Router, h *handlers, policy guard.Policy, redirects custommw.RedirectRecorder) {
	guarded := r.With(custommw.Guard(policy, redirects))
	guarded.Get("/", h.Home)
	guarded.Get("/about", h.About)
	guarded.Get("/contact", h.Contact)
	guarded.Get("/signup", h.AuthPage(forms.KindSignUp))
	guarded.Get("/login", h.AuthPage(forms.KindLogin))

	for _, kind := range forms.Kinds() {
		page := visitor.PagePath(kind)
		form := r.With(custommw.GuardPage(policy, redirects, page))
		form.Post(page, h.FormSubmit(kind))
		RegisterFragment(form, http.MethodPost, page+"/events", h.FormEvent(kind))
		RegisterFragment(form, http.MethodGet, page+"/status", h.FormStatus(kind))
	}
}

// RegisterFragment registers a handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, method, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Method(method, pattern, handler)
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
