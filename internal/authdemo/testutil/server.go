package testutil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"finitefield.org/authdemo/internal/authdemo/clock"
	"finitefield.org/authdemo/internal/authdemo/directory"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/httpserver"
	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/session"
	"finitefield.org/authdemo/internal/authdemo/visitor"
)

// CookieName is the visitor cookie used by test servers.
const CookieName = "authdemo_test"

// Server bundles the running test server with the state behind it.
type Server struct {
	*httptest.Server
	Registry *visitor.Registry
	Metrics  *observability.Metrics
}

type serverSetup struct {
	cfg          httpserver.Config
	scheduler    clock.Scheduler
	registryOpts []visitor.Option
}

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverSetup)

// WithScheduler replaces the zero-latency scheduler that completes submissions inline.
func WithScheduler(scheduler clock.Scheduler) ServerOption {
	return func(s *serverSetup) {
		s.scheduler = scheduler
	}
}

// WithDirectory wires a custom member directory.
func WithDirectory(service directory.Service) ServerOption {
	return func(s *serverSetup) {
		s.cfg.Directory = service
	}
}

// WithEnvironment sets the environment label shown in the navbar.
func WithEnvironment(env string) ServerOption {
	return func(s *serverSetup) {
		s.cfg.Environment = env
	}
}

// WithRegistryOptions appends visitor registry options.
func WithRegistryOptions(opts ...visitor.Option) ServerOption {
	return func(s *serverSetup) {
		s.registryOpts = append(s.registryOpts, opts...)
	}
}

// NewServer constructs an httptest server running the full HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		CookieName: CookieName,
		HashKey:    []byte(strings.Repeat("k", 32)),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	setup := serverSetup{
		cfg: httpserver.Config{
			Address:     ":0",
			Environment: "test",
			Sessions:    sessions,
			Directory:   directory.NewStaticService(),
		},
		scheduler: clock.Immediate(),
	}
	for _, opt := range opts {
		opt(&setup)
	}

	metrics := observability.NewMetrics()
	registryOpts := []visitor.Option{
		visitor.WithFormOptions(
			forms.WithScheduler(setup.scheduler),
			forms.WithRecorder(metrics),
		),
		visitor.WithCountObserver(metrics.SetVisitors),
		visitor.WithCreateHook(func(v *visitor.Visitor) {
			v.Session().Subscribe(metrics.SessionTransition)
		}),
	}
	registry := visitor.NewRegistry(append(registryOpts, setup.registryOpts...)...)

	setup.cfg.Registry = registry
	setup.cfg.Metrics = metrics

	srv, err := httpserver.New(setup.cfg)
	if err != nil {
		t.Fatalf("http server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &Server{Server: ts, Registry: registry, Metrics: metrics}
}
