package visitor

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/forms"
)

// DefaultIdleTimeout evicts visitors that have not made a request for this long.
const DefaultIdleTimeout = 30 * time.Minute

// Registry tracks live visitors in memory. Nothing survives a restart.
type Registry struct {
	mu       sync.RWMutex
	visitors map[string]*Visitor

	idle     time.Duration
	now      func() time.Time
	idGen    func() string
	formOpts []forms.Option
	logger   *zap.Logger
	onChange func(count int)
	onCreate []func(*Visitor)
}

// Option customises a Registry.
type Option func(*Registry)

// WithIdleTimeout overrides DefaultIdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides ULID generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.idGen = fn
		}
	}
}

// WithFormOptions applies opts to every form a visitor mounts.
func WithFormOptions(opts ...forms.Option) Option {
	return func(r *Registry) {
		r.formOpts = append(r.formOpts, opts...)
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCountObserver is called with the visitor count after every create or sweep.
func WithCountObserver(fn func(count int)) Option {
	return func(r *Registry) {
		r.onChange = fn
	}
}

// WithCreateHook runs fn for every new visitor before it is handed out.
func WithCreateHook(fn func(*Visitor)) Option {
	return func(r *Registry) {
		if fn != nil {
			r.onCreate = append(r.onCreate, fn)
		}
	}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		visitors: make(map[string]*Visitor),
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		idGen:    func() string { return ulid.Make().String() },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the visitor for id and marks it as seen.
func (r *Registry) Get(id string) (*Visitor, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	v, ok := r.visitors[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v.touch(r.now())
	return v, true
}

// Create registers a new visitor with a fresh, unauthenticated session.
func (r *Registry) Create() *Visitor {
	v := newVisitor(r.idGen(), r.now(), r.formOpts)
	for _, hook := range r.onCreate {
		hook(v)
	}

	r.mu.Lock()
	r.visitors[v.id] = v
	count := len(r.visitors)
	r.mu.Unlock()

	r.logger.Debug("visitor created", zap.String("visitor_id", v.id))
	r.notify(count)
	return v
}

// Sweep evicts visitors idle for longer than the timeout and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var evicted []*Visitor
	for id, v := range r.visitors {
		if v.LastSeen().Before(cutoff) {
			evicted = append(evicted, v)
			delete(r.visitors, id)
		}
	}
	count := len(r.visitors)
	r.mu.Unlock()

	for _, v := range evicted {
		v.close()
	}
	if len(evicted) > 0 {
		r.logger.Info("visitors evicted", zap.Int("count", len(evicted)), zap.Int("remaining", count))
		r.notify(count)
	}
	return len(evicted)
}

// Len returns the number of live visitors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.visitors)
}

// Run sweeps on every tick until stop is closed.
func (r *Registry) Run(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) notify(count int) {
	if r.onChange != nil {
		r.onChange(count)
	}
}
