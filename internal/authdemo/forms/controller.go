package forms

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/clock"
	"finitefield.org/authdemo/internal/authdemo/notify"
)

// Authenticator is the session side of a successful auth submission.
type Authenticator interface {
	Login()
}

// Navigator moves the visitor to another route.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Recorder observes validation and submission activity.
type Recorder interface {
	FieldValidated(kind Kind, field string, valid bool)
	Submission(kind Kind, outcome Outcome)
}

type noopRecorder struct{}

func (noopRecorder) FieldValidated(Kind, string, bool) {}
func (noopRecorder) Submission(Kind, Outcome)          {}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler overrides the real-time scheduler.
func WithScheduler(s clock.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLatency overrides DefaultLatency.
func WithLatency(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.latency = d
		}
	}
}

// WithNotifier routes toasts to n.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithAuthenticator sets the session the form logs in on success.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Controller) {
		c.auth = a
	}
}

// WithNavigator sets the navigation target for successful submissions.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.nav = n
	}
}

// WithRecorder attaches metrics.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns one mounted form and carries out the effects Reduce asks for.
type Controller struct {
	def       Definition
	scheduler clock.Scheduler
	latency   time.Duration
	notifier  notify.Notifier
	auth      Authenticator
	nav       Navigator
	recorder  Recorder
	logger    *zap.Logger

	mu        sync.Mutex
	state     State
	discarded bool
}

// NewController mounts a fresh form for def.
func NewController(def Definition, opts ...Option) *Controller {
	c := &Controller{
		def:       def,
		scheduler: clock.Real(),
		latency:   DefaultLatency,
		notifier:  notify.Discard,
		recorder:  noopRecorder{},
		logger:    zap.NewNop(),
		state:     NewState(def),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("form", string(def.Kind)))
	return c
}

// Kind returns the form kind.
func (c *Controller) Kind() Kind {
	return c.def.Kind
}

// Definition returns the form definition.
func (c *Controller) Definition() Definition {
	return c.def
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Submitting reports whether a round trip is pending.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Submitting
}

// Discarded reports whether the form was torn down.
func (c *Controller) Discarded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

// Discard tears the form down. Later events, including a pending completion, are ignored.
func (c *Controller) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discarded = true
}

// Dispatch applies ev and runs its effects, returning the resulting state.
func (c *Controller) Dispatch(ev Event) State {
	c.mu.Lock()
	if c.discarded {
		snapshot := c.state.Clone()
		c.mu.Unlock()
		if _, ok := ev.(Complete); ok {
			c.logger.Debug("completion dropped for discarded form")
		}
		return snapshot
	}
	next, effects := Reduce(c.def, c.state, ev)
	c.state = next
	c.mu.Unlock()

	// Effects run unlocked: an immediate scheduler re-enters Dispatch.
	for _, eff := range effects {
		c.apply(eff)
	}
	return c.State()
}

func (c *Controller) apply(eff Effect) {
	switch e := eff.(type) {
	case Validated:
		c.recorder.FieldValidated(c.def.Kind, e.Field, e.Valid)
	case Submitted:
		c.recorder.Submission(c.def.Kind, e.Outcome)
		c.logger.Debug("form submission", zap.String("outcome", string(e.Outcome)))
	case Notify:
		if e.Level == notify.LevelError {
			c.notifier.Error(e.Message)
		} else {
			c.notifier.Success(e.Message)
		}
	case Schedule:
		attempt := e.Attempt
		c.scheduler.AfterFunc(c.latency, func() {
			c.Dispatch(Complete{Attempt: attempt})
		})
	case Authenticate:
		if c.auth != nil {
			c.auth.Login()
		}
	case Navigate:
		if c.nav != nil {
			c.nav.Navigate(e.Path)
		}
	case Reset:
		c.mu.Lock()
		c.state = NewState(c.def)
		c.mu.Unlock()
	}
}
