package visitor

import (
	"fmt"
	"sync"
	"time"

	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/guard"
	"finitefield.org/authdemo/internal/authdemo/notify"
	"finitefield.org/authdemo/internal/authdemo/session"
)

// Visitor is one browser's application instance: its session flag, toasts, route and forms.
type Visitor struct {
	id       string
	session  *session.Store
	toasts   *notify.Queue
	formOpts []forms.Option

	mu       sync.Mutex
	location string
	mounted  map[forms.Kind]*forms.Controller
	lastSeen time.Time
}

func newVisitor(id string, now time.Time, formOpts []forms.Option) *Visitor {
	return &Visitor{
		id:       id,
		session:  session.NewStore(),
		toasts:   notify.NewQueue(),
		formOpts: formOpts,
		location: "/",
		mounted:  make(map[forms.Kind]*forms.Controller),
		lastSeen: now,
	}
}

// ID returns the visitor identifier carried in the cookie.
func (v *Visitor) ID() string {
	return v.id
}

// Session returns the visitor's authentication store.
func (v *Visitor) Session() *session.Store {
	return v.session
}

// Toasts returns the visitor's notification queue.
func (v *Visitor) Toasts() *notify.Queue {
	return v.toasts
}

// Location returns the active route.
func (v *Visitor) Location() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.location
}

// Navigate records path as the active route and tears down forms that belong to other pages.
func (v *Visitor) Navigate(path string) {
	target := guard.Normalize(path)

	v.mu.Lock()
	v.location = target
	var dropped []*forms.Controller
	for kind, ctrl := range v.mounted {
		if PagePath(kind) != target {
			dropped = append(dropped, ctrl)
			delete(v.mounted, kind)
		}
	}
	v.mu.Unlock()

	for _, ctrl := range dropped {
		ctrl.Discard()
	}
}

// Mount creates a fresh form of kind, discarding any previous instance.
func (v *Visitor) Mount(kind forms.Kind) (*forms.Controller, error) {
	def, ok := forms.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("visitor: unknown form %q", kind)
	}
	opts := append([]forms.Option(nil), v.formOpts...)
	opts = append(opts,
		forms.WithNotifier(v.toasts),
		forms.WithAuthenticator(v.session),
		forms.WithNavigator(v),
	)
	ctrl := forms.NewController(def, opts...)

	v.mu.Lock()
	prev := v.mounted[kind]
	v.mounted[kind] = ctrl
	v.mu.Unlock()

	if prev != nil {
		prev.Discard()
	}
	return ctrl, nil
}

// Form returns the mounted form of kind.
func (v *Visitor) Form(kind forms.Kind) (*forms.Controller, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ctrl, ok := v.mounted[kind]
	return ctrl, ok
}

// Unmount discards the form of kind, if mounted.
func (v *Visitor) Unmount(kind forms.Kind) {
	v.mu.Lock()
	ctrl := v.mounted[kind]
	delete(v.mounted, kind)
	v.mu.Unlock()

	if ctrl != nil {
		ctrl.Discard()
	}
}

// Logout clears the session and moves to the login page.
func (v *Visitor) Logout() {
	v.session.Logout()
	v.Navigate(PagePath(forms.KindLogin))
}

// LastSeen returns the last time the visitor made a request.
func (v *Visitor) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *Visitor) close() {
	v.mu.Lock()
	mounted := v.mounted
	v.mounted = make(map[forms.Kind]*forms.Controller)
	v.mu.Unlock()

	for _, ctrl := range mounted {
		ctrl.Discard()
	}
}

// PagePath returns the route a form lives on.
func PagePath(kind forms.Kind) string {
	return "/" + string(kind)
}
