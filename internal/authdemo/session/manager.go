package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName  = "authdemo_visitor"
	defaultCookiePath  = "/"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

// ErrExpired indicates the stored ticket is no longer valid due to idle or absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Data is the cookie payload. It identifies the visitor and never carries authentication state.
type Data struct {
	VisitorID  string    `json:"vid,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

// Ticket is the decoded cookie for the current request.
type Ticket struct {
	data      Data
	dirty     bool
	destroyed bool
}

// Config controls cookie encoding and lifecycle limits for the manager.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager decodes and persists visitor tickets via signed (and optionally encrypted) cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{cfg: cfg, codec: codec, now: nowFn}, nil
}

// Load retrieves the ticket from the incoming request or creates a new one.
// Tampered or undecodable cookies yield a fresh ticket; expired ones yield ErrExpired.
func (m *Manager) Load(r *http.Request) (*Ticket, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.New(), nil
	}

	t := &Ticket{data: stored}
	if m.isExpired(t, m.now()) {
		return nil, ErrExpired
	}
	return t, nil
}

// New returns a pristine ticket without a visitor assigned.
func (m *Manager) New() *Ticket {
	now := m.now().UTC()
	return &Ticket{
		data: Data{
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		dirty: true,
	}
}

// Save writes the ticket back to the response as a cookie. Destroyed tickets clear the cookie.
func (m *Manager) Save(w http.ResponseWriter, t *Ticket) error {
	if t == nil {
		return errors.New("session: nil ticket")
	}
	if t.destroyed {
		http.SetCookie(w, m.expiredCookie())
		return nil
	}

	t.Touch(m.now())

	encoded, err := m.codec.Encode(m.cfg.CookieName, t.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
	if expiry := t.data.ExpiresAt; !expiry.IsZero() {
		cookie.Expires = expiry.UTC()
		if remaining := expiry.Sub(m.now()); remaining > 0 {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		} else {
			cookie.MaxAge = -1
		}
	}

	http.SetCookie(w, cookie)
	t.dirty = false
	return nil
}

// Destroy invalidates the cookie immediately.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.expiredCookie())
}

func (m *Manager) isExpired(t *Ticket, now time.Time) bool {
	now = now.UTC()
	if !t.data.ExpiresAt.IsZero() && now.After(t.data.ExpiresAt.UTC()) {
		return true
	}
	last := t.data.LastActive
	if last.IsZero() {
		last = t.data.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > m.cfg.IdleTimeout
}

func (m *Manager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}

// VisitorID returns the visitor the ticket points at, or "" for a fresh ticket.
func (t *Ticket) VisitorID() string {
	return t.data.VisitorID
}

// SetVisitorID binds the ticket to a visitor.
func (t *Ticket) SetVisitorID(id string) {
	if t.data.VisitorID == id {
		return
	}
	t.data.VisitorID = id
	t.dirty = true
}

// CreatedAt returns the ticket creation timestamp.
func (t *Ticket) CreatedAt() time.Time {
	return t.data.CreatedAt
}

// LastActive returns the last access timestamp.
func (t *Ticket) LastActive() time.Time {
	return t.data.LastActive
}

// Touch updates the last active timestamp.
func (t *Ticket) Touch(now time.Time) {
	now = now.UTC()
	if now.After(t.data.LastActive) {
		t.data.LastActive = now
		t.dirty = true
	}
}

// Destroy marks the ticket for deletion at the end of the request.
func (t *Ticket) Destroy() {
	t.destroyed = true
	t.dirty = true
}

// Dirty indicates whether the ticket changed during this request.
func (t *Ticket) Dirty() bool {
	return t.dirty
}
