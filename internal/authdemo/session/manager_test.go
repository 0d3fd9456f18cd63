package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:  "test_visitor",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout: 10 * time.Minute,
		Lifetime:    2 * time.Hour,
		Now:         clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return mgr, clock
}

func TestManager_RoundTripsVisitorID(t *testing.T) {
	mgr, clock := newTestManager(t)

	ticket, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if ticket.VisitorID() != "" {
		t.Fatalf("fresh ticket must not carry a visitor")
	}
	if !ticket.CreatedAt().Equal(clock.current) {
		t.Fatalf("unexpected CreatedAt: %v", ticket.CreatedAt())
	}
	ticket.SetVisitorID("visitor-1")

	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, ticket); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_visitor")
	if cookie == nil {
		t.Fatalf("expected cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Fatalf("visitor cookie must be http-only")
	}

	clock.current = clock.current.Add(5 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load existing error: %v", err)
	}
	if loaded.VisitorID() != "visitor-1" {
		t.Fatalf("expected visitor id to persist, got %q", loaded.VisitorID())
	}
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_visitor", Value: "not-a-valid-cookie"})
	ticket, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if ticket.VisitorID() != "" || !ticket.Dirty() {
		t.Fatalf("expected a fresh dirty ticket")
	}
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	ticket, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, ticket); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_visitor")

	clock.current = clock.current.Add(20 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if _, err := mgr.Load(req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManager_Destroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	ticket, _ := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	ticket.Destroy()

	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, ticket); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_visitor")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected cookie cleared")
	}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing hash key, got %v", err)
	}
	if _, err := NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad block key, got %v", err)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
