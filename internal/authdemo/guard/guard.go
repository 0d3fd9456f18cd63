package guard

import (
	"path"
	"sort"
	"strings"
)

// Decision is the guard's verdict for a navigation.
type Decision struct {
	Allow    bool
	Redirect string
	// From holds the originally requested path on sign-up redirects. Nothing consumes it yet.
	From string
}

// Allowed is the decision to render the requested page.
var Allowed = Decision{Allow: true}

// Policy lists which routes are public and which require a session.
type Policy struct {
	Public     []string
	Protected  []string
	SignUpPath string
	HomePath   string
}

// Default returns the application's route policy.
func Default() Policy {
	return Policy{
		Public:     []string{"/login", "/signup"},
		Protected:  []string{"/", "/about", "/contact"},
		SignUpPath: "/signup",
		HomePath:   "/",
	}
}

// Rule is one row of the policy table.
type Rule struct {
	Path   string
	Access string
}

// Table returns the policy as sorted rows, for display.
func (p Policy) Table() []Rule {
	rows := make([]Rule, 0, len(p.Public)+len(p.Protected))
	for _, r := range p.Public {
		rows = append(rows, Rule{Path: r, Access: "public"})
	}
	for _, r := range p.Protected {
		rows = append(rows, Rule{Path: r, Access: "authenticated"})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows
}

// IsPublic reports whether p is reachable without a session.
func (p Policy) IsPublic(raw string) bool {
	return contains(p.Public, Normalize(raw))
}

// IsProtected reports whether p requires a session.
func (p Policy) IsProtected(raw string) bool {
	return contains(p.Protected, Normalize(raw))
}

// IsKnown reports whether p appears anywhere in the policy.
func (p Policy) IsKnown(raw string) bool {
	return p.IsPublic(raw) || p.IsProtected(raw)
}

// Evaluate decides whether a visitor may view raw given its session flag.
//
// Public pages redirect an authenticated visitor home, which is the check the auth pages
// perform when they mount.
func (p Policy) Evaluate(raw string, authenticated bool) Decision {
	target := Normalize(raw)
	switch {
	case contains(p.Protected, target):
		if !authenticated {
			return Decision{Redirect: p.signUp(), From: target}
		}
		return Allowed
	case contains(p.Public, target):
		if authenticated {
			return Decision{Redirect: p.home()}
		}
		return Allowed
	default:
		return Decision{Redirect: p.home()}
	}
}

// Evaluate applies the default policy.
func Evaluate(raw string, authenticated bool) Decision {
	return Default().Evaluate(raw, authenticated)
}

func (p Policy) home() string {
	if p.HomePath == "" {
		return "/"
	}
	return p.HomePath
}

func (p Policy) signUp() string {
	if p.SignUpPath == "" {
		return "/signup"
	}
	return p.SignUpPath
}

// Normalize cleans a request path: duplicate and trailing slashes are removed and the
// query or fragment is dropped.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return path.Clean(trimmed)
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if Normalize(item) == target {
			return true
		}
	}
	return false
}
