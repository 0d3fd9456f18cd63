package middleware

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/guard"
	"finitefield.org/authdemo/internal/authdemo/observability"
)

// RedirectRecorder observes redirects issued by the guard.
type RedirectRecorder interface {
	GuardRedirect(target string)
}

// Guard applies policy to the request path.
func Guard(policy guard.Policy, rec RedirectRecorder) func(http.Handler) http.Handler {
	return GuardPage(policy, rec, "")
}

// GuardPage applies policy as if the request were a visit to page. Form endpoints use it so
// they are reachable exactly when their page is. An empty page uses the request path.
func GuardPage(policy guard.Policy, rec RedirectRecorder, page string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target := page
			if target == "" {
				target = r.URL.Path
			}

			authenticated := false
			if v, ok := VisitorFromContext(r.Context()); ok {
				authenticated = v.Session().IsAuthenticated()
			}

			decision := policy.Evaluate(target, authenticated)
			if decision.Allow {
				next.ServeHTTP(w, r)
				return
			}

			if rec != nil {
				rec.GuardRedirect(decision.Redirect)
			}
			observability.FromContext(r.Context()).Debug("guard redirect",
				zap.String("path", guard.Normalize(target)),
				zap.Bool("authenticated", authenticated),
				zap.String("redirect", decision.Redirect),
			)
			Redirect(w, r, redirectURL(decision))
		})
	}
}

func redirectURL(d guard.Decision) string {
	if d.From == "" {
		return d.Redirect
	}
	u := url.URL{Path: d.Redirect, RawQuery: url.Values{"from": {d.From}}.Encode()}
	return u.String()
}

// Redirect sends the browser to target: htmx requests get HX-Redirect, plain GETs a 302 and
// everything else a 303.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusFound
	}
	http.Redirect(w, r, target, status)
}

// Refresh asks an htmx client to reload its page; other clients are sent to page.
func Refresh(w http.ResponseWriter, r *http.Request, page string) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	Redirect(w, r, page)
}
