package middleware

import (
	"context"
	"net/http"
	"strings"
)

type htmxKey struct{}

// HTMXInfo is what the form handlers need from the HX-* request headers.
type HTMXInfo struct {
	IsHTMX bool
	// TriggerName is the name attribute of the element that fired the request.
	TriggerName string
	Target      string
	// HistoryRestore marks a cache-miss reload of a whole page from htmx history.
	HistoryRestore bool
}

// Fragment reports whether the response may be a partial. History restores need the full page.
func (i HTMXInfo) Fragment() bool {
	return i.IsHTMX && !i.HistoryRestore
}

// HTMX parses the HX-* headers once per request.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{
				IsHTMX:         headerTrue(r, "HX-Request"),
				TriggerName:    strings.TrimSpace(r.Header.Get("HX-Trigger-Name")),
				Target:         r.Header.Get("HX-Target"),
				HistoryRestore: headerTrue(r, "HX-History-Restore-Request"),
			}
			// The same URL answers with a page or a fragment.
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxKey{}, info)))
		})
	}
}

// HTMXInfoFromContext returns the parsed headers, or the zero value outside the middleware.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	info, _ := ctx.Value(htmxKey{}).(HTMXInfo)
	return info
}

// IsHTMXRequest reports whether the request can be answered with a fragment.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXInfoFromContext(ctx).Fragment()
}

// RequireHTMX hides fragment routes from plain navigation.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func headerTrue(r *http.Request, name string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(name)), "true")
}
