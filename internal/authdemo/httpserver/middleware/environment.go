package middleware

import (
	"context"
	"net/http"
	"strings"

	"finitefield.org/authdemo/internal/authdemo/guard"
)

const defaultEnvironment = "development"

type pageInfoKey struct{}

// PageInfo is the request metadata the layout needs: which nav entry is active and which
// environment badge to show.
type PageInfo struct {
	Path        string
	Method      string
	Environment string
}

// PageContext stores a PageInfo for every request. An empty env reads as "development".
func PageContext(env string) func(http.Handler) http.Handler {
	label := strings.ToLower(strings.TrimSpace(env))
	if label == "" {
		label = defaultEnvironment
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := PageInfo{
				Path:        guard.Normalize(r.URL.Path),
				Method:      r.Method,
				Environment: label,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pageInfoKey{}, info)))
		})
	}
}

// PageInfoFromContext returns the stored metadata.
func PageInfoFromContext(ctx context.Context) (PageInfo, bool) {
	info, ok := ctx.Value(pageInfoKey{}).(PageInfo)
	return info, ok
}

// RequestPathFromContext returns the normalised request path, or "/".
func RequestPathFromContext(ctx context.Context) string {
	if info, ok := PageInfoFromContext(ctx); ok {
		return info.Path
	}
	return "/"
}

// EnvironmentFromContext returns the environment label.
func EnvironmentFromContext(ctx context.Context) string {
	if info, ok := PageInfoFromContext(ctx); ok {
		return info.Environment
	}
	return defaultEnvironment
}

// NoStore disables caching. Every page reflects per-visitor session state.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store, max-age=0")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}
