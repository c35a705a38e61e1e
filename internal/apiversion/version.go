// Package apiversion routes requests to concurrently-supported behavioral
// versions of an endpoint. A middleware resolves the version tag from a
// request header; a generic Dispatcher selects the handler registered for
// that tag. The dispatcher owns response serialization, so every versioned
// handler returns a raw result and never touches the ResponseWriter.
package apiversion

import (
	"context"
	"net/http"

	"sociable/internal/metrics"
)

// Known version tags.
const (
	V1 = "1.0"
	V2 = "2.0"
)

type contextKey string

const versionKey contextKey = "api_version"

// Middleware extracts the version tag from the configured header, applying
// the default tag when the header is absent, and stores it in the request
// context for the dispatchers downstream.
func Middleware(header, defaultVersion string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version := r.Header.Get(header)
			if version == "" {
				version = defaultVersion
			}

			metrics.APIRequestsByVersion.WithLabelValues(version).Inc()

			ctx := context.WithValue(r.Context(), versionKey, version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the resolved version tag, or the empty string when no
// versioning middleware ran.
func FromContext(ctx context.Context) string {
	version, _ := ctx.Value(versionKey).(string)
	return version
}

// WithVersion returns a context carrying the given version tag. Used by
// tests and by internal callers invoking handlers outside the middleware.
func WithVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey, version)
}
