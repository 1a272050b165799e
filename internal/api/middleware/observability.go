package middleware

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

type routeKey struct{}

// matchedRoute is filled in by RecordRoute once the mux has picked a handler
type matchedRoute struct {
	pattern string
	role    string
}

// ObservabilityMiddleware opens a span per request and records request
// count and duration keyed by the matched route pattern.
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			matched := &matchedRoute{}
			ctx := context.WithValue(r.Context(), routeKey{}, matched)

			ctx, span := observability.StartSpan(ctx, r.Method)
			defer span.End()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rw, r.WithContext(ctx))

			// Patterns already carry the method; unmatched requests share one
			// label so 404 scans stay low cardinality
			route, spanName := matched.pattern, matched.pattern
			if route == "" {
				route = "unmatched"
				spanName = r.Method + " unmatched"
			}

			span.SetName(spanName)
			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.status_code", rw.statusCode),
			)
			if matched.role != "" {
				span.SetAttributes(attribute.String("spa.role", matched.role))
			}
			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}

			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}

// RecordRoute wraps the mux and reports the matched pattern and the caller's
// role back to ObservabilityMiddleware.
func RecordRoute(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if matched, ok := r.Context().Value(routeKey{}).(*matchedRoute); ok {
			matched.pattern = r.Pattern
			if identity := IdentityFromContext(r.Context()); identity != nil {
				matched.role = string(identity.Role)
			}
		}
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
