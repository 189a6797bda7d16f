// Package requesttime provides middleware for request-scoped time. All work
// done for one HTTP request reads the same "now" through requestcontext.Now.
package requesttime

import (
	"net/http"
	"time"

	"smarttracing/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the request context.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareWithClock(time.Now)(next)
}

// MiddlewareWithClock is Middleware with an injectable clock.
func MiddlewareWithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
