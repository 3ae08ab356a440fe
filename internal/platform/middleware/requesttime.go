package middleware

import (
	"net/http"
	"time"

	"gestora/pkg/requestcontext"
)

// RequestTime pins a single timestamp for the request so every component
// (envelope, audit events, stores) observes the same clock reading.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
