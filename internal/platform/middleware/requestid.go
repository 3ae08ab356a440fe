// Package middleware holds the transport-agnostic platform middleware:
// request correlation, request time pinning, and client metadata capture.
// Authorization middleware lives with its own modules under internal/authz
// and internal/identity.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"gestora/pkg/requestcontext"
)

// RequestIDHeader is echoed on every response for support correlation.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a correlation id to each request. An inbound id is
// reused so upstream gateways can stitch traces end to end.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
