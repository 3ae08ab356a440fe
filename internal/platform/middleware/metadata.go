package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"gestora/pkg/requestcontext"
)

// Metadata captures the client IP and a normalized User-Agent description
// for audit and security logging. The raw UA string is not propagated;
// browser/OS names are enough for forensics and avoid log bloat.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), describeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For is set by the fronting proxy; first hop is the caller.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func describeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	parts := make([]string, 0, 3)
	if name != "" {
		if version != "" {
			parts = append(parts, name+"/"+version)
		} else {
			parts = append(parts, name)
		}
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	if ua.Bot() {
		parts = append(parts, "bot")
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, " ")
}
