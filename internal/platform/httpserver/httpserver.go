package httpserver

import (
	"net/http"

	"gestora/internal/platform/config"
)

// New builds the API server with the timeouts from configuration. Keep
// the write timeout above the data store's own timeouts so a slow store
// surfaces as an error response, not a dropped connection.
func New(addr string, cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
