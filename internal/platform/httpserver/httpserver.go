package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. WriteTimeout sits above the router's
// per-request timeout so slow requests are cut off by the handler's
// context deadline, which produces a JSON error body, rather than by the
// server dropping the connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
