package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server tuned for the admin API: requests are small
// JSON bodies, but responses to mutation endpoints block on a full
// reconciliation pass (doveadm calls plus DNS and web regeneration), so the
// write timeout is generous.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
