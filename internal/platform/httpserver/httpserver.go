package httpserver

import (
	"net/http"
	"time"
)

// HandlerTimeout bounds one synchronous request. Audit runs are started in
// the background and are not subject to it.
const HandlerTimeout = 30 * time.Second

// New builds an HTTP server with sane defaults for this project. WriteTimeout
// leaves room after HandlerTimeout so the timeout response can be written.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      HandlerTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
