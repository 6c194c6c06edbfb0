// Package healthz provides the liveness and readiness endpoints served
// on each binary's debug listener.
package healthz

import (
	"net/http"
	"sync/atomic"
)

type Handler struct {
	ready atomic.Bool
}

// New returns a handler that reports healthy immediately.  Use
// NewGated for readiness endpoints that should fail until SetReady.
func New() *Handler {
	h := &Handler{}
	h.ready.Store(true)
	return h
}

func NewGated() *Handler {
	return &Handler{}
}

func (h *Handler) SetReady() {
	h.ready.Store(true)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("200 OK"))
}
