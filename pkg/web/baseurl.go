package web

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Origin tracks the externally reachable base URL used to mint absolute
// links. It is learned opportunistically from inbound Host headers unless
// pinned by configuration.
type Origin struct {
	pinned   string
	fallback string
	observed atomic.Value // string
}

// NewOrigin builds an Origin. pinned, when non-empty, wins over anything
// observed; port feeds the localhost fallback used before any request has
// been seen.
func NewOrigin(pinned string, port int) *Origin {
	return &Origin{
		pinned:   strings.TrimRight(pinned, "/"),
		fallback: fmt.Sprintf("http://localhost:%d", port),
	}
}

// Observe records the host of an inbound request. Local hosts keep http;
// anything else is assumed to sit behind TLS.
func (o *Origin) Observe(host string) {
	if host == "" || o.pinned != "" {
		return
	}
	clean := strings.TrimRight(host, "/")
	proto := "https"
	if strings.HasPrefix(clean, "localhost") || strings.HasPrefix(clean, "127.0.0.1") {
		proto = "http"
	}
	o.observed.Store(proto + "://" + clean)
}

// BaseURL returns the current origin, never empty.
func (o *Origin) BaseURL() string {
	if o.pinned != "" {
		return o.pinned
	}
	if v, ok := o.observed.Load().(string); ok && v != "" {
		return v
	}
	return o.fallback
}
