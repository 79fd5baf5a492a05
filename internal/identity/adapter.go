package identity

import (
	"net/http"

	"github.com/rvilla/marks-front/internal/cookie"
)

// The three adapter flavors share one contract and differ only in how the
// cookie source and sink are wired. Each produces a request-scoped client.

// NewEdgeClient binds a client to an interceptor's request/response pair.
// The two are distinct objects: refreshed entries read from the request
// side must be explicitly written onto the response, never assumed to
// alias it.
func NewEdgeClient(cfg Config, r *http.Request, w http.ResponseWriter) *Client {
	return newClient(cfg, cookie.FromRequest(r), cookie.ToResponse(w))
}

// NewRenderClient binds a client to a single mutable per-request store, as
// used by server-rendered views. When the jar is read-only, writes are
// silently dropped and the session stays stale until a writable context
// observes it.
func NewRenderClient(cfg Config, jar *cookie.Jar) *Client {
	return newClient(cfg, jar.Source(), jar.Sink())
}

// NewBrowserClient binds a client to the browser's ambient cookie store.
// On top of the shared contract it exposes the auth-state subscription and
// URL session detection for flows that complete after initial load.
func NewBrowserClient(cfg Config, jar *cookie.Jar) *Client {
	return newClient(cfg, jar.Source(), jar.Sink())
}
