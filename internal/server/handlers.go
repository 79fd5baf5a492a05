package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/rvilla/marks-front/internal/cookie"
	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
	"github.com/rvilla/marks-front/internal/storage"
	"github.com/rvilla/marks-front/internal/urlutil"
	"github.com/rvilla/marks-front/internal/webhook"
)

// Handlers holds the dependencies shared by all page handlers
type Handlers struct {
	idConfig identity.Config
	store    storage.Store
	hook     *webhook.Client
	baseURL  string
}

// NewHandlers creates the page handlers with dependency injection
func NewHandlers(idConfig identity.Config, store storage.Store, hook *webhook.Client, baseURL string) *Handlers {
	return &Handlers{
		idConfig: idConfig,
		store:    store,
		hook:     hook,
		baseURL:  baseURL,
	}
}

// requestJar seeds a per-request mutable cookie store from the incoming
// request. Render handlers mirror its writes onto the response before the
// body is finalized.
func requestJar(r *http.Request) *cookie.Jar {
	return cookie.NewJar(cookie.FromRequest(r)())
}

// flushJar mirrors entries written during this request onto the outgoing
// response. Must run before any status or body write.
func flushJar(w http.ResponseWriter, jar *cookie.Jar) {
	if entries := jar.Changed(); len(entries) > 0 {
		cookie.ToResponse(w)(entries)
	}
}

func renderPage(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.LogError("Failed to render page: %v", err)
	}
}

// safeReturnPath keeps redirect targets on this origin
func safeReturnPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "/"
	}
	return path
}

// completionURL builds the absolute auth-completion URL the provider sends
// users back to after an out-of-band step
func (h *Handlers) completionURL(next string) string {
	u, err := urlutil.WithQuery(urlutil.MustJoinPath(h.baseURL, "/auth/callback"), "next", next)
	if err != nil {
		return urlutil.MustJoinPath(h.baseURL, "/auth/callback")
	}
	return u
}
