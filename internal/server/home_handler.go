package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/rvilla/marks-front/internal/gate"
	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
)

// HomeHandler renders the bookmark list. It re-resolves the session with a
// render-flavor client even though the gate already admitted the request:
// the gate protects routes generically, this is the authoritative per-view
// check that also supplies the identity the view needs.
func (h *Handlers) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	jar := requestJar(r)
	client := identity.NewRenderClient(h.idConfig, jar)

	id, err := client.ValidateSession(r.Context())
	flushJar(w, jar)
	if err != nil {
		if !errors.Is(err, identity.ErrAuthInvalid) {
			log.LogWarnWithFields("home", "Session resolution failed, redirecting to login", map[string]any{
				"error": err.Error(),
			})
		}
		target := gate.LoginPath + "?" + url.Values{"redirect": {r.URL.Path}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	data := HomePageData{
		Email: id.Email,
		Added: r.URL.Query().Get("added") == "true",
	}

	bookmarks, err := h.store.ListBookmarks(r.Context(), id.ID)
	if err != nil {
		log.LogErrorWithFields("home", "Failed to list bookmarks", map[string]any{
			"user":  id.ID,
			"error": err.Error(),
		})
		data.ErrorMsg = "the bookmark store did not respond"
	}
	data.Bookmarks = bookmarks

	renderPage(w, http.StatusOK, homePageTemplate, data)
}
