package server

import (
	"errors"
	"net/http"

	"github.com/rvilla/marks-front/internal/gate"
	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
	"github.com/rvilla/marks-front/internal/urlutil"
	"github.com/rvilla/marks-front/internal/webhook"
)

// ShareTargetHandler ingests a share payload from an OS-level share
// action: authenticate, forward exactly once, interpret the dedup signal.
// The webhook call happens after identity resolution and settles before
// any redirect; there is no optimistic path.
func (h *Handlers) ShareTargetHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shareURL := q.Get("url")
	shareTitle := q.Get("title")
	shareText := q.Get("text")

	if shareURL == "" {
		renderPage(w, http.StatusBadRequest, shareResultTemplate, ShareResultData{
			Heading: "Nothing to save",
			Detail:  "The share did not include a URL.",
		})
		return
	}

	jar := requestJar(r)
	client := identity.NewRenderClient(h.idConfig, jar)

	id, err := client.ValidateSession(r.Context())
	flushJar(w, jar)
	if err != nil {
		if !errors.Is(err, identity.ErrAuthInvalid) {
			log.LogWarnWithFields("share", "Session resolution failed, redirecting to login", map[string]any{
				"error": err.Error(),
			})
		}
		// The payload must survive the redirect unmodified so the login
		// flow can replay it after authentication
		target, err := urlutil.WithQuery(gate.LoginPath,
			"redirect", r.URL.RequestURI(),
			"share_url", shareURL,
			"share_title", shareTitle,
			"share_text", shareText,
		)
		if err != nil {
			target = gate.LoginPath
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	result, err := h.hook.Forward(r.Context(), webhook.Request{
		UserID: id.ID,
		URL:    shareURL,
		Title:  shareTitle,
		Text:   shareText,
	})
	if err != nil {
		log.LogErrorWithFields("share", "Webhook forward failed", map[string]any{
			"user":  id.ID,
			"error": err.Error(),
		})
		renderPage(w, http.StatusBadGateway, shareResultTemplate, ShareResultData{
			Heading: "Could not save the link",
			Detail:  "The bookmark processor did not accept the share. The link was not saved.",
		})
		return
	}

	if !result.Success {
		renderPage(w, http.StatusOK, shareResultTemplate, ShareResultData{
			Heading: "Already saved",
			Detail:  "This link is in your bookmarks already.",
		})
		return
	}

	http.Redirect(w, r, "/?added=true", http.StatusFound)
}
