package server

import (
	"net/http"

	"github.com/rvilla/marks-front/internal/gate"
	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
)

// AuthCallbackHandler completes an out-of-band authentication step. It
// exchanges the authorization code for a session and redirects to `next`
// with the refreshed cookies attached. An absent code is a no-op, not an
// error: the redirect happens either way.
func (h *Handlers) AuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next := safeReturnPath(q.Get("next"))

	if code := q.Get("code"); code != "" {
		// Edge flavor: cookies issued by the exchange go straight onto
		// the response that carries the redirect
		client := identity.NewEdgeClient(h.idConfig, r, w)
		if _, err := client.ExchangeCode(r.Context(), code); err != nil {
			// The redirect still happens; the gate will bounce an
			// unauthenticated user back to login
			log.LogWarnWithFields("auth", "Code exchange failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	http.Redirect(w, r, next, http.StatusFound)
}

// LogoutHandler signs the user out at the provider, clears the session
// entries, and returns to the login entry point.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	client := identity.NewEdgeClient(h.idConfig, r, w)
	client.SignOut(r.Context())

	http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
}
