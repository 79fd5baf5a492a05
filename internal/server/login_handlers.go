package server

import (
	"errors"
	"net/http"

	"github.com/rvilla/marks-front/internal/cookie"
	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
)

// LoginPageHandler renders the login entry point. It reads the return hint
// and the share passthrough parameters and threads them through the forms
// unmodified so the payload survives the round-trip.
func (h *Handlers) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := LoginPageData{
		Redirect:   safeReturnPath(q.Get("redirect")),
		ShareURL:   q.Get("share_url"),
		ShareTitle: q.Get("share_title"),
		ShareText:  q.Get("share_text"),
	}
	data.OAuthURL = h.oauthURL(r, data.Redirect)

	renderPage(w, http.StatusOK, loginPageTemplate, data)
}

// LoginPasswordHandler handles direct credential submission. It issues no
// navigation of its own on success: the signed-in transition reaches the
// session watcher, which picks the destination. That keeps this path and
// the out-of-band flows on a single exit.
func (h *Handlers) LoginPasswordHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	data := LoginPageData{
		Redirect:   safeReturnPath(r.PostFormValue("redirect")),
		ShareURL:   r.PostFormValue("share_url"),
		ShareTitle: r.PostFormValue("share_title"),
		ShareText:  r.PostFormValue("share_text"),
		Email:      r.PostFormValue("email"),
	}
	data.OAuthURL = h.oauthURL(r, data.Redirect)

	password := r.PostFormValue("password")
	if data.Email == "" || password == "" {
		data.Message = "Email and password are required"
		data.MessageType = "error"
		renderPage(w, http.StatusOK, loginPageTemplate, data)
		return
	}

	jar := requestJar(r)
	client := identity.NewBrowserClient(h.idConfig, jar)

	var destination string
	sub := client.OnAuthStateChange(func(state identity.AuthState) {
		if state.Event == identity.EventSignedIn && state.Identity != nil {
			destination = data.Redirect
		}
	})
	defer sub.Unsubscribe()

	_, err := client.SignInWithPassword(r.Context(), data.Email, password)
	flushJar(w, jar)

	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAuthInvalid):
			data.Message = "Invalid email or password"
		default:
			log.LogWarnWithFields("login", "Password sign-in failed at the provider", map[string]any{
				"error": err.Error(),
			})
			data.Message = "Sign-in is unavailable right now, try again shortly"
		}
		data.MessageType = "error"
		renderPage(w, http.StatusOK, loginPageTemplate, data)
		return
	}

	if destination == "" {
		// Signed in but the watcher never fired; degrade to the default view
		destination = "/"
	}
	http.Redirect(w, r, destination, http.StatusSeeOther)
}

// LoginMagicLinkHandler requests a one-time email link. Fire and forget:
// the link completes at the auth-completion endpoint, and the page only
// reports whether the request itself was accepted.
func (h *Handlers) LoginMagicLinkHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	data := LoginPageData{
		Redirect: safeReturnPath(r.PostFormValue("redirect")),
		Email:    r.PostFormValue("email"),
	}
	data.OAuthURL = h.oauthURL(r, data.Redirect)

	if data.Email == "" {
		data.Message = "Enter your email first"
		data.MessageType = "error"
		renderPage(w, http.StatusOK, loginPageTemplate, data)
		return
	}

	jar := cookie.NewReadOnlyJar(cookie.FromRequest(r)())
	client := identity.NewBrowserClient(h.idConfig, jar)

	if err := client.SignInWithOTP(r.Context(), data.Email, h.completionURL(data.Redirect)); err != nil {
		log.LogWarnWithFields("login", "Magic link request failed", map[string]any{
			"error": err.Error(),
		})
		data.Message = "Could not send the link, try again shortly"
		data.MessageType = "error"
	} else {
		data.Message = "Check your email. We sent you a magic link."
		data.MessageType = "success"
	}
	renderPage(w, http.StatusOK, loginPageTemplate, data)
}

// oauthURL builds the provider-brokered OAuth sign-in URL for the login page
func (h *Handlers) oauthURL(r *http.Request, redirect string) string {
	jar := cookie.NewReadOnlyJar(cookie.FromRequest(r)())
	client := identity.NewBrowserClient(h.idConfig, jar)
	return client.AuthURL("google", h.completionURL(redirect))
}
