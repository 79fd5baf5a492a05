package identity

import (
	"net/http"
	"time"

	"github.com/rvilla/marks-front/internal/cookie"
	"github.com/rvilla/marks-front/internal/envutil"
	"golang.org/x/oauth2"
)

// Cookie names for the session token pair. Owned by this package; the rest
// of the app only relays the entries.
const (
	accessCookie  = "mf-access-token"
	refreshCookie = "mf-refresh-token"
)

const refreshMaxAge = 30 * 24 * time.Hour

func sessionOptions(maxAge int) cookie.Options {
	return cookie.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionEntries encodes a token pair as cookie entries
func sessionEntries(tok *oauth2.Token) []cookie.Entry {
	accessMaxAge := 3600
	if !tok.Expiry.IsZero() {
		if until := int(time.Until(tok.Expiry).Seconds()); until > 0 {
			accessMaxAge = until
		}
	}
	return []cookie.Entry{
		{Name: accessCookie, Value: tok.AccessToken, Options: sessionOptions(accessMaxAge)},
		{Name: refreshCookie, Value: tok.RefreshToken, Options: sessionOptions(int(refreshMaxAge.Seconds()))},
	}
}

// clearedEntries expires both session cookies
func clearedEntries() []cookie.Entry {
	opts := cookie.Options{Path: "/", MaxAge: -1}
	return []cookie.Entry{
		{Name: accessCookie, Options: opts},
		{Name: refreshCookie, Options: opts},
	}
}

// pairFromEntries reconstructs the token pair from cookie entries.
// Returns nil when no session material is present.
func pairFromEntries(entries []cookie.Entry) *oauth2.Token {
	var tok oauth2.Token
	for _, e := range entries {
		switch e.Name {
		case accessCookie:
			tok.AccessToken = e.Value
		case refreshCookie:
			tok.RefreshToken = e.Value
		}
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil
	}
	return &tok
}
