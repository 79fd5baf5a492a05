// Package identity is the client side of the external identity provider.
// It owns the cookie encoding of the session token pair; callers hand it a
// cookie source and sink and otherwise treat the entries as opaque.
package identity

import (
	"errors"
	"net/http"
)

// Identity is the minimal user record referenced by the rest of the app
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ErrAuthInvalid means there is no valid session: missing, expired, or
// rejected tokens. Recoverable by a redirect to login, never fatal.
var ErrAuthInvalid = errors.New("no valid session")

// ErrProviderUnavailable means the identity provider could not be reached
// or answered with a transport-level failure. Callers at the page-delivery
// edge collapse it into the same handling as ErrAuthInvalid.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// Config binds a client to a concrete identity provider deployment
type Config struct {
	// ProviderURL is the provider's base URL (token, userinfo, otp and
	// logout endpoints hang off it)
	ProviderURL string

	// APIKey authenticates this app to the provider on every call
	APIKey string

	// AppURL is this app's externally visible origin, used for the
	// redirect targets the provider sends users back to
	AppURL string

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}
