// Package gate is the edge interceptor: it classifies every incoming path
// and decides, in one pass, whether to admit the request or redirect it to
// the login entry point.
package gate

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rvilla/marks-front/internal/identity"
	"github.com/rvilla/marks-front/internal/log"
)

// Route is the public/protected label derived from a request path
type Route int

const (
	RoutePublic Route = iota
	RouteProtected
)

// Decision is the gate's terminal choice for one request
type Decision int

const (
	DecisionPending Decision = iota
	DecisionAdmitted
	DecisionRedirecting
)

// LoginPath is the login entry point. It must classify public, together
// with the auth completion endpoints, or the gate redirects into itself
// forever.
const LoginPath = "/login"

// Classify labels a path public or protected. Public paths are the login
// entry point, the authentication completion endpoints, and the
// share-intake endpoint; everything else is protected.
func Classify(path string) Route {
	switch {
	case strings.HasPrefix(path, LoginPath):
		return RoutePublic
	case strings.HasPrefix(path, "/auth/"):
		return RoutePublic
	case path == "/share-target":
		return RoutePublic
	default:
		return RouteProtected
	}
}

// Intercepted reports whether the gate evaluates this path at all.
// Internal asset and liveness paths bypass it entirely.
func Intercepted(path string) bool {
	switch {
	case strings.HasPrefix(path, "/static/"):
		return false
	case path == "/favicon.ico":
		return false
	case path == "/healthz":
		return false
	default:
		return true
	}
}

// Decide runs the admission state machine for one request. Session
// validation runs even on public paths so refreshed tokens propagate
// through the client's sink. A provider failure is treated exactly like an
// absent session: page delivery degrades to a login prompt, never to an
// error.
func Decide(r *http.Request, client *identity.Client) (Decision, string) {
	path := r.URL.Path

	id, err := client.ValidateSession(r.Context())
	if err != nil && !errors.Is(err, identity.ErrAuthInvalid) {
		log.LogWarnWithFields("gate", "Session validation failed, treating as unauthenticated", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}

	if Classify(path) == RoutePublic {
		return DecisionAdmitted, ""
	}

	if id != nil {
		return DecisionAdmitted, ""
	}

	target := LoginPath + "?" + url.Values{"redirect": {path}}.Encode()
	return DecisionRedirecting, target
}

// NewAdmissionMiddleware wraps a handler with the admission gate. The
// edge-flavor identity client is built per request from the incoming
// request and outgoing response, so refreshed cookies land on the response
// whichever way the decision goes.
func NewAdmissionMiddleware(cfg identity.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Intercepted(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			client := identity.NewEdgeClient(cfg, r, w)
			decision, target := Decide(r, client)
			if decision == DecisionRedirecting {
				log.LogDebugWithFields("gate", "Redirecting to login", map[string]any{
					"path": r.URL.Path,
				})
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
