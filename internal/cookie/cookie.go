// Package cookie carries session state between requests and responses as
// plain (name, value, options) entries. The identity provider's client owns
// the entry names and values; everything else treats them as opaque.
package cookie

import (
	"net/http"
	"time"
)

// Options qualify how an entry is transported. They mirror the attributes
// the identity client supplies when it issues refreshed session entries.
type Options struct {
	Path     string
	MaxAge   int
	Expires  time.Time
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// Entry is a single named unit of transport-layer state
type Entry struct {
	Name    string
	Value   string
	Options Options
}

// HTTPCookie converts the entry to a net/http cookie
func (e Entry) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Path:     e.Options.Path,
		MaxAge:   e.Options.MaxAge,
		Expires:  e.Options.Expires,
		Secure:   e.Options.Secure,
		HttpOnly: e.Options.HttpOnly,
		SameSite: e.Options.SameSite,
	}
}

// Source returns all entries currently visible to a request context
type Source func() []Entry

// Sink accepts entries to set on the outgoing side of a request context
type Sink func(entries []Entry)

// FromRequest builds a Source over the incoming request's cookie jar
func FromRequest(r *http.Request) Source {
	return func() []Entry {
		cookies := r.Cookies()
		entries := make([]Entry, 0, len(cookies))
		for _, c := range cookies {
			entries = append(entries, Entry{Name: c.Name, Value: c.Value})
		}
		return entries
	}
}

// ToResponse builds a Sink that writes Set-Cookie headers on the response.
// The response is a distinct object from the request: nothing written here
// is visible through a Source built from the same request.
func ToResponse(w http.ResponseWriter) Sink {
	return func(entries []Entry) {
		for _, e := range entries {
			http.SetCookie(w, e.HTTPCookie())
		}
	}
}

// Discard is a Sink that silently drops every write. Contexts that forbid
// cookie mutation degrade to it rather than erroring.
func Discard() Sink {
	return func([]Entry) {}
}
