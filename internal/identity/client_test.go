package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rvilla/marks-front/internal/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a minimal identity provider: a fixed set of access
// tokens resolve to identities, one refresh token and one authorization
// code can be traded for a fresh pair.
type fakeProvider struct {
	identities   map[string]Identity // access token -> identity
	refreshToken string
	authCode     string
	issued       Identity

	tokenCalls   int
	userCalls    int
	otpRequests  []map[string]string
	logoutCalls  int
	failUserinfo bool
	failToken    bool
}

func (p *fakeProvider) serve(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		p.userCalls++
		if p.failUserinfo {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		identity, ok := p.identities[tokenFromHeader(r.Header.Get("Authorization"))]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(identity)
	})

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls++
		if p.failToken {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.NoError(t, r.ParseForm())

		grant := r.PostFormValue("grant_type")
		authorized := false
		switch grant {
		case "refresh_token":
			authorized = r.PostFormValue("refresh_token") == p.refreshToken
		case "authorization_code":
			authorized = r.PostFormValue("code") == p.authCode
		case "password":
			authorized = r.PostFormValue("username") == "sam@example.com" && r.PostFormValue("password") == "hunter2"
		}
		if !authorized {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "token rejected",
			})
			return
		}

		p.identities["fresh-access"] = p.issued
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	})

	mux.HandleFunc("POST /otp", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.otpRequests = append(p.otpRequests, body)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		p.logoutCalls++
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func tokenFromHeader(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) {
		return header[len(prefix):]
	}
	return ""
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		identities:   map[string]Identity{"good-access": {ID: "user-1", Email: "sam@example.com"}},
		refreshToken: "good-refresh",
		authCode:     "good-code",
		issued:       Identity{ID: "user-1", Email: "sam@example.com"},
	}
}

func sessionJar(access, refresh string) *cookie.Jar {
	var entries []cookie.Entry
	if access != "" {
		entries = append(entries, cookie.Entry{Name: accessCookie, Value: access})
	}
	if refresh != "" {
		entries = append(entries, cookie.Entry{Name: refreshCookie, Value: refresh})
	}
	return cookie.NewJar(entries)
}

func TestValidateSessionWithValidAccessToken(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := sessionJar("good-access", "good-refresh")
	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	id, err := client.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, "sam@example.com", id.Email)

	// No speculative writes outside the refresh path
	assert.Empty(t, jar.Changed())
}

func TestValidateSessionRefreshesExpiredToken(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := sessionJar("stale-access", "good-refresh")
	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	id, err := client.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)

	// The refreshed pair was written through the sink before returning
	changed := jar.Changed()
	require.Len(t, changed, 2)
	values := map[string]string{}
	for _, e := range changed {
		values[e.Name] = e.Value
	}
	assert.Equal(t, "fresh-access", values[accessCookie])
	assert.Equal(t, "fresh-refresh", values[refreshCookie])
}

func TestValidateSessionNoCookies(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, cookie.NewJar(nil))

	_, err := client.ValidateSession(context.Background())
	assert.ErrorIs(t, err, ErrAuthInvalid)
	assert.Zero(t, provider.userCalls)
}

func TestValidateSessionRejectedRefresh(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := sessionJar("stale-access", "stale-refresh")
	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	_, err := client.ValidateSession(context.Background())
	assert.ErrorIs(t, err, ErrAuthInvalid)
	assert.Empty(t, jar.Changed())
}

func TestValidateSessionProviderUnavailable(t *testing.T) {
	provider := newFakeProvider()
	provider.failUserinfo = true
	ts := provider.serve(t)

	jar := sessionJar("good-access", "good-refresh")
	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	_, err := client.ValidateSession(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestValidateSessionReadOnlyJarDropsRefresh(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := cookie.NewReadOnlyJar([]cookie.Entry{
		{Name: accessCookie, Value: "stale-access"},
		{Name: refreshCookie, Value: "good-refresh"},
	})
	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	// Refresh succeeds, the dropped write is an accepted degradation
	id, err := client.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Empty(t, jar.Changed())
}

func TestExchangeCode(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := cookie.NewJar(nil)
	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	var events []AuthEvent
	sub := client.OnAuthStateChange(func(state AuthState) {
		events = append(events, state.Event)
	})
	defer sub.Unsubscribe()

	id, err := client.ExchangeCode(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, []AuthEvent{EventSignedIn}, events)
	assert.Len(t, jar.Changed(), 2)
}

func TestExchangeCodeRejected(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, cookie.NewJar(nil))

	_, err := client.ExchangeCode(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrAuthInvalid)
}

func TestSignInWithPassword(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := cookie.NewJar(nil)
	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	id, err := client.SignInWithPassword(context.Background(), "sam@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", id.Email)
	assert.Len(t, jar.Changed(), 2)
}

func TestSignInWithPasswordBadCredentials(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := cookie.NewJar(nil)
	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	_, err := client.SignInWithPassword(context.Background(), "sam@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthInvalid)
	assert.Empty(t, jar.Changed())
}

func TestSignInWithOTP(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, cookie.NewJar(nil))

	err := client.SignInWithOTP(context.Background(), "sam@example.com", "https://app.example.com/auth/callback?next=%2F")
	require.NoError(t, err)
	require.Len(t, provider.otpRequests, 1)
	assert.Equal(t, "sam@example.com", provider.otpRequests[0]["email"])
	assert.Equal(t, "https://app.example.com/auth/callback?next=%2F", provider.otpRequests[0]["redirect_to"])
}

func TestSignOutClearsSessionAndFiresEvent(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := sessionJar("good-access", "good-refresh")
	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	var events []AuthEvent
	sub := client.OnAuthStateChange(func(state AuthState) {
		events = append(events, state.Event)
	})
	defer sub.Unsubscribe()

	client.SignOut(context.Background())

	assert.Equal(t, 1, provider.logoutCalls)
	assert.Equal(t, []AuthEvent{EventSignedOut}, events)
	for _, e := range jar.Changed() {
		assert.Empty(t, e.Value)
		assert.Equal(t, -1, e.Options.MaxAge)
	}
}

func TestDetectSessionInURL(t *testing.T) {
	tests := []struct {
		name        string
		rawURL      string
		wantID      string
		wantNothing bool
	}{
		{
			name:   "authorization code in query",
			rawURL: "https://app.example.com/auth/callback?code=good-code&next=%2F",
			wantID: "user-1",
		},
		{
			name:   "token pair in fragment",
			rawURL: "https://app.example.com/#access_token=good-access&refresh_token=good-refresh",
			wantID: "user-1",
		},
		{
			name:        "no session material",
			rawURL:      "https://app.example.com/",
			wantNothing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			ts := provider.serve(t)

			jar := cookie.NewJar(nil)
			client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

			u, err := url.Parse(tt.rawURL)
			require.NoError(t, err)

			id, err := client.DetectSessionInURL(context.Background(), u)
			require.NoError(t, err)
			if tt.wantNothing {
				assert.Nil(t, id)
				assert.Empty(t, jar.Changed())
				return
			}
			require.NotNil(t, id)
			assert.Equal(t, tt.wantID, id.ID)
			assert.NotEmpty(t, jar.Changed())
		})
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	provider := newFakeProvider()
	ts := provider.serve(t)

	jar := cookie.NewJar(nil)
	client := NewBrowserClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	var calls int
	sub := client.OnAuthStateChange(func(AuthState) { calls++ })

	_, err := client.ExchangeCode(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	sub.Unsubscribe()
	sub.Unsubscribe() // safe to release twice

	client.SignOut(context.Background())
	assert.Equal(t, 1, calls)
}

func TestMapTokenErrorServerFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.failToken = true
	ts := provider.serve(t)

	jar := sessionJar("stale-access", "good-refresh")
	client := NewRenderClient(Config{ProviderURL: ts.URL, APIKey: "anon"}, jar)

	_, err := client.ValidateSession(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, errors.Is(err, ErrAuthInvalid))
}
