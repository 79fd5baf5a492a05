package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rvilla/marks-front/internal/cookie"
	"github.com/rvilla/marks-front/internal/log"
	"github.com/rvilla/marks-front/internal/urlutil"
	"golang.org/x/oauth2"
)

// Client talks to the identity provider on behalf of one request context.
// It is built fresh per request from an explicit cookie source and sink and
// must never be shared across requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	oauth      oauth2.Config
	source     cookie.Source
	sink       cookie.Sink
	watchers   watcherRegistry
}

func newClient(cfg Config, source cookie.Source, sink cookie.Sink) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: &apiKeyTransport{key: cfg.APIKey, base: httpClient.Transport}, Timeout: httpClient.Timeout},
		oauth: oauth2.Config{
			ClientID: "marks-front",
			Endpoint: oauth2.Endpoint{
				AuthURL:   urlutil.MustJoinPath(cfg.ProviderURL, "/authorize"),
				TokenURL:  urlutil.MustJoinPath(cfg.ProviderURL, "/token"),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		source: source,
		sink:   sink,
	}
}

// apiKeyTransport attaches the provider API key to every outgoing call
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("apikey", t.key)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// oauthContext makes the oauth2 package use our API-keyed transport
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// ValidateSession resolves the current identity from the session cookies.
// Reads always precede the provider call; refreshed entries are written
// through the sink synchronously before returning; no writes happen
// otherwise.
func (c *Client) ValidateSession(ctx context.Context) (*Identity, error) {
	pair := pairFromEntries(c.source())
	if pair == nil {
		return nil, ErrAuthInvalid
	}

	if pair.AccessToken != "" {
		id, err := c.userInfo(ctx, pair.AccessToken)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrAuthInvalid) {
			return nil, err
		}
	}

	if pair.RefreshToken == "" {
		return nil, ErrAuthInvalid
	}

	tok, err := c.refresh(ctx, pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	// Mirror the refreshed pair before anything else observes the session,
	// otherwise the next hop regresses to the pre-refresh value
	c.sink(sessionEntries(tok))

	id, err := c.userInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	c.fire(AuthState{Event: EventTokenRefreshed, Identity: id})
	return id, nil
}

// ExchangeCode exchanges an authorization code issued by an out-of-band
// step (magic link, OAuth round-trip) for a session, storing the resulting
// entries through the sink.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Identity, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return c.adoptSession(ctx, tok)
}

// SignInWithPassword authenticates direct credentials through the
// provider's password grant. It issues no navigation itself; the
// signed-in transition is delivered through the watcher.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	tok, err := c.oauth.PasswordCredentialsToken(c.oauthContext(ctx), email, password)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return c.adoptSession(ctx, tok)
}

// SignInWithOTP asks the provider to email a one-time sign-in link. The
// link completes out of band at redirectTo; nothing is written here.
func (c *Client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	body, err := json.Marshal(map[string]string{
		"email":       email,
		"redirect_to": redirectTo,
	})
	if err != nil {
		return fmt.Errorf("encoding otp request: %w", err)
	}

	endpoint := urlutil.MustJoinPath(c.cfg.ProviderURL, "/otp")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building otp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: otp request returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	return nil
}

// SignOut invalidates the session at the provider and clears the entries.
// The provider call is best-effort; local state is cleared regardless.
func (c *Client) SignOut(ctx context.Context) {
	if pair := pairFromEntries(c.source()); pair != nil && pair.AccessToken != "" {
		endpoint := urlutil.MustJoinPath(c.cfg.ProviderURL, "/logout")
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			if resp, err := c.httpClient.Do(req); err != nil {
				log.LogDebug("Provider sign-out failed: %v", err)
			} else {
				_ = resp.Body.Close()
			}
		}
	}

	c.sink(clearedEntries())
	c.fire(AuthState{Event: EventSignedOut})
}

// AuthURL builds the provider-brokered OAuth sign-in URL for an upstream
// provider like "google". The provider redirects back to redirectTo once
// the round-trip completes.
func (c *Client) AuthURL(provider, redirectTo string) string {
	u, _ := urlutil.WithQuery(c.oauth.Endpoint.AuthURL,
		"provider", provider,
		"redirect_to", redirectTo,
	)
	return u
}

// DetectSessionInURL inspects a page URL for the artifacts of a completed
// out-of-band authentication step: an authorization code in the query, or a
// token pair in the fragment. Finding one adopts the session and fires the
// signed-in transition. (nil, nil) means the URL carries no session.
func (c *Client) DetectSessionInURL(ctx context.Context, u *url.URL) (*Identity, error) {
	if code := u.Query().Get("code"); code != "" {
		return c.ExchangeCode(ctx, code)
	}

	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err == nil && frag.Get("access_token") != "" {
			tok := &oauth2.Token{
				AccessToken:  frag.Get("access_token"),
				RefreshToken: frag.Get("refresh_token"),
			}
			return c.adoptSession(ctx, tok)
		}
	}

	return nil, nil
}

// adoptSession stores a freshly issued token pair and resolves its identity
func (c *Client) adoptSession(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	c.sink(sessionEntries(tok))

	id, err := c.userInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	c.fire(AuthState{Event: EventSignedIn, Identity: id})
	return id, nil
}

// refresh trades the refresh token for a new pair at the token endpoint
func (c *Client) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, mapTokenError(err)
	}
	return tok, nil
}

// userInfo resolves the identity behind an access token
func (c *Client) userInfo(ctx context.Context, accessToken string) (*Identity, error) {
	endpoint := urlutil.MustJoinPath(c.cfg.ProviderURL, "/userinfo")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthInvalid
	default:
		return nil, fmt.Errorf("%w: userinfo returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: decoding userinfo: %v", ErrProviderUnavailable, err)
	}
	if id.ID == "" {
		return nil, ErrAuthInvalid
	}
	return &id, nil
}

// mapTokenError classifies token endpoint failures: a definitive rejection
// is an invalid session, anything transport-shaped is the provider being
// unavailable.
func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			msg := strings.TrimSpace(retrieveErr.ErrorDescription)
			if msg == "" {
				msg = retrieveErr.ErrorCode
			}
			if msg != "" {
				return fmt.Errorf("%w: %s", ErrAuthInvalid, msg)
			}
			return ErrAuthInvalid
		}
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
