package identity

import "sync"

// AuthEvent identifies a session state transition
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "signed_in"
	EventSignedOut      AuthEvent = "signed_out"
	EventTokenRefreshed AuthEvent = "token_refreshed"
)

// AuthState is delivered to watchers on every transition
type AuthState struct {
	Event    AuthEvent
	Identity *Identity
}

type watcherRegistry struct {
	mu       sync.Mutex
	nextID   uint64
	watchers map[uint64]func(AuthState)
}

// Subscription is the handle returned by OnAuthStateChange. Releasing it
// stops delivery; the owning view must release it on teardown so no
// transition fires against a stale context.
type Subscription struct {
	id     uint64
	client *Client
}

// Unsubscribe stops delivery to this subscription. Safe to call more than
// once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.client == nil {
		return
	}
	reg := &s.client.watchers
	reg.mu.Lock()
	delete(reg.watchers, s.id)
	reg.mu.Unlock()
	s.client = nil
}

// OnAuthStateChange registers fn to run on every session state transition
// this client performs: sign-in, sign-out, token refresh. Delivery is
// synchronous on the transition's own goroutine.
func (c *Client) OnAuthStateChange(fn func(AuthState)) *Subscription {
	reg := &c.watchers
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.watchers == nil {
		reg.watchers = make(map[uint64]func(AuthState))
	}
	reg.nextID++
	id := reg.nextID
	reg.watchers[id] = fn
	return &Subscription{id: id, client: c}
}

func (c *Client) fire(state AuthState) {
	reg := &c.watchers
	reg.mu.Lock()
	fns := make([]func(AuthState), 0, len(reg.watchers))
	for _, fn := range reg.watchers {
		fns = append(fns, fn)
	}
	reg.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
