package client

import (
	"sync"

	"github.com/Mewnot-jar/ocean-observer/pkg/auth"
)

// Session holds the signed-in user and their access token.
// It is display state: the server re-checks the token on every request.
// Session is safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	token       string
	user        *auth.User
	subscribers []subscriber
	nextID      int
}

type subscriber struct {
	id int
	fn func(*auth.User)
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// SignIn stores the token and user, then notifies subscribers with user.
func (s *Session) SignIn(token string, user *auth.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, user)
}

// SignOut clears the session and notifies subscribers with nil.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, nil)
}

// Current returns the signed-in user, or nil.
func (s *Session) Current() *auth.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the access token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn to be called after every sign-in and sign-out.
// The returned function removes the subscription and may be called more than once.
func (s *Session) Subscribe(fn func(*auth.User)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshot copies the subscriber list. Callers hold s.mu.
func (s *Session) snapshot() []subscriber {
	return append([]subscriber(nil), s.subscribers...)
}

// notify runs outside the lock so subscribers may call back into the session.
func notify(subs []subscriber, user *auth.User) {
	for _, sub := range subs {
		sub.fn(user)
	}
}
