// v0
// internal/auth/auth.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned for any pair other than the demo one.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Default demo credentials.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password123"
)

// Session is issued on a successful login.
type Session struct {
	Token    string    `json:"token"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Authenticator checks a single configured credential pair.
type Authenticator struct {
	email    string
	password string
	delay    time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

// New returns an authenticator for the given pair. Empty values fall back to
// the demo credentials. delay is waited before every answer.
func New(email, password string, delay time.Duration) *Authenticator {
	if strings.TrimSpace(email) == "" {
		email = DemoEmail
	}
	if password == "" {
		password = DemoPassword
	}
	return &Authenticator{
		email:    email,
		password: password,
		delay:    delay,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Hint is the message shown next to a failed login.
func (a *Authenticator) Hint() string {
	return fmt.Sprintf("Invalid credentials. Use %s / %s", a.email, a.password)
}

// Login verifies the pair and issues a session.
func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	if a.delay > 0 {
		t := time.NewTimer(a.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Session{}, ctx.Err()
		case <-t.C:
		}
	}
	okEmail := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(email)), []byte(a.email)) == 1
	okPass := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !okEmail || !okPass {
		return Session{}, ErrInvalidCredentials
	}
	s := Session{Token: uuid.New().String(), Email: a.email, IssuedAt: a.now().UTC()}
	a.mu.Lock()
	a.sessions[s.Token] = s
	a.mu.Unlock()
	return s, nil
}

// Lookup returns the session issued under token.
func (a *Authenticator) Lookup(token string) (Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[token]
	return s, ok
}

// Logout forgets token. Unknown tokens are ignored.
func (a *Authenticator) Logout(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, token)
}
