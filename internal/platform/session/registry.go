// Package session tracks issued access tokens server-side so that login,
// logout, and password reset all share one revocation mechanism. The
// registry is consulted on every authenticated request; a token missing
// from it is rejected even if its signature still verifies.
package session

import (
	"sync"
	"time"

	"github.com/diagnosis/cardlink/pkg/auth"
)

type Session struct {
	Token     string    `json:"-"`
	OwnerID   string    `json:"owner_id"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Registry struct {
	mu       sync.Mutex
	secret   string
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry(secret string, ttl time.Duration) *Registry {
	return &Registry{
		secret:   secret,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create signs a new access token for the account and records the session.
func (r *Registry) Create(ownerID, email, role, device string) (*Session, error) {
	token, err := auth.New(ownerID, email, role, false, r.secret, r.ttl)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s := &Session{
		Token:     token,
		OwnerID:   ownerID,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	r.sessions[token] = s
	r.pruneLocked(now)
	return s, nil
}

// Validate reports whether the token belongs to a live session. Expired
// entries are evicted lazily on lookup.
func (r *Registry) Validate(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return false
	}
	if r.now().After(s.ExpiresAt) {
		delete(r.sessions, token)
		return false
	}
	return true
}

// Invalidate removes one session; used on logout.
func (r *Registry) Invalidate(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// InvalidateOwner removes all sessions for an account; used on password
// reset to force re-authentication everywhere.
func (r *Registry) InvalidateOwner(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, s := range r.sessions {
		if s.OwnerID == ownerID {
			delete(r.sessions, token)
		}
	}
}

// ActiveFor lists the non-expired sessions for an account. There is no
// upper bound on concurrent sessions.
func (r *Registry) ActiveFor(ownerID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var out []*Session
	for token, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, token)
			continue
		}
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) pruneLocked(now time.Time) {
	for token, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, token)
		}
	}
}
