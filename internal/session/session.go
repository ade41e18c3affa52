// Package session binds opaque client tokens to authenticated users.
//
// A Store persists the binding; the SQLite implementation lives in
// internal/storage and a Redis one in this package. Manager layers token
// generation, expiry and rolling renewal on top of any Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/models"
)

// DefaultTTL is how long sessions last (30 days).
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrNotFound is returned for unknown, expired or deleted tokens.
	ErrNotFound = errors.New("session not found")
	// ErrRenewFailed wraps a renewal failure on an otherwise valid session.
	ErrRenewFailed = errors.New("session renewal failed")
)

// Info is a resolved session. User is the full stored record, hash included.
type Info struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// Store persists token to user bindings.
type Store interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	LookupSession(ctx context.Context, token string) (*Info, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
}

// Manager issues, resolves and ends sessions against a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a Manager. A non-positive ttl selects DefaultTTL.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates a session for userID and returns its token and expiry.
func (m *Manager) Start(ctx context.Context, userID int64) (string, time.Time, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := m.now().Add(m.ttl).UTC()
	if err := m.store.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Resolve looks up token. Once a session is past the halfway point of its
// lifetime it is renewed, and renewed reports true. A failed renewal is
// returned as ErrRenewFailed alongside the still-valid Info.
func (m *Manager) Resolve(ctx context.Context, token string) (info *Info, renewed bool, err error) {
	if token == "" {
		return nil, false, ErrNotFound
	}
	info, err = m.store.LookupSession(ctx, token)
	if err != nil {
		return nil, false, err
	}

	now := m.now()
	if info.ExpiresAt.Sub(now) >= m.ttl/2 {
		return info, false, nil
	}

	newExpiresAt := now.Add(m.ttl).UTC()
	if err := m.store.RenewSession(ctx, token, newExpiresAt); err != nil {
		return info, false, fmt.Errorf("%w: %v", ErrRenewFailed, err)
	}
	info.ExpiresAt = newExpiresAt
	info.LastActivity = now.UTC()
	return info, true, nil
}

// End destroys the session bound to token.
func (m *Manager) End(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}
